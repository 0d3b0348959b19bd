package signal

import "time"

// Window is an ordered, time-monotonic sequence of valid Ticks spanning at
// most the configured lookback. It may hold as few as one element;
// strategies must be total over len(window) in [1, N].
type Window struct {
	Ticks []Tick
}

// NewWindow builds a Window from already-validated, time-ordered ticks.
func NewWindow(ticks []Tick) Window { return Window{Ticks: ticks} }

// Len reports the number of ticks in the window.
func (w Window) Len() int { return len(w.Ticks) }

// Last returns the most recent tick. Callers must check Len() > 0 first.
func (w Window) Last() Tick { return w.Ticks[len(w.Ticks)-1] }

// Bids returns the derived bid series.
func (w Window) Bids() []float64 { return w.project(func(t Tick) float64 { return t.Bid }) }

// Asks returns the derived ask series.
func (w Window) Asks() []float64 { return w.project(func(t Tick) float64 { return t.Ask }) }

// Mids returns the derived mid series, the price series strategies use
// unless they explicitly require directional quotes.
func (w Window) Mids() []float64 { return w.project(Tick.Mid) }

func (w Window) project(f func(Tick) float64) []float64 {
	out := make([]float64, len(w.Ticks))
	for i, t := range w.Ticks {
		out[i] = f(t)
	}
	return out
}

// Span returns the duration covered by the window (0 for 0 or 1 ticks).
func (w Window) Span() time.Duration {
	if len(w.Ticks) < 2 {
		return 0
	}
	return w.Ticks[len(w.Ticks)-1].Ts.Sub(w.Ticks[0].Ts)
}
