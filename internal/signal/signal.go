// Package signal standardizes payloads shared between tick ingestion, the
// strategy evaluator, and the order executor.
package signal

import "time"

// Tick is a single bid/ask observation for one symbol, already normalized
// from whatever wire shape the originating Market Access Port delivered.
type Tick struct {
	Symbol string
	Bid    float64
	Ask    float64
	Ts     time.Time
}

// Mid returns the midpoint price used by strategies unless they explicitly
// require directional quotes.
func (t Tick) Mid() float64 { return (t.Bid + t.Ask) / 2 }

// Valid reports whether the tick satisfies the spec's validity invariant:
// bid > 0, ask > 0, ask >= bid.
func (t Tick) Valid() bool { return t.Bid > 0 && t.Ask > 0 && t.Ask >= t.Bid }

// Kind enumerates the directional bias a Signal carries.
type Kind int

const (
	// Buy requests a long entry.
	Buy Kind = iota + 1
	// Sell requests a short entry.
	Sell
)

// String renders the kind the way order tags and logs expect it.
func (k Kind) String() string {
	switch k {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Signal is the output of a strategy evaluation. Absence of a signal is
// represented by a nil *Signal, never by a sentinel price or kind.
type Signal struct {
	Kind       Kind
	Price      float64
	Confidence float64 // in [0, 1]
	Reason     string
	Strategy   string
}
