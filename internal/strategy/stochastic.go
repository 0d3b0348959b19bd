package strategy

import "github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"

// Stochastic implements a %K/%D stochastic oscillator, grounded on
// tick_strategies.py's _hft_stochastic.
type Stochastic struct {
	kPeriod, dPeriod int
}

// NewStochastic constructs a stochastic strategy with the given %K lookback
// and %D smoothing period.
func NewStochastic(kPeriod, dPeriod int) *Stochastic {
	return &Stochastic{kPeriod: kPeriod, dPeriod: dPeriod}
}

func (s *Stochastic) Name() string { return "stochastic" }

func (s *Stochastic) Evaluate(window signal.Window, quote signal.Tick) (*signal.Signal, error) {
	if window.Len() == 0 {
		return nil, ErrEmptyWindow
	}
	mids := window.Mids()
	price := mids[len(mids)-1]

	switch {
	case len(mids) >= s.kPeriod+s.dPeriod:
		kValues := make([]float64, 0, s.dPeriod)
		for i := len(mids) - s.dPeriod; i < len(mids); i++ {
			kValues = append(kValues, percentK(mids[:i+1], s.kPeriod))
		}
		k := kValues[len(kValues)-1]
		d := average(kValues)
		return s.signalFromValues(k, d, price, "full_window"), nil
	case len(mids) >= 3:
		k := percentK(mids, len(mids))
		return s.signalFromValues(k, k, price, "reduced_window"), nil
	default:
		bias := oneTickBias(price)
		k := 50 + bias*50
		return s.signalFromValues(k, k, price, "single_tick_fallback"), nil
	}
}

func (s *Stochastic) signalFromValues(k, d, price float64, mode string) *signal.Signal {
	switch {
	case k < 20 && k >= d:
		return buildSignal(signal.Buy, price, 0.5+(20-k)/20*0.3, s.Name(), mode+":oversold")
	case k > 80 && k <= d:
		return buildSignal(signal.Sell, price, 0.5+(k-80)/20*0.3, s.Name(), mode+":overbought")
	default:
		return nil
	}
}

func percentK(mids []float64, period int) float64 {
	if period > len(mids) {
		period = len(mids)
	}
	window := mids[len(mids)-period:]
	low, high := window[0], window[0]
	for _, v := range window {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	last := window[len(window)-1]
	if high == low {
		return 50
	}
	return (last - low) / (high - low) * 100
}
