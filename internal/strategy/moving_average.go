package strategy

import "github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"

// MovingAverage signals on a short/long simple-moving-average crossover,
// grounded on tick_strategies.py's _hft_moving_average.
type MovingAverage struct {
	short, long int
}

// NewMovingAverage constructs a crossover strategy with the given period
// pair; short must be smaller than long.
func NewMovingAverage(short, long int) *MovingAverage {
	if short >= long {
		short, long = long, short
	}
	return &MovingAverage{short: short, long: long}
}

func (m *MovingAverage) Name() string { return "moving_average" }

func (m *MovingAverage) Evaluate(window signal.Window, quote signal.Tick) (*signal.Signal, error) {
	if window.Len() == 0 {
		return nil, ErrEmptyWindow
	}
	mids := window.Mids()
	price := mids[len(mids)-1]

	switch n := len(mids); {
	case n >= m.long:
		shortAvg := average(mids[len(mids)-m.short:])
		longAvg := average(mids[len(mids)-m.long:])
		return m.signalFromAverages(shortAvg, longAvg, price, "full_window"), nil
	case n >= 3:
		shortAvg := average(mids[len(mids)-2:])
		longAvg := average(mids)
		return m.signalFromAverages(shortAvg, longAvg, price, "reduced_window"), nil
	case n == 2:
		// Reduced mode per spec.md §4.3: with |w| = 2 there isn't enough
		// history for a second average, so fall back to the sign of the
		// percent change between the two ticks.
		pctChange := (mids[1] - mids[0]) / mids[0]
		switch {
		case pctChange > 0:
			return buildSignal(signal.Buy, price, clampConfidence(0.5+pctChange*100), m.Name(), "percent_change_fallback:up"), nil
		case pctChange < 0:
			return buildSignal(signal.Sell, price, clampConfidence(0.5+-pctChange*100), m.Name(), "percent_change_fallback:down"), nil
		default:
			return nil, nil
		}
	default:
		// |w| = 1: derive from price parity, a documented deterministic
		// mapping since there is no second tick to compare against.
		cents := int64(price * 100)
		if cents%2 == 0 {
			return buildSignal(signal.Buy, price, 0.55, m.Name(), "single_tick_fallback:parity_even"), nil
		}
		return buildSignal(signal.Sell, price, 0.55, m.Name(), "single_tick_fallback:parity_odd"), nil
	}
}

func (m *MovingAverage) signalFromAverages(shortAvg, longAvg, price float64, mode string) *signal.Signal {
	if longAvg == 0 {
		return nil
	}
	spread := (shortAvg - longAvg) / longAvg
	switch {
	case spread > 0.0005:
		return buildSignal(signal.Buy, price, clampConfidence(0.5+spread*100), m.Name(), mode+":short_above_long")
	case spread < -0.0005:
		return buildSignal(signal.Sell, price, clampConfidence(0.5+-spread*100), m.Name(), mode+":short_below_long")
	default:
		return nil
	}
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
