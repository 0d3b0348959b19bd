package strategy

import (
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"
)

// RSI implements a relative-strength-index mean-reversion strategy,
// grounded on tick_strategies.py's _hft_rsi: oversold below the low
// threshold signals Buy, overbought above the high threshold signals Sell.
type RSI struct {
	period   int
	oversold float64
	overbought float64
}

// NewRSI constructs an RSI strategy with the given lookback period and
// threshold pair (0-100 scale).
func NewRSI(period int, oversold, overbought float64) *RSI {
	return &RSI{period: period, oversold: oversold, overbought: overbought}
}

func (r *RSI) Name() string { return "rsi" }

func (r *RSI) Evaluate(window signal.Window, quote signal.Tick) (*signal.Signal, error) {
	if window.Len() == 0 {
		return nil, ErrEmptyWindow
	}
	mids := window.Mids()
	price := mids[len(mids)-1]

	switch n := len(mids); {
	case n >= r.period+2:
		value := computeRSI(mids, r.period)
		return r.signalFromValue(value, price, r.oversold, r.overbought, "full_window"), nil
	case n >= 3:
		value := computeRSI(mids, n-1)
		// Aggressive thresholds nearer 50 preserve signal rate once the
		// window is too short for the configured period.
		return r.signalFromValue(value, price, r.oversold+10, r.overbought-10, "reduced_window"), nil
	case n == 2:
		value := pseudoRSIFromPercentChange(mids[0], mids[1])
		return r.signalFromValue(value, price, r.oversold+10, r.overbought-10, "percent_change_fallback"), nil
	default:
		bias := oneTickBias(price)
		// Map the deterministic bias onto the RSI scale so the single-tick
		// branch still speaks the same 0-100 language as the real indicator.
		value := 50 + bias*50
		return r.signalFromValue(value, price, r.oversold+10, r.overbought-10, "single_tick_fallback"), nil
	}
}

func (r *RSI) signalFromValue(value, price, oversold, overbought float64, mode string) *signal.Signal {
	switch {
	case value <= oversold:
		confidence := (oversold - value) / oversold
		return buildSignal(signal.Buy, price, 0.5+confidence*0.5, r.Name(), mode+":oversold")
	case value >= overbought:
		confidence := (value - overbought) / (100 - overbought)
		return buildSignal(signal.Sell, price, 0.5+confidence*0.5, r.Name(), mode+":overbought")
	default:
		return nil
	}
}

// pseudoRSIFromPercentChange derives an RSI-scale value from a two-tick
// window's normalized percent change, clamped to [5,95] per spec.md §4.3's
// |w|=2 reduced mode so a two-tick window never collapses to a flat 50.
func pseudoRSIFromPercentChange(prev, last float64) float64 {
	if prev == 0 {
		return 50
	}
	pctChange := (last - prev) / prev * 100
	value := 50 + pctChange*10
	if value < 5 {
		value = 5
	}
	if value > 95 {
		value = 95
	}
	return value
}

// computeRSI computes a Wilder-style RSI over the last period+1 mids.
func computeRSI(mids []float64, period int) float64 {
	start := len(mids) - period - 1
	if start < 0 {
		start = 0
	}
	window := mids[start:]

	var gainSum, lossSum float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum += -delta
		}
	}
	n := float64(len(window) - 1)
	if n <= 0 {
		return 50
	}
	avgGain := gainSum / n
	avgLoss := lossSum / n
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
