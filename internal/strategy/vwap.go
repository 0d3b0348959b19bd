package strategy

import "github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"

// VWAP signals on deviation from the volume-weighted average price over the
// lookback window, grounded on tick_strategies.py's _hft_vwap. Ticks carry
// no trade size in this domain model (they are bid/ask quotes, not trade
// prints), so the weighting uses a uniform weight per tick — a deliberate
// simplification over the original's per-trade-size weighting.
type VWAP struct {
	period int
}

// NewVWAP constructs a VWAP strategy with the given lookback period.
func NewVWAP(period int) *VWAP { return &VWAP{period: period} }

func (v *VWAP) Name() string { return "vwap" }

func (v *VWAP) Evaluate(window signal.Window, quote signal.Tick) (*signal.Signal, error) {
	if window.Len() == 0 {
		return nil, ErrEmptyWindow
	}
	mids := window.Mids()
	price := mids[len(mids)-1]

	switch {
	case len(mids) >= v.period:
		vwap := average(mids[len(mids)-v.period:])
		return v.signalFromVWAP(vwap, price, "full_window"), nil
	case len(mids) >= 2:
		vwap := average(mids)
		return v.signalFromVWAP(vwap, price, "reduced_window"), nil
	default:
		bias := oneTickBias(price)
		if bias > 0.35 {
			return buildSignal(signal.Sell, price, 0.4+bias*0.25, v.Name(), "single_tick_fallback:above_fair_value"), nil
		}
		if bias < -0.35 {
			return buildSignal(signal.Buy, price, 0.4+-bias*0.25, v.Name(), "single_tick_fallback:below_fair_value"), nil
		}
		return nil, nil
	}
}

func (v *VWAP) signalFromVWAP(vwap, price float64, mode string) *signal.Signal {
	if vwap == 0 {
		return nil
	}
	deviation := (price - vwap) / vwap
	switch {
	case deviation < -0.001:
		return buildSignal(signal.Buy, price, clampConfidence(0.5+-deviation*100), v.Name(), mode+":below_vwap")
	case deviation > 0.001:
		return buildSignal(signal.Sell, price, clampConfidence(0.5+deviation*100), v.Name(), mode+":above_vwap")
	default:
		return nil
	}
}
