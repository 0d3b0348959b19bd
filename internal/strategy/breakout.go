package strategy

import "github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"

// Breakout signals when price clears the high/low of its lookback channel,
// grounded on tick_strategies.py's _hft_breakout.
type Breakout struct {
	period int
}

// NewBreakout constructs a breakout strategy with the given channel period.
func NewBreakout(period int) *Breakout { return &Breakout{period: period} }

func (b *Breakout) Name() string { return "breakout" }

func (b *Breakout) Evaluate(window signal.Window, quote signal.Tick) (*signal.Signal, error) {
	if window.Len() == 0 {
		return nil, ErrEmptyWindow
	}
	mids := window.Mids()
	price := mids[len(mids)-1]

	switch {
	case len(mids) >= b.period+1:
		channel := mids[len(mids)-b.period-1 : len(mids)-1]
		return b.signalFromChannel(channel, price, "full_window"), nil
	case len(mids) >= 3:
		channel := mids[:len(mids)-1]
		return b.signalFromChannel(channel, price, "reduced_window"), nil
	default:
		bias := oneTickBias(price)
		if bias > 0.4 {
			return buildSignal(signal.Buy, price, 0.4+bias*0.3, b.Name(), "single_tick_fallback:bias_up"), nil
		}
		if bias < -0.4 {
			return buildSignal(signal.Sell, price, 0.4+-bias*0.3, b.Name(), "single_tick_fallback:bias_down"), nil
		}
		return nil, nil
	}
}

func (b *Breakout) signalFromChannel(channel []float64, price float64, mode string) *signal.Signal {
	if len(channel) == 0 {
		return nil
	}
	low, high := channel[0], channel[0]
	for _, v := range channel {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	switch {
	case price > high:
		confidence := (price - high) / high
		return buildSignal(signal.Buy, price, clampConfidence(0.6+confidence*50), b.Name(), mode+":broke_above_high")
	case price < low:
		confidence := (low - price) / low
		return buildSignal(signal.Sell, price, clampConfidence(0.6+confidence*50), b.Name(), mode+":broke_below_low")
	default:
		return nil
	}
}
