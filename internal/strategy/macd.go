package strategy

import "github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"

// MACD implements a moving-average-convergence-divergence crossover,
// grounded on tick_strategies.py's _hft_macd. The original's single-tick
// branch fired a test signal 20% of the time via random.random(); here the
// single-tick branch instead reads oneTickBias, so the same input price
// always produces the same decision.
type MACD struct {
	fast, slow, signalPeriod int
}

// NewMACD constructs a MACD strategy with the given fast/slow EMA periods
// and signal-line smoothing period.
func NewMACD(fast, slow, signalPeriod int) *MACD {
	return &MACD{fast: fast, slow: slow, signalPeriod: signalPeriod}
}

func (m *MACD) Name() string { return "macd" }

func (m *MACD) Evaluate(window signal.Window, quote signal.Tick) (*signal.Signal, error) {
	if window.Len() == 0 {
		return nil, ErrEmptyWindow
	}
	mids := window.Mids()
	price := mids[len(mids)-1]

	switch {
	case len(mids) >= m.slow+m.signalPeriod:
		macdLine, signalLine := computeMACD(mids, m.fast, m.slow, m.signalPeriod)
		return m.signalFromLines(macdLine, signalLine, price, "full_window"), nil
	case len(mids) >= 4:
		fast := average(mids[len(mids)-2:])
		slow := average(mids)
		return m.signalFromLines(fast-slow, 0, price, "reduced_window"), nil
	default:
		bias := oneTickBias(price)
		if bias > 0.2 {
			return buildSignal(signal.Buy, price, 0.4+bias*0.2, m.Name(), "single_tick_fallback:bias_up"), nil
		}
		if bias < -0.2 {
			return buildSignal(signal.Sell, price, 0.4+-bias*0.2, m.Name(), "single_tick_fallback:bias_down"), nil
		}
		return nil, nil
	}
}

func (m *MACD) signalFromLines(macdLine, signalLine, price float64, mode string) *signal.Signal {
	diff := macdLine - signalLine
	switch {
	case diff > 0:
		return buildSignal(signal.Buy, price, clampConfidence(0.5+diff*50), m.Name(), mode+":macd_above_signal")
	case diff < 0:
		return buildSignal(signal.Sell, price, clampConfidence(0.5+-diff*50), m.Name(), mode+":macd_below_signal")
	default:
		return nil
	}
}

func computeMACD(mids []float64, fast, slow, signalPeriod int) (macdLine, signalLine float64) {
	fastEMA := ema(mids, fast)
	slowEMA := ema(mids, slow)
	macdSeries := make([]float64, 0, len(mids))
	for i := range mids {
		macdSeries = append(macdSeries, ema(mids[:i+1], fast)-ema(mids[:i+1], slow))
	}
	_ = fastEMA
	_ = slowEMA
	macdLine = macdSeries[len(macdSeries)-1]
	signalLine = ema(macdSeries, signalPeriod)
	return macdLine, signalLine
}

func ema(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if period <= 1 || len(values) < period {
		return average(values)
	}
	k := 2.0 / float64(period+1)
	result := average(values[:period])
	for _, v := range values[period:] {
		result = v*k + result*(1-k)
	}
	return result
}
