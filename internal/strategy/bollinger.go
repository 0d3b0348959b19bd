package strategy

import (
	"math"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"
)

// Bollinger signals on a Bollinger Band touch/reversion, grounded on
// tick_strategies.py's _hft_bollinger_bands.
type Bollinger struct {
	period    int
	numStdDev float64
}

// NewBollinger constructs a Bollinger Bands strategy with the given period
// and standard-deviation multiplier.
func NewBollinger(period int, numStdDev float64) *Bollinger {
	return &Bollinger{period: period, numStdDev: numStdDev}
}

func (b *Bollinger) Name() string { return "bollinger" }

func (b *Bollinger) Evaluate(window signal.Window, quote signal.Tick) (*signal.Signal, error) {
	if window.Len() == 0 {
		return nil, ErrEmptyWindow
	}
	mids := window.Mids()
	price := mids[len(mids)-1]

	switch {
	case len(mids) >= b.period:
		slice := mids[len(mids)-b.period:]
		mean := average(slice)
		sd := stddev(slice, mean)
		return b.signalFromBands(mean, sd, price, "full_window"), nil
	case len(mids) >= 2:
		mean := average(mids)
		sd := stddev(mids, mean)
		return b.signalFromBands(mean, sd, price, "reduced_window"), nil
	default:
		bias := oneTickBias(price)
		if bias > 0.45 {
			return buildSignal(signal.Sell, price, 0.4+bias*0.2, b.Name(), "single_tick_fallback:upper_band_touch"), nil
		}
		if bias < -0.45 {
			return buildSignal(signal.Buy, price, 0.4+-bias*0.2, b.Name(), "single_tick_fallback:lower_band_touch"), nil
		}
		return nil, nil
	}
}

func (b *Bollinger) signalFromBands(mean, sd, price float64, mode string) *signal.Signal {
	if sd == 0 {
		return nil
	}
	upper := mean + sd*b.numStdDev
	lower := mean - sd*b.numStdDev
	switch {
	case price >= upper:
		confidence := (price - upper) / sd
		return buildSignal(signal.Sell, price, clampConfidence(0.5+confidence*0.2), b.Name(), mode+":upper_band_touch")
	case price <= lower:
		confidence := (lower - price) / sd
		return buildSignal(signal.Buy, price, clampConfidence(0.5+confidence*0.2), b.Name(), mode+":lower_band_touch")
	default:
		return nil
	}
}

func stddev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
