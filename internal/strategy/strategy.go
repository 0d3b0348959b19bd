// Package strategy implements the signal strategy library every bot
// evaluates once per cycle against its current tick window. Grounded on
// original_source/backend/trading_bot/tick_strategies.py, which defines one
// function per strategy with three branches: a full-window calculation, a
// reduced-window approximation, and a single-tick fallback. That shape is
// kept here, but the single-tick fallback is made a deterministic function
// of the quoted price rather than a random draw (see oneTickBias below) —
// the spec's progressive-fallback requirement demands totality over every
// window size, not randomness.
package strategy

import (
	"fmt"
	"strings"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"
)

// Strategy evaluates a tick window and returns a signal, or nil if none
// applies. quote is the venue's current bid/ask, carried alongside window
// so a strategy that must always produce a signal (AlwaysSignal) has a
// price to work from even when window is empty. Evaluate must be total
// over every window length from 1 upward; other than AlwaysSignal, it
// never returns a nil signal and a nil error together with an empty
// window, since an empty window is a caller bug, not a market condition.
type Strategy interface {
	Name() string
	Evaluate(window signal.Window, quote signal.Tick) (*signal.Signal, error)
}

// ErrEmptyWindow is returned when Evaluate is called with a zero-length
// window — a caller defect, since the tick pipeline guarantees at least a
// single synthesized tick.
var ErrEmptyWindow = fmt.Errorf("strategy: empty window")

// Build returns the strategy implementation matching name, aliasing the
// handful of alternate spellings the original controller's
// get_tick_strategy accepted. Unknown names (and the empty name) fall back
// to the Moving Average default, the way the teacher's strategy.Build falls
// back to its default mode rather than returning an error.
func Build(name string) Strategy {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rsi", "rsi_strategy":
		return NewRSI(14, 30, 70)
	case "", "ma", "moving_average", "moving_average_strategy":
		return NewMovingAverage(5, 20)
	case "macd", "macd_strategy":
		return NewMACD(12, 26, 9)
	case "stochastic", "stochastic_strategy":
		return NewStochastic(14, 3)
	case "breakout", "breakout_strategy":
		return NewBreakout(20)
	case "vwap", "vwap_strategy":
		return NewVWAP(20)
	case "bollinger", "bollinger_bands", "bollinger_strategy":
		return NewBollinger(20, 2)
	case "always", "always_signal", "always_signal_strategy":
		return NewAlwaysSignal()
	default:
		return NewMovingAverage(5, 20)
	}
}

// oneTickBias derives a deterministic value in [-1, 1] from the fractional
// digits of price. It stands in for the full indicator when a strategy has
// only ever seen one tick: the original implementation rolled dice here;
// this one reads the sub-pip noise of the quote itself, which is at least
// a property of the market rather than of the process clock.
func oneTickBias(price float64) float64 {
	scaled := price * 100000
	frac := scaled - float64(int64(scaled))
	if frac < 0 {
		frac = -frac
	}
	return frac*2 - 1
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func buildSignal(kind signal.Kind, price, confidence float64, name, reason string) *signal.Signal {
	return &signal.Signal{
		Kind:       kind,
		Price:      price,
		Confidence: clampConfidence(confidence),
		Reason:     reason,
		Strategy:   name,
	}
}
