package strategy

import (
	"testing"
	"time"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"
)

var allStrategies = []Strategy{
	NewRSI(14, 30, 70),
	NewMovingAverage(5, 20),
	NewMACD(12, 26, 9),
	NewStochastic(14, 3),
	NewBreakout(20),
	NewVWAP(20),
	NewBollinger(20, 2),
	NewAlwaysSignal(),
}

func singleTick(price float64) signal.Window {
	return signal.NewWindow([]signal.Tick{{Symbol: "EURUSD", Bid: price, Ask: price + 0.0002, Ts: time.Now()}})
}

func quoteAt(price float64) signal.Tick {
	return signal.Tick{Symbol: "EURUSD", Bid: price, Ask: price + 0.0002, Ts: time.Now()}
}

// TestOneTickNeverErrors is the one-tick-never-insufficient-data law: every
// strategy must return (nil-or-signal, nil) for a single-tick window,
// never an error.
func TestOneTickNeverErrors(t *testing.T) {
	for _, s := range allStrategies {
		sig, err := s.Evaluate(singleTick(1.10001), quoteAt(1.10001))
		if err != nil {
			t.Fatalf("%s: unexpected error on single-tick window: %v", s.Name(), err)
		}
		_ = sig
	}
}

// TestEmptyWindowErrors confirms the caller-bug guard fires instead of a
// panic on index-out-of-range, except for AlwaysSignal which the spec
// requires to always produce a signal from the current quote instead.
func TestEmptyWindowErrors(t *testing.T) {
	empty := signal.NewWindow(nil)
	quote := quoteAt(1.10001)
	for _, s := range allStrategies {
		sig, err := s.Evaluate(empty, quote)
		if s.Name() == "always_signal" {
			if err != nil || sig == nil {
				t.Fatalf("always_signal: expected a signal from the quote on an empty window, got sig=%v err=%v", sig, err)
			}
			continue
		}
		if err != ErrEmptyWindow {
			t.Fatalf("%s: expected ErrEmptyWindow, got %v", s.Name(), err)
		}
	}
}

// TestSingleTickFallbackDeterministic freezes the one-tick decision for a
// fixed price: the same price must always yield the same signal kind,
// except for AlwaysSignal, which alternates BUY and SELL on every call.
func TestSingleTickFallbackDeterministic(t *testing.T) {
	for _, s := range allStrategies {
		first, errFirst := s.Evaluate(singleTick(1.23457), quoteAt(1.23457))
		second, errSecond := s.Evaluate(singleTick(1.23457), quoteAt(1.23457))
		if errFirst != nil || errSecond != nil {
			t.Fatalf("%s: unexpected error", s.Name())
		}
		if (first == nil) != (second == nil) {
			t.Fatalf("%s: single-tick fallback not deterministic", s.Name())
		}
		if s.Name() == "always_signal" {
			if first == nil || first.Kind == second.Kind {
				t.Fatalf("%s: expected consecutive calls to alternate kind", s.Name())
			}
			continue
		}
		if first != nil && first.Kind != second.Kind {
			t.Fatalf("%s: single-tick fallback kind changed between identical calls", s.Name())
		}
	}
}

func TestBuildKnowsEveryName(t *testing.T) {
	names := []string{"rsi", "ma", "macd", "stochastic", "breakout", "vwap", "bollinger", "always_signal", "unknown_mode"}
	for _, name := range names {
		if Build(name) == nil {
			t.Fatalf("Build(%q) returned nil", name)
		}
	}
}
