package strategy

import "github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"

// AlwaysSignal deterministically alternates Buy/Sell on successive
// invocations at a fixed confidence, regardless of window size. It exists
// purely for exercising the order executor and protection machine in tests
// and demo runs without needing a real market condition to line up,
// grounded on tick_strategies.py's always_signal registry entry used the
// same way in the original test harness — the alternation there comes
// from toggling a module-level flag each call, kept here as a struct field
// since each bot owns its own strategy instance.
type AlwaysSignal struct {
	nextBuy bool
}

// NewAlwaysSignal constructs the always-on test strategy, starting on Buy.
func NewAlwaysSignal() *AlwaysSignal { return &AlwaysSignal{nextBuy: true} }

func (a *AlwaysSignal) Name() string { return "always_signal" }

// Evaluate always produces a signal, even for an empty window, deriving
// the price from quote in that case rather than failing the way every
// other strategy's totality contract requires — the one exception the
// spec carves out for this test-only strategy.
func (a *AlwaysSignal) Evaluate(window signal.Window, quote signal.Tick) (*signal.Signal, error) {
	price := quote.Mid()
	if window.Len() > 0 {
		price = window.Last().Mid()
	}
	kind := signal.Sell
	if a.nextBuy {
		kind = signal.Buy
	}
	a.nextBuy = !a.nextBuy
	return buildSignal(kind, price, 0.75, a.Name(), "always_signal"), nil
}
