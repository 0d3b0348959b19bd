package bot

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/events"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/marketaccess"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/protection"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"
)

// TestHandleCompletionRecomputesProfitWhenUnknown exercises the spec's
// manual-close open question decision: when the venue does not report a
// profit figure directly, the bot recomputes it from the tracked entry
// price, volume, and direction.
func TestHandleCompletionRecomputesProfitWhenUnknown(t *testing.T) {
	b := New(1, testConfig("EURUSD"), newTestStub(), events.NewBus(), zerolog.Nop())
	b.trackOpenOrder(42, signal.Buy, 1.1000)

	b.HandleCompletion(Completion{Ticket: 42, ClosePrice: 1.1010})

	snap := b.state.Protection.Snapshot()
	if snap.DailyPnL <= 0 {
		t.Fatalf("expected a positive recomputed pnl for a buy that closed higher, got %.6f", snap.DailyPnL)
	}
	if snap.ConsecutiveWins != 1 {
		t.Fatalf("expected a win to be recorded, got %+v", snap)
	}
}

func TestHandleCompletionUsesReportedProfitWhenKnown(t *testing.T) {
	b := New(1, testConfig("EURUSD"), newTestStub(), events.NewBus(), zerolog.Nop())
	b.trackOpenOrder(7, signal.Sell, 1.2000)

	b.HandleCompletion(Completion{Ticket: 7, ClosePrice: 1.5000, ProfitKnown: true, Profit: -3.5})

	snap := b.state.Protection.Snapshot()
	if snap.DailyPnL != -3.5 {
		t.Fatalf("expected the reported profit to be used verbatim, got %.6f", snap.DailyPnL)
	}
	if snap.ConsecutiveLosses != 1 {
		t.Fatalf("expected a loss to be recorded, got %+v", snap)
	}
}

// TestHandleCompletionIgnoresUnknownTicket covers a completion for a
// ticket the bot never tracked (not ours, or already handled) — it must
// be a silent no-op, not a panic or a spurious counter bump.
func TestHandleCompletionIgnoresUnknownTicket(t *testing.T) {
	b := New(1, testConfig("EURUSD"), newTestStub(), events.NewBus(), zerolog.Nop())
	before := b.state.Protection.Snapshot()

	b.HandleCompletion(Completion{Ticket: 999, ClosePrice: 1.1, ProfitKnown: true, Profit: 100})

	after := b.state.Protection.Snapshot()
	if after != before {
		t.Fatalf("expected no change for an untracked ticket, before=%+v after=%+v", before, after)
	}
}

// TestConsecutiveLossPauseViaCompletions drives scenario S4: repeated
// losing completions trip the consecutive-loss gate and subsequent orders
// are rejected until a manual resume, independent of day rollover.
func TestConsecutiveLossPauseViaCompletions(t *testing.T) {
	cfg := testConfig("EURUSD")
	cfg.Limits = protection.Limits{MaxConsecutiveLoss: 2}
	b := New(1, cfg, newTestStub(), events.NewBus(), zerolog.Nop())

	for i := uint64(1); i <= 2; i++ {
		b.trackOpenOrder(i, signal.Buy, 1.1000)
		b.HandleCompletion(Completion{Ticket: i, ClosePrice: 1.0900})
	}

	if err := b.gates.Check(b.state.Protection, time.Now(), 0, 1.0); err == nil {
		t.Fatalf("expected the consecutive-loss gate to have tripped")
	}
}

// TestCycleEntersAtCrossingQuoteNotSignalMid drives scenario S1: a BUY
// against (bid=4300.00, ask=4300.50) must build its stop/target off the
// ask, not off the strategy signal's mid price, and the spread gate must
// see a 50-point spread, inside the bot's 100-point limit.
func TestCycleEntersAtCrossingQuoteNotSignalMid(t *testing.T) {
	stub := marketaccess.NewStub(zerolog.Nop())
	stub.SeedSymbolInfo(marketaccess.SymbolInfo{Symbol: "XAUUSD", Digits: 2, PointSize: 0.01})
	stub.SeedTicks("XAUUSD", marketaccess.StructuredTick("XAUUSD", 4300.00, 4300.50, time.Now()))

	cfg := testConfig("XAUUSD")
	cfg.Limits = protection.Limits{MaxSpreadPoints: 100}
	cfg.StopLossPips = 10
	b := New(1, cfg, stub, events.NewBus(), zerolog.Nop())

	b.cycle(context.Background())

	positions, err := stub.Positions(context.Background(), "XAUUSD")
	if err != nil || len(positions) != 1 {
		t.Fatalf("expected exactly one open position, got %+v, err %v", positions, err)
	}
	pos := positions[0]
	// entry off the ask (4300.50), not the signal mid (4300.25): SL 10
	// points below, TP 10 points above.
	if pos.StopLoss != 4300.40 {
		t.Fatalf("expected stop loss at 4300.40 (10 points below the ask), got %.2f", pos.StopLoss)
	}
	if pos.TakeProfit != 4300.60 {
		t.Fatalf("expected take profit at 4300.60 (10 points above the ask), got %.2f", pos.TakeProfit)
	}
}
