package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/coreerr"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/marketaccess"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"
)

// scriptedPort is a Port test double that returns a pre-programmed sequence
// of OrderSend outcomes, one per call, to drive the fill-ladder retry logic
// through specific retcodes without a broker to exercise it against.
type scriptedPort struct {
	info    marketaccess.SymbolInfo
	quote   marketaccess.Quote
	results []marketaccess.OrderResult
	calls   int
	last    marketaccess.OrderRequest
}

func (p *scriptedPort) SymbolInfo(context.Context, string) (marketaccess.SymbolInfo, error) {
	return p.info, nil
}
func (p *scriptedPort) CurrentQuote(context.Context, string) (marketaccess.Quote, error) {
	return p.quote, nil
}
func (p *scriptedPort) TicksRange(context.Context, string, marketaccess.TickRange, int) ([]signal.Tick, error) {
	return nil, nil
}
func (p *scriptedPort) TicksSince(context.Context, string, time.Time) ([]signal.Tick, error) {
	return nil, nil
}
func (p *scriptedPort) Positions(context.Context, string) ([]marketaccess.Position, error) {
	return nil, nil
}
func (p *scriptedPort) OrderSend(_ context.Context, req marketaccess.OrderRequest) (marketaccess.OrderResult, error) {
	p.last = req
	if p.calls >= len(p.results) {
		p.calls++
		return marketaccess.OrderResult{Ret: marketaccess.RetRejected}, nil
	}
	result := p.results[p.calls]
	p.calls++
	return result, nil
}

func TestTagRoundTrip(t *testing.T) {
	tag := BuildTag(7, "rsi", signal.Buy)
	if tag != "TradePulse_bot_7_RSI_BUY" {
		t.Fatalf("unexpected tag: %s", tag)
	}
	parsed, err := ParseTag(tag)
	if err != nil {
		t.Fatalf("ParseTag error: %v", err)
	}
	if parsed.BotID != 7 || parsed.Mode != "RSI" || parsed.Direction != signal.Buy {
		t.Fatalf("round trip mismatch: %+v", parsed)
	}
}

func TestParseTagRejectsGarbage(t *testing.T) {
	if _, err := ParseTag("not_a_tag"); err == nil {
		t.Fatalf("expected error for malformed tag")
	}
}

func TestManualCloseTagRoundTrip(t *testing.T) {
	tag := BuildManualCloseTag(42)
	ticket, err := ParseManualCloseTag(tag)
	if err != nil {
		t.Fatalf("ParseManualCloseTag error: %v", err)
	}
	if ticket != 42 {
		t.Fatalf("expected ticket 42, got %d", ticket)
	}
}

func TestMagicIsStablePerBotAndSymbol(t *testing.T) {
	a := Magic(1, "EURUSD")
	b := Magic(1, "EURUSD")
	c := Magic(2, "EURUSD")
	if a != b {
		t.Fatalf("Magic not stable across calls")
	}
	if a == c {
		t.Fatalf("Magic collided across bot ids")
	}
}

func TestSubmitForcesNonzeroStops(t *testing.T) {
	stub := marketaccess.NewStub(zerolog.Nop())
	stub.SeedSymbolInfo(marketaccess.SymbolInfo{Symbol: "EURUSD", Digits: 5, PointSize: 0.00001, Bid: 1.1000, Ask: 1.1002, MinStopPts: 50})
	exec := NewExecutor(stub, zerolog.Nop())

	result, err := exec.Submit(context.Background(), Request{
		BotID: 1, Mode: "rsi", Symbol: "EURUSD", Direction: signal.Buy,
		Volume: 0.1, EntryPrice: 1.1002, StopLossPips: 20, TakeProfitPips: 0,
	})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if result.Ret != marketaccess.RetOK {
		t.Fatalf("expected RetOK, got %v", result.Ret)
	}
	positions, _ := stub.Positions(context.Background(), "EURUSD")
	if len(positions) != 1 || positions[0].StopLoss != 1.0982 || positions[0].TakeProfit != 1.1022 {
		t.Fatalf("expected SL 1.0982 and TP forced to 1.1022, got %+v", positions)
	}
}

func TestSubmitSucceedsOnSecondFillModeAfterInvalidFillRetcode(t *testing.T) {
	port := &scriptedPort{
		info: marketaccess.SymbolInfo{Symbol: "EURUSD", Digits: 5, PointSize: 0.00001, Bid: 1.1000, Ask: 1.1002},
		results: []marketaccess.OrderResult{
			{Ret: marketaccess.RetInvalidFill},
			{Ret: marketaccess.RetOK, Ticket: 1, Price: 1.1002},
		},
	}
	exec := NewExecutor(port, zerolog.Nop())

	result, err := exec.Submit(context.Background(), Request{
		BotID: 1, Mode: "rsi", Symbol: "EURUSD", Direction: signal.Buy, Volume: 0.1, EntryPrice: 1.1002,
	})
	if err != nil {
		t.Fatalf("expected the ladder to succeed on the second fill mode, got %v", err)
	}
	if result.Ret != marketaccess.RetOK || result.Ticket != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if port.calls != 2 {
		t.Fatalf("expected exactly 2 OrderSend calls, got %d", port.calls)
	}
}

func TestSubmitSurfacesRejectionWithoutRetryingFillMode(t *testing.T) {
	for _, ret := range []marketaccess.RetCode{marketaccess.RetRejected, marketaccess.RetNoMoney} {
		port := &scriptedPort{
			info:    marketaccess.SymbolInfo{Symbol: "EURUSD", Digits: 5, PointSize: 0.00001, Bid: 1.1000, Ask: 1.1002},
			results: []marketaccess.OrderResult{{Ret: ret}},
		}
		exec := NewExecutor(port, zerolog.Nop())

		_, err := exec.Submit(context.Background(), Request{
			BotID: 1, Mode: "rsi", Symbol: "EURUSD", Direction: signal.Buy, Volume: 0.1, EntryPrice: 1.1002,
		})
		if !errors.Is(err, coreerr.ErrOrderRejected) {
			t.Fatalf("ret=%v: expected ErrOrderRejected, got %v", ret, err)
		}
		if port.calls != 1 {
			t.Fatalf("ret=%v: expected exactly 1 OrderSend call with no retry, got %d", ret, port.calls)
		}
	}
}

func TestCloseSubmitsOppositeSideAtCrossingQuote(t *testing.T) {
	port := &scriptedPort{
		quote:   marketaccess.Quote{Symbol: "EURUSD", Bid: 1.0990, Ask: 1.1010},
		results: []marketaccess.OrderResult{{Ret: marketaccess.RetOK, Ticket: 9, Price: 1.0990, Profit: 12.5}},
	}
	exec := NewExecutor(port, zerolog.Nop())

	result, err := exec.Close(context.Background(), "EURUSD", 9, marketaccess.SideBuy, 0.1)
	if err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if result.Price != 1.0990 {
		t.Fatalf("expected a Buy to close at the bid, got %f", result.Price)
	}
	if port.last.Side != marketaccess.SideSell || port.last.Price != 1.0990 {
		t.Fatalf("expected a Sell request at the bid 1.0990, got %+v", port.last)
	}
}

func TestSubmitRejectsUnknownSymbol(t *testing.T) {
	stub := marketaccess.NewStub(zerolog.Nop())
	exec := NewExecutor(stub, zerolog.Nop())
	if _, err := exec.Submit(context.Background(), Request{Symbol: "NOPE", Volume: 1}); err == nil {
		t.Fatalf("expected error for unknown symbol")
	}
}
