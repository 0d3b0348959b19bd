package tickpipeline

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/marketaccess"
)

func TestFetchUsesRichestAvailableRung(t *testing.T) {
	stub := marketaccess.NewStub(zerolog.Nop())
	stub.SeedSymbolInfo(marketaccess.SymbolInfo{Symbol: "EURUSD", Digits: 5, PointSize: 0.00001, Bid: 1.1000, Ask: 1.1002})
	now := time.Now()
	stub.SeedTicks("EURUSD",
		marketaccess.StructuredTick("EURUSD", 1.1000, 1.1002, now.Add(-2*time.Second)),
		marketaccess.StructuredTick("EURUSD", 1.1001, 1.1003, now.Add(-1*time.Second)),
	)

	fetcher := NewFetcher(stub, zerolog.Nop(), 200, 10*time.Second)
	result, err := fetcher.Fetch(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if result.Rung != RungAll {
		t.Fatalf("expected RungAll, got %v", result.Rung)
	}
	if result.Window.Len() != 2 {
		t.Fatalf("expected 2 ticks, got %d", result.Window.Len())
	}
}

func TestFetchFallsBackToQuoteSynthesis(t *testing.T) {
	stub := marketaccess.NewStub(zerolog.Nop())
	stub.SeedSymbolInfo(marketaccess.SymbolInfo{Symbol: "EURUSD", Digits: 5, PointSize: 0.00001, Bid: 1.1000, Ask: 1.1002})

	fetcher := NewFetcher(stub, zerolog.Nop(), 200, 10*time.Second)
	result, err := fetcher.Fetch(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if result.Rung != RungQuoteSynthesis {
		t.Fatalf("expected RungQuoteSynthesis, got %v", result.Rung)
	}
	if result.Window.Len() != 1 {
		t.Fatalf("expected single-tick window, got %d", result.Window.Len())
	}
}

func TestFetchReturnsErrorForUnknownSymbol(t *testing.T) {
	stub := marketaccess.NewStub(zerolog.Nop())
	fetcher := NewFetcher(stub, zerolog.Nop(), 200, 10*time.Second)
	if _, err := fetcher.Fetch(context.Background(), "UNKNOWN"); err == nil {
		t.Fatalf("expected error for unknown symbol")
	}
}

func TestFetchFallsThroughRungsWhenTicksAreAllInvalid(t *testing.T) {
	stub := marketaccess.NewStub(zerolog.Nop())
	stub.SeedSymbolInfo(marketaccess.SymbolInfo{Symbol: "EURUSD", Digits: 5, PointSize: 0.00001, Bid: 1.1000, Ask: 1.1002})
	now := time.Now()
	// Ask < bid: invalid per the spec's validity invariant, must be
	// dropped rather than admitted to the window.
	stub.SeedTicks("EURUSD", marketaccess.StructuredTick("EURUSD", 1.1005, 1.1000, now))

	fetcher := NewFetcher(stub, zerolog.Nop(), 200, 10*time.Second)
	result, err := fetcher.Fetch(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if result.Rung != RungQuoteSynthesis {
		t.Fatalf("expected the invalid tick to be dropped and fall through to quote synthesis, got %v", result.Rung)
	}
}
