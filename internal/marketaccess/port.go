// Package marketaccess abstracts the broker/venue terminal behind a single
// Port interface so the bot loop never depends on a specific connector.
package marketaccess

import (
	"context"
	"time"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"
)

// Venue names the concrete Port implementation a bot is wired to.
type Venue string

const (
	VenueStub        Venue = "stub"
	VenueBinance     Venue = "binance"
	VenueDexScreener Venue = "dexscreener"
	VenueJupiter     Venue = "jupiter"
)

// TickRange selects how much history TicksRange should attempt to return.
type TickRange int

const (
	// RangeAll asks for the venue's full retained buffer.
	RangeAll TickRange = iota
	// RangeInfo asks for a venue-defined "recent" window, cheaper than All.
	RangeInfo
	// RangeWindow asks for a caller-specified time window (see TicksSince).
	RangeWindow
)

// SymbolInfo mirrors the subset of broker symbol metadata the pip math and
// order construction need.
type SymbolInfo struct {
	Symbol     string
	Digits     int
	PointSize  float64
	MinStopPts float64 // minimum SL/TP distance the venue enforces, in points
	Bid        float64
	Ask        float64
}

// Quote is a single current bid/ask snapshot.
type Quote struct {
	Symbol string
	Bid    float64
	Ask    float64
	Ts     time.Time
}

// Side mirrors signal.Kind for order placement, kept distinct so a Port
// implementation never needs to import the strategy-facing signal package
// beyond the Tick type it already returns.
type Side int

const (
	SideBuy Side = iota + 1
	SideSell
)

// FillPolicy requests the broker filling mode for an order, allowing the
// retry ladder in internal/order to step down if one is refused.
type FillPolicy int

const (
	FillIOC FillPolicy = iota
	FillFOK
	FillReturn
)

// OrderRequest is a venue-agnostic order placement request.
type OrderRequest struct {
	Symbol     string
	Side       Side
	Volume     float64
	Price      float64 // 0 requests a market fill at the current quote
	StopLoss   float64 // absolute price, 0 means none
	TakeProfit float64 // absolute price, 0 means none
	Fill       FillPolicy
	Comment    string // order tag, see internal/order/tag.go
	Magic      uint64
}

// RetCode mirrors the small set of broker return codes the retry ladder and
// the stop-distance clamp care about.
type RetCode int

const (
	RetOK RetCode = iota
	RetInvalidStops
	RetInvalidFill
	RetRejected
	RetNoMoney
)

// OrderResult is the outcome of an OrderSend call.
type OrderResult struct {
	Ticket  uint64
	Ret     RetCode
	Price   float64
	Profit  float64 // populated on a closing order, when the venue reports it
	Comment string
}

// Position is an open position as reported by the venue.
type Position struct {
	Ticket     uint64
	Symbol     string
	Side       Side
	Volume     float64
	OpenPrice  float64
	StopLoss   float64
	TakeProfit float64
	Comment    string
	Magic      uint64
}

// Port is the full capability set a bot needs from a venue: symbol
// metadata, current and historical ticks, open positions, and order
// placement/closure. Every concrete backend implements the same six
// operations regardless of the transport underneath.
type Port interface {
	// SymbolInfo returns current metadata/spread for symbol.
	SymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error)
	// CurrentQuote returns the latest bid/ask for symbol.
	CurrentQuote(ctx context.Context, symbol string) (Quote, error)
	// TicksRange returns up to limit recent ticks for symbol, using the
	// venue's strongest available granularity for the requested range.
	TicksRange(ctx context.Context, symbol string, r TickRange, limit int) ([]signal.Tick, error)
	// TicksSince returns ticks for symbol observed at or after since.
	TicksSince(ctx context.Context, symbol string, since time.Time) ([]signal.Tick, error)
	// Positions returns open positions, optionally filtered to symbol (empty
	// string means all symbols).
	Positions(ctx context.Context, symbol string) ([]Position, error)
	// OrderSend submits req and returns the venue's outcome.
	OrderSend(ctx context.Context, req OrderRequest) (OrderResult, error)
}
