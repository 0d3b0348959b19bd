package marketaccess

import (
	"time"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"
)

// Shape tags which variant of RawTick is populated. Venues hand the tick
// pipeline whatever wire shape they natively produce; the pipeline never
// needs to guess which fields are present because Shape says so up front.
type Shape int

const (
	// ShapeStructured carries explicit named bid/ask/time fields, the shape
	// a venue's own typed API returns (MT5's TICK struct, a REST quote).
	ShapeStructured Shape = iota
	// ShapeAttributed carries a last/close price plus a spread estimate
	// instead of separate bid/ask, the shape a trade-print stream (a single
	// traded price, no resting quote) produces.
	ShapeAttributed
	// ShapeTuple carries a bare (price, timestamp) pair with no bid/ask or
	// spread information at all, the minimal shape a degraded or synthetic
	// source falls back to.
	ShapeTuple
)

// RawTick is a closed sum type over the wire shapes a Market Access Port can
// hand back before normalization. The original Python pipeline duck-typed
// its way through dict keys and object attributes in whatever order they
// happened to exist (_ticks_to_arrays); RawTick replaces that with an
// explicit tag so TryExtractQuote is a total, switch-exhaustive function
// instead of a chain of hasattr/get guesses.
type RawTick struct {
	Shape Shape

	// ShapeStructured fields.
	Bid float64
	Ask float64

	// ShapeAttributed fields.
	Last   float64
	Spread float64 // absolute price spread estimate, 0 if unknown

	// ShapeTuple fields.
	Price float64

	Symbol string
	Ts     time.Time
}

// TryExtractQuote derives a bid/ask pair from whatever shape is present. It
// is total over Shape: every variant yields a usable (possibly synthetic)
// quote, never an error, mirroring the original's "always produce some
// signal" posture while keeping the derivation explicit instead of
// accidental.
func (r RawTick) TryExtractQuote() (bid, ask float64) {
	switch r.Shape {
	case ShapeStructured:
		return r.Bid, r.Ask
	case ShapeAttributed:
		half := r.Spread / 2
		return r.Last - half, r.Last + half
	case ShapeTuple:
		return r.Price, r.Price
	default:
		return r.Price, r.Price
	}
}

// ToTick normalizes a RawTick into the domain-level signal.Tick the
// strategy evaluator consumes.
func (r RawTick) ToTick() signal.Tick {
	bid, ask := r.TryExtractQuote()
	return signal.Tick{Symbol: r.Symbol, Bid: bid, Ask: ask, Ts: r.Ts}
}

// StructuredTick builds a ShapeStructured RawTick.
func StructuredTick(symbol string, bid, ask float64, ts time.Time) RawTick {
	return RawTick{Shape: ShapeStructured, Symbol: symbol, Bid: bid, Ask: ask, Ts: ts}
}

// AttributedTick builds a ShapeAttributed RawTick from a last price and an
// estimated spread.
func AttributedTick(symbol string, last, spread float64, ts time.Time) RawTick {
	return RawTick{Shape: ShapeAttributed, Symbol: symbol, Last: last, Spread: spread, Ts: ts}
}

// TupleTick builds a ShapeTuple RawTick from a bare price.
func TupleTick(symbol string, price float64, ts time.Time) RawTick {
	return RawTick{Shape: ShapeTuple, Symbol: symbol, Price: price, Ts: ts}
}
