// Package paper books fills for venues that have no real broker settlement
// behind them (Binance spot, Dexscreener), the way the
// teacher's paper trading mode recorded fills for its own stub exchange.
package paper

import "time"

// Side mirrors the order direction recorded against a fill. Kept local to
// this package rather than imported from marketaccess so paper stays usable
// from tests that have no Port wired up at all.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Fill is a single executed order, paper-booked.
type Fill struct {
	Symbol string    `json:"symbol"`
	Side   Side      `json:"side"`
	Qty    float64   `json:"qty"`
	Price  float64   `json:"price"`
	Ts     time.Time `json:"ts"`
}
