package marketaccess

import "strings"

// DefaultSpreadLimitPoints is the ceiling applied to a symbol with no
// entry in the table below.
const DefaultSpreadLimitPoints = 30.0

// defaultSpreadLimits is the bit-exact default table from spec.md §6,
// expressed in broker points rather than pips so it applies uniformly
// regardless of a symbol's digit count. The bot loop does not consult this
// table: a bot's spread gate uses only its own Config.SpreadLimitPts, and
// is off when that is 0.
var defaultSpreadLimits = map[string]float64{
	"ETHUSD": 1000,
	"BTCUSD": 1000,
	"EURUSD": 5,
	"GBPUSD": 10,
	"USDJPY": 10,
	"XAUUSD": 50,
}

// SpreadLimitPoints returns the configured ceiling for symbol, falling back
// to DefaultSpreadLimitPoints for anything not in the table.
func SpreadLimitPoints(symbol string) float64 {
	if limit, ok := defaultSpreadLimits[strings.ToUpper(symbol)]; ok {
		return limit
	}
	return DefaultSpreadLimitPoints
}
