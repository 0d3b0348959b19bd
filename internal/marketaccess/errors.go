package marketaccess

import "errors"

// ErrSymbolUnknown is returned when a Port has no metadata for a symbol.
var ErrSymbolUnknown = errors.New("marketaccess: unknown symbol")

// ErrNoTicks is returned when a Port has no tick history for a symbol.
var ErrNoTicks = errors.New("marketaccess: no ticks available")
