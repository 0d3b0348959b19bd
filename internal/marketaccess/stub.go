package marketaccess

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"
)

// manualCloseTagPrefix mirrors internal/order's Manual_Close_<ticket> tag
// grammar. Kept as a literal here rather than imported, since
// internal/order already imports marketaccess for the Port/OrderRequest
// types and a back-import would cycle.
const manualCloseTagPrefix = "Manual_Close_"

// Stub is a deterministic, in-memory Port used for tests and offline work,
// grounded on the teacher's ProviderStub synthetic feed but extended to
// serve the full Port surface rather than a tick channel alone.
type Stub struct {
	log zerolog.Logger

	mu        sync.Mutex
	raw       map[string][]RawTick // seeded heterogeneous-shape history
	infoFor   map[string]SymbolInfo
	nextTk    uint64
	fills     []OrderResult
	positions map[uint64]Position // open positions, keyed by ticket
}

// NewStub constructs an empty Stub. Seed with SeedTicks/SeedSymbolInfo
// before driving a bot loop against it.
func NewStub(log zerolog.Logger) *Stub {
	return &Stub{
		log:       log,
		raw:       make(map[string][]RawTick),
		infoFor:   make(map[string]SymbolInfo),
		positions: make(map[uint64]Position),
	}
}

// SeedSymbolInfo registers the metadata CurrentQuote/SymbolInfo/OrderSend
// use for symbol.
func (s *Stub) SeedSymbolInfo(info SymbolInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infoFor[info.Symbol] = info
}

// SeedTicks appends raw ticks (any mix of shapes) to symbol's history, in
// chronological order.
func (s *Stub) SeedTicks(symbol string, ticks ...RawTick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[symbol] = append(s.raw[symbol], ticks...)
}

func (s *Stub) SymbolInfo(_ context.Context, symbol string) (SymbolInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.infoFor[symbol]
	if !ok {
		return SymbolInfo{}, ErrSymbolUnknown
	}
	return info, nil
}

func (s *Stub) CurrentQuote(_ context.Context, symbol string) (Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := s.raw[symbol]
	if len(hist) > 0 {
		last := hist[len(hist)-1]
		bid, ask := last.TryExtractQuote()
		if bid > 0 && ask > 0 && ask >= bid {
			return Quote{Symbol: symbol, Bid: bid, Ask: ask, Ts: last.Ts}, nil
		}
	}
	if info, ok := s.infoFor[symbol]; ok && info.Bid > 0 && info.Ask > 0 {
		return Quote{Symbol: symbol, Bid: info.Bid, Ask: info.Ask, Ts: time.Now()}, nil
	}
	return Quote{}, ErrNoTicks
}

func (s *Stub) TicksRange(_ context.Context, symbol string, _ TickRange, limit int) ([]signal.Tick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := s.raw[symbol]
	if limit > 0 && limit < len(hist) {
		hist = hist[len(hist)-limit:]
	}
	return toTicks(hist), nil
}

func (s *Stub) TicksSince(_ context.Context, symbol string, since time.Time) ([]signal.Tick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []RawTick
	for _, t := range s.raw[symbol] {
		if !t.Ts.Before(since) {
			out = append(out, t)
		}
	}
	return toTicks(out), nil
}

func (s *Stub) Positions(_ context.Context, symbol string) ([]Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Position, 0, len(s.positions))
	for _, p := range s.positions {
		if symbol != "" && p.Symbol != symbol {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Stub) OrderSend(_ context.Context, req OrderRequest) (OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.infoFor[req.Symbol]
	if !ok {
		return OrderResult{Ret: RetRejected}, ErrSymbolUnknown
	}
	price := req.Price
	if price == 0 {
		price = info.Ask
		if req.Side == SideSell {
			price = info.Bid
		}
	}

	if ticket, isClose := manualCloseTicket(req.Comment); isClose {
		return s.closePosition(ticket, price, req)
	}

	s.nextTk++
	result := OrderResult{Ticket: s.nextTk, Ret: RetOK, Price: price, Comment: req.Comment}
	s.fills = append(s.fills, result)
	s.positions[result.Ticket] = Position{
		Ticket: result.Ticket, Symbol: req.Symbol, Side: req.Side, Volume: req.Volume,
		OpenPrice: price, StopLoss: req.StopLoss, TakeProfit: req.TakeProfit,
		Comment: req.Comment, Magic: req.Magic,
	}
	s.log.Debug().Uint64("ticket", result.Ticket).Str("symbol", req.Symbol).Msg("stub order filled")
	return result, nil
}

// closePosition settles an outstanding ticket at price, removing it from
// the open set and reporting the realized profit the way a broker's
// manual-close fill would, per spec.md §4.4's manual-close contract.
func (s *Stub) closePosition(ticket uint64, price float64, req OrderRequest) (OrderResult, error) {
	pos, ok := s.positions[ticket]
	if !ok {
		return OrderResult{Ret: RetRejected}, ErrSymbolUnknown
	}
	delete(s.positions, ticket)

	sign := 1.0
	if pos.Side == SideSell {
		sign = -1.0
	}
	profit := (price - pos.OpenPrice) * pos.Volume * sign

	result := OrderResult{Ticket: ticket, Ret: RetOK, Price: price, Profit: profit, Comment: req.Comment}
	s.fills = append(s.fills, result)
	s.log.Debug().Uint64("ticket", ticket).Float64("profit", profit).Msg("stub position closed")
	return result, nil
}

// CloseForTest removes ticket from the open set as if a venue-side event
// (a stop-loss/take-profit fill, or a manual close placed through another
// channel) had closed it, without going through OrderSend. price is not
// recorded anywhere; the watcher prices the close from CurrentQuote. It
// exists for tests exercising the supervisor's position-diffing completion
// watcher, which must notice a close it never itself requested.
func (s *Stub) CloseForTest(ticket uint64, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, ticket)
}

// manualCloseTicket extracts the ticket from a Manual_Close_<ticket> tag,
// reporting whether comment is one at all.
func manualCloseTicket(comment string) (uint64, bool) {
	if !strings.HasPrefix(comment, manualCloseTagPrefix) {
		return 0, false
	}
	var ticket uint64
	for _, r := range comment[len(manualCloseTagPrefix):] {
		if r < '0' || r > '9' {
			return 0, false
		}
		ticket = ticket*10 + uint64(r-'0')
	}
	return ticket, true
}

func toTicks(raw []RawTick) []signal.Tick {
	out := make([]signal.Tick, len(raw))
	for i, r := range raw {
		out[i] = r.ToTick()
	}
	return out
}
