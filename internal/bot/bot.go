package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/coreerr"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/events"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/marketaccess"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/metrics"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/order"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/protection"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/strategy"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/tickpipeline"
)

// State is the live snapshot of a running bot, read by the supervisor's
// get_details-equivalent API. Only the bot's own loop goroutine mutates
// the Cycles/LastSignal/VenueErrors fields; a small mutex guards those so
// Snapshot (called from the supervisor's goroutine) never races with it.
// Protection has its own internal lock and is additionally written by
// order-completion notifications routed in from outside the loop, per the
// spec's exception to single-writer state.
type State struct {
	ID         uint64
	Config     Config
	Started    time.Time
	Protection *protection.Counters

	mu          sync.Mutex
	cycles      uint64
	lastSignal  string
	venueErrors int
	openOrders  map[uint64]openOrder
}

// openOrder is what the bot remembers about a ticket it has submitted but
// has not yet seen completed, enough to price a completion if the venue
// never reports a closing fill price directly.
type openOrder struct {
	Direction  signal.Kind
	EntryPrice float64
	Volume     float64
}

// Snapshot is a read-only copy of State safe to hand to a caller outside
// the bot's own goroutine.
type Snapshot struct {
	ID          uint64
	Symbol      string
	Strategy    string
	Started     time.Time
	Cycles      uint64
	LastSignal  string
	VenueErrors int
	Protection  protection.Snapshot
}

// Bot owns one goroutine's worth of the cooperative-suspension analysis
// loop for a single symbol/strategy pairing.
type Bot struct {
	state    *State
	cfg      Config
	port     marketaccess.Port
	fetcher  *tickpipeline.Fetcher
	strat    strategy.Strategy
	executor *order.Executor
	gates    *protection.Machine
	bus      *events.Bus
	log      zerolog.Logger
}

// New constructs a Bot. id must be unique within the owning supervisor.
func New(id uint64, cfg Config, port marketaccess.Port, bus *events.Bus, log zerolog.Logger) *Bot {
	log = log.With().Uint64("bot_id", id).Str("symbol", cfg.Symbol).Logger()
	return &Bot{
		state: &State{
			ID:         id,
			Config:     cfg,
			Started:    time.Now(),
			Protection: protection.NewCounters(time.Now()),
			openOrders: make(map[uint64]openOrder),
		},
		cfg:      cfg,
		port:     port,
		fetcher:  tickpipeline.NewFetcher(port, log, 200, 10*time.Second),
		strat:    strategy.Build(cfg.Strategy),
		executor: order.NewExecutor(port, log),
		gates:    protection.NewMachine(cfg.Limits),
		bus:      bus,
		log:      log,
	}
}

// ID returns the bot's identity, the attribution key embedded in every
// order tag it places.
func (b *Bot) ID() uint64 { return b.state.ID }

// Snapshot returns a read-only copy of the bot's current state.
func (b *Bot) Snapshot() Snapshot {
	b.state.mu.Lock()
	cycles, lastSignal, venueErrors := b.state.cycles, b.state.lastSignal, b.state.venueErrors
	b.state.mu.Unlock()
	return Snapshot{
		ID:          b.state.ID,
		Symbol:      b.cfg.Symbol,
		Strategy:    b.strat.Name(),
		Started:     b.state.Started,
		Cycles:      cycles,
		LastSignal:  lastSignal,
		VenueErrors: venueErrors,
		Protection:  b.state.Protection.Snapshot(),
	}
}

// Run executes the loop until ctx is canceled. Suspension happens only at
// the tick-fetch call and the inter-cycle sleep, per the concurrency model:
// no lock is held across either suspension point. The only other writer of
// b.state is HandleCompletion, called from the supervisor's completion
// watcher, which goes through the state's own locks.
func (b *Bot) Run(ctx context.Context) {
	b.publish(events.BotStarted, nil)
	defer b.publish(events.BotStopped, nil)

	interval := b.cfg.LoopInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.cycle(ctx)
		}
	}
}

func (b *Bot) cycle(ctx context.Context) {
	b.state.mu.Lock()
	b.state.cycles++
	b.state.mu.Unlock()

	result, err := b.fetcher.Fetch(ctx, b.cfg.Symbol)
	if err != nil {
		b.bumpVenueErrors()
		b.publish(events.TradeError, map[string]any{"reason": err.Error()})
		return
	}
	b.resetVenueErrors()

	var quote signal.Tick
	if result.Window.Len() > 0 {
		quote = result.Window.Last()
	}
	sig, err := b.strat.Evaluate(result.Window, quote)
	windowLen := result.Window.Len()
	if err != nil {
		b.log.Error().Err(err).Int("window_len", windowLen).Msg("strategy evaluation failed")
		return
	}
	if sig == nil {
		b.log.Debug().Str("strategy", b.strat.Name()).Int("window_len", windowLen).Msg("strategy suppressed signal")
		return
	}
	b.log.Debug().Str("strategy", b.strat.Name()).Int("window_len", windowLen).
		Str("reason", sig.Reason).Float64("confidence", sig.Confidence).Str("kind", sig.Kind.String()).
		Msg("strategy emitted signal")
	b.setLastSignal(sig.Reason)

	info, err := b.port.SymbolInfo(ctx, b.cfg.Symbol)
	if err != nil {
		b.bumpVenueErrors()
		return
	}
	mkt, err := b.port.CurrentQuote(ctx, b.cfg.Symbol)
	if err != nil {
		b.bumpVenueErrors()
		return
	}
	spreadPts := (mkt.Ask - mkt.Bid) / info.PointSize

	b.gates.MarkUnrealized(b.state.Protection, b.unrealizedPnL(mkt.Bid, mkt.Ask))
	if err := b.gates.Check(b.state.Protection, time.Now(), spreadPts, sig.Confidence); err != nil {
		b.logGateRejection(err)
		return
	}

	mode := b.cfg.Mode
	if mode == "" {
		mode = "HFT"
	}
	entryPrice := mkt.Ask
	if sig.Kind == signal.Sell {
		entryPrice = mkt.Bid
	}
	req := order.Request{
		BotID:          b.state.ID,
		Mode:           mode,
		Symbol:         b.cfg.Symbol,
		Direction:      sig.Kind,
		Volume:         b.cfg.Volume,
		EntryPrice:     entryPrice,
		StopLossPips:   b.cfg.StopLossPips,
		TakeProfitPips: b.cfg.TakeProfitPips,
	}
	metrics.OrdersSubmitted.WithLabelValues(b.cfg.Symbol, sig.Kind.String()).Inc()
	res, err := b.executor.Submit(ctx, req)
	if err != nil {
		metrics.OrdersRejected.WithLabelValues(b.cfg.Symbol, sig.Kind.String()).Inc()
		b.publish(events.TradeError, map[string]any{"reason": err.Error()})
		return
	}
	metrics.OrdersExecuted.WithLabelValues(b.cfg.Symbol, sig.Kind.String()).Inc()
	b.gates.RecordSubmission(b.state.Protection, time.Now())
	b.trackOpenOrder(res.Ticket, sig.Kind, res.Price)
	b.publish(events.TradeExecuted, map[string]any{"ticket": res.Ticket, "price": res.Price})
}

func (b *Bot) bumpVenueErrors() {
	b.state.mu.Lock()
	b.state.venueErrors++
	b.state.mu.Unlock()
}

func (b *Bot) resetVenueErrors() {
	b.state.mu.Lock()
	b.state.venueErrors = 0
	b.state.mu.Unlock()
}

func (b *Bot) setLastSignal(reason string) {
	b.state.mu.Lock()
	b.state.lastSignal = reason
	b.state.mu.Unlock()
}

// unrealizedPnL marks every currently open ticket to market against the
// venue's current bid/ask, the mark-to-market half of the realized+
// unrealized daily cap in spec.md §4.5. A Buy marks at the bid (what it
// would sell for right now); a Sell marks at the ask (what it would cost
// to buy back).
func (b *Bot) unrealizedPnL(bid, ask float64) float64 {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	var total float64
	for _, ord := range b.state.openOrders {
		price, sign := bid, 1.0
		if ord.Direction == signal.Sell {
			price, sign = ask, -1.0
		}
		total += (price - ord.EntryPrice) * ord.Volume * sign
	}
	return total
}

func (b *Bot) trackOpenOrder(ticket uint64, dir signal.Kind, entry float64) {
	b.state.mu.Lock()
	b.state.openOrders[ticket] = openOrder{Direction: dir, EntryPrice: entry, Volume: b.cfg.Volume}
	b.state.mu.Unlock()
}

// Completion is an order-completion notification routed in from outside
// the bot's own loop goroutine — the supervisor's completion watcher
// parses the tag of a position that dropped out of the venue's open set
// and delivers it here via the bot's identity, per spec.md §4.1/§6. It is
// the one exception to single-writer BotState the concurrency model (§5)
// allows.
type Completion struct {
	Ticket      uint64
	ClosePrice  float64
	ProfitKnown bool // true when the venue reported a profit figure directly
	Profit      float64
}

// HandleCompletion updates the protection machine's streak/P&L counters
// for a closed position and publishes trade_completed. If the venue
// reported a profit figure (a manual close's OrderResult.Profit), that is
// used; otherwise pnl is recomputed from the tracked entry price and the
// close price, per spec.md §9's open question on manual-close reporting.
func (b *Bot) HandleCompletion(c Completion) {
	b.state.mu.Lock()
	ord, ok := b.state.openOrders[c.Ticket]
	if ok {
		delete(b.state.openOrders, c.Ticket)
	}
	b.state.mu.Unlock()
	if !ok {
		return
	}

	pnl := c.Profit
	if !c.ProfitKnown {
		sign := 1.0
		if ord.Direction == signal.Sell {
			sign = -1.0
		}
		pnl = (c.ClosePrice - ord.EntryPrice) * ord.Volume * sign
	}
	win := pnl >= 0

	b.gates.RecordCompletion(b.state.Protection, time.Now(), win, pnl)
	b.publish(events.TradeCompleted, map[string]any{"ticket": c.Ticket, "pnl": pnl, "win": win})
}

// CloseTicket manually closes an open order at the current crossing quote
// via the executor's opposite-side deal, per spec.md §4.4's manual-close
// contract, and folds the venue-reported profit into the protection
// machine directly — the close itself reports the profit, so
// HandleCompletion does not need to recompute it from the tracked entry
// price the way it must for a venue-detected completion.
func (b *Bot) CloseTicket(ctx context.Context, ticket uint64) error {
	b.state.mu.Lock()
	ord, ok := b.state.openOrders[ticket]
	b.state.mu.Unlock()
	if !ok {
		return fmt.Errorf("bot: ticket %d is not open", ticket)
	}

	side := marketaccess.SideBuy
	if ord.Direction == signal.Sell {
		side = marketaccess.SideSell
	}
	result, err := b.executor.Close(ctx, b.cfg.Symbol, ticket, side, ord.Volume)
	if err != nil {
		return err
	}
	b.HandleCompletion(Completion{Ticket: ticket, ClosePrice: result.Price, ProfitKnown: true, Profit: result.Profit})
	return nil
}

func (b *Bot) logGateRejection(err error) {
	switch coreerr.Classify(err) {
	case coreerr.ClassGate:
		b.log.Debug().Err(err).Msg("order suppressed by protection gate")
	default:
		b.log.Warn().Err(err).Msg("order rejected before submission")
	}
	if errors.Is(err, coreerr.ErrProtectionPaused) {
		metrics.ProtectionTrips.WithLabelValues(b.cfg.Symbol, "paused").Inc()
	}
}

func (b *Bot) publish(kind events.Kind, payload map[string]any) {
	if b.bus == nil {
		return
	}
	b.bus.Publish(events.Event{BotID: b.state.ID, Kind: kind, Ts: time.Now(), Symbol: b.cfg.Symbol, Payload: payload})
}
