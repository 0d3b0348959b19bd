// Package bot also implements the bot supervisor: the registry that
// creates, identifies, schedules, and terminates bots, routes lifecycle
// and completion events, and aggregates per-bot state for the external
// console. Grounded on the teacher's exchange.Manager-style "owns a map,
// spawns one goroutine per entry, cancels via context" shape, generalized
// from a single exchange connection to an arbitrary fleet of bots, and on
// original_source/backend/trading_bot/hft_manager.py's HFTManager (the
// bot_id -> bot registry, start/stop/get_bot_status surface it exposes to
// the web console).
package bot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/coreerr"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/events"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/marketaccess"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/metrics"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/order"
)

// entry is what the supervisor keeps per running bot: the bot itself and
// the means to cancel its loop at the next suspension point.
type entry struct {
	bot    *Bot
	cancel context.CancelFunc
	done   chan struct{}
}

// Supervisor owns a registry of bot_id -> Bot plus each bot's loop task.
// It is the sole creator/destroyer of Bot objects: nothing outside this
// package holds a Bot reference that outlives Stop, per spec.md §4.1.
type Supervisor struct {
	mu     sync.RWMutex
	bots   map[uint64]*entry
	nextID uint64

	port marketaccess.Port
	bus  *events.Bus
	log  zerolog.Logger

	// lastOpen tracks, per symbol, the open tickets last observed on the
	// venue, so WatchCompletions can detect which tickets disappeared
	// between polls without re-deriving the whole set from scratch.
	watchMu  sync.Mutex
	lastOpen map[string]map[uint64]marketaccess.Position
}

// NewSupervisor constructs an empty Supervisor bound to port and bus.
func NewSupervisor(port marketaccess.Port, bus *events.Bus, log zerolog.Logger) *Supervisor {
	return &Supervisor{
		bots:     make(map[uint64]*entry),
		port:     port,
		bus:      bus,
		log:      log,
		lastOpen: make(map[string]map[uint64]marketaccess.Position),
	}
}

// Start validates cfg, registers a new Bot, and schedules its loop. The
// bot enters RUNNING within one scheduling quantum (the goroutine is
// started before Start returns; the bot's first cycle runs on its own
// ticker). Fails with ErrConfigInvalid or ErrMarketAccessUnavailable
// without registering anything.
func (s *Supervisor) Start(ctx context.Context, cfg Config) (uint64, error) {
	if err := validateConfig(cfg); err != nil {
		return 0, err
	}
	if _, err := s.port.SymbolInfo(ctx, cfg.Symbol); err != nil {
		return 0, fmt.Errorf("supervisor: %w: %v", coreerr.ErrMarketAccessUnavailable, err)
	}

	id := atomic.AddUint64(&s.nextID, 1)
	b := New(id, cfg, s.port, s.bus, s.log)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.bots[id] = &entry{bot: b, cancel: cancel, done: done}
	s.mu.Unlock()
	metrics.ActiveBots.Inc()

	go func() {
		defer close(done)
		b.Run(runCtx)
		s.mu.Lock()
		delete(s.bots, id)
		s.mu.Unlock()
		metrics.ActiveBots.Dec()
	}()

	return id, nil
}

// validateConfig enforces the required-fields/ranges check spec.md §4.1
// requires of start. Normalize already applies most of this; Start is
// also reachable with a Config built directly (e.g. in tests), so the
// checks are repeated here rather than trusted to have run upstream.
func validateConfig(cfg Config) error {
	if cfg.Symbol == "" {
		return fmt.Errorf("supervisor: %w: symbol is required", coreerr.ErrConfigInvalid)
	}
	if cfg.Volume <= 0 {
		return fmt.Errorf("supervisor: %w: volume must be positive", coreerr.ErrConfigInvalid)
	}
	if cfg.LoopInterval < 0 {
		return fmt.Errorf("supervisor: %w: loop interval must not be negative", coreerr.ErrConfigInvalid)
	}
	return nil
}

// Stop cancels bot_id's loop at its next suspension point and removes it
// from the registry once its finalizer has run. Idempotent: stopping an
// id that is not (or no longer) registered is a no-op, never an error, so
// a caller racing a natural exit never sees a spurious failure.
func (s *Supervisor) Stop(botID uint64) {
	s.mu.RLock()
	e, ok := s.bots[botID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	e.cancel()
	<-e.done
}

// ListActive returns a snapshot of every currently registered bot. Reads
// are snapshot-based: the returned slice is a point-in-time copy safe to
// hand to an external caller (the console's reconnection path), per
// spec.md §6's "persisted state" note.
func (s *Supervisor) ListActive() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Snapshot, 0, len(s.bots))
	for _, e := range s.bots {
		out = append(out, e.bot.Snapshot())
	}
	return out
}

// GetDetails returns botID's current snapshot, or false if it is not
// registered (already stopped, or never started).
func (s *Supervisor) GetDetails(botID uint64) (Snapshot, bool) {
	s.mu.RLock()
	e, ok := s.bots[botID]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return e.bot.Snapshot(), true
}

// ForcePerformanceUpdate immediately republishes botID's current
// performance snapshot as a bot_update event, bypassing the normal
// once-per-cycle cadence — the console's manual-refresh affordance.
func (s *Supervisor) ForcePerformanceUpdate(botID uint64) error {
	s.mu.RLock()
	e, ok := s.bots[botID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("supervisor: bot %d not found", botID)
	}
	snap := e.bot.Snapshot()
	s.bus.Publish(events.Event{
		BotID:   botID,
		Kind:    events.BotUpdate,
		Ts:      time.Now(),
		Symbol:  snap.Symbol,
		Payload: map[string]any{"snapshot": snap},
	})
	return nil
}

// CloseOrder routes a manual-close request to botID's own goroutine-owned
// executor, the console's equivalent of the original controller's
// manual-close button. Returns an error if botID is not registered or the
// ticket is not one of its open orders.
func (s *Supervisor) CloseOrder(ctx context.Context, botID, ticket uint64) error {
	s.mu.RLock()
	e, ok := s.bots[botID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("supervisor: bot %d not found", botID)
	}
	return e.bot.CloseTicket(ctx, ticket)
}

// WatchCompletions runs until ctx is canceled, polling the Market Access
// Port's open positions for every symbol currently owned by a running bot
// and routing any ticket that has disappeared since the last poll back to
// its owning bot as a Completion, per spec.md §4.1's no-shared-memory
// attribution contract: ownership is recovered purely from the order tag
// (order.ParseTag), never from a map kept by the executor.
//
// This is the supervisor's side of the "order-completion notifications
// targeted at its identity" exception to single-writer BotState that
// spec.md §3/§5 carve out; everything else about BotState remains
// owned by the bot's own loop goroutine.
func (s *Supervisor) WatchCompletions(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollCompletions(ctx)
		}
	}
}

func (s *Supervisor) pollCompletions(ctx context.Context) {
	for _, symbol := range s.activeSymbols() {
		positions, err := s.port.Positions(ctx, symbol)
		if err != nil {
			s.log.Debug().Err(err).Str("symbol", symbol).Msg("completion watcher: positions query failed")
			continue
		}

		open := make(map[uint64]marketaccess.Position, len(positions))
		for _, p := range positions {
			open[p.Ticket] = p
		}

		s.watchMu.Lock()
		previous := s.lastOpen[symbol]
		s.lastOpen[symbol] = open
		s.watchMu.Unlock()

		for ticket, pos := range previous {
			if _, stillOpen := open[ticket]; stillOpen {
				continue
			}
			s.routeCompletion(ctx, symbol, ticket, pos)
		}
	}
}

func (s *Supervisor) activeSymbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{}, len(s.bots))
	out := make([]string, 0, len(s.bots))
	for _, e := range s.bots {
		sym := e.bot.cfg.Symbol
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}

func (s *Supervisor) routeCompletion(ctx context.Context, symbol string, ticket uint64, pos marketaccess.Position) {
	tag, err := order.ParseTag(pos.Comment)
	if err != nil {
		return // not one of ours (or a manual-close leg); nothing to route
	}

	s.mu.RLock()
	e, ok := s.bots[tag.BotID]
	s.mu.RUnlock()
	if !ok {
		return // bot already stopped; its counters no longer exist
	}

	quote, err := s.port.CurrentQuote(ctx, symbol)
	if err != nil {
		s.log.Debug().Err(err).Str("symbol", symbol).Msg("completion watcher: could not price close")
		return
	}
	closePrice := quote.Bid
	if pos.Side == marketaccess.SideSell {
		closePrice = quote.Ask
	}
	e.bot.HandleCompletion(Completion{Ticket: ticket, ClosePrice: closePrice})
}
