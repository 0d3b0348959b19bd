// Package events implements the multi-producer, per-subscriber event bus
// bots and the supervisor publish telemetry onto. Grounded on the
// teacher's channel-based Feed.Run(ctx, out chan<- Tick) pattern and on
// hft_manager.py's update_callbacks fan-out, replacing the latter's list
// of Python closures with Go channels so per-bot ordering is a property of
// the channel itself rather than something every subscriber has to
// preserve by hand.
package events

import (
	"context"
	"sync"
	"time"
)

// Kind names the event variants a bot or the supervisor can publish.
type Kind string

const (
	BotStarted     Kind = "bot_started"
	BotStopped     Kind = "bot_stopped"
	BotUpdate      Kind = "bot_update"
	TradeExecuted  Kind = "trade_executed"
	TradeCompleted Kind = "trade_completed"
	TradeError     Kind = "trade_error"
)

// Event is a single telemetry record. Fields beyond BotID/Kind/Ts are
// payload-specific and left loose (map) rather than modeled as one struct
// per kind, since subscribers (the operator console, tests) only ever
// need a handful of keys per kind and a closed type hierarchy here would
// buy nothing a log line doesn't already give.
type Event struct {
	BotID   uint64
	Kind    Kind
	Ts      time.Time
	Symbol  string
	Payload map[string]any
}

// subscriber holds one consumer's buffered channel. Per-bot ordering comes
// from Publish holding the bus's per-bot lock while it delivers a bot's
// event to every subscriber channel.
type subscriber struct {
	ch chan Event
}

// Bus fans out events from many producer goroutines (one per bot, plus the
// supervisor) to many subscriber channels. Events for a given bot are
// delivered to every subscriber in the order they were published; there is
// no ordering guarantee across different bots.
type Bus struct {
	mu          sync.RWMutex
	subscribers []*subscriber
	botLocks    sync.Map // botID -> *sync.Mutex, serializes publishes per bot
}

// NewBus constructs an empty Bus.
func NewBus() *Bus { return &Bus{} }

// Subscribe registers a new consumer with the given channel buffer size and
// returns a receive-only channel of events. The channel is closed when ctx
// is canceled.
func (b *Bus) Subscribe(ctx context.Context, buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 32
	}
	sub := &subscriber{ch: make(chan Event, buffer)}
	b.mu.Lock()
	b.subscribers = append(b.subscribers, sub)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subscribers {
			if s == sub {
				b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
				break
			}
		}
		close(sub.ch)
	}()
	return sub.ch
}

// Publish fans ev out to every current subscriber. A slow subscriber whose
// buffer is full causes Publish to drop the event for that subscriber
// rather than block the publishing bot's loop — telemetry must never
// backpressure trading.
func (b *Bus) Publish(ev Event) {
	lockAny, _ := b.botLocks.LoadOrStore(ev.BotID, &sync.Mutex{})
	lock := lockAny.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}
