package marketaccess

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/metrics"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/paper"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"
)

const (
	binanceReadLimit   = 1 << 20
	binanceReadTimeout = 30 * time.Second
	binancePingEvery   = 15 * time.Second
	binanceMaxBackoff  = 30 * time.Second
	binanceBufferSize  = 2048
)

type binanceEnvelope struct {
	Stream string       `json:"stream"`
	Data   binanceTrade `json:"data"`
}

type binanceTrade struct {
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

// Binance streams live trade prints from the Binance combined-stream
// websocket and serves them through the Port interface, synthesizing a
// bid/ask spread around each trade print since Binance's public trade
// stream carries no resting quote. Grounded on the teacher's
// internal/exchange Feed.runBinance/consumeBinanceStream.
type Binance struct {
	log      zerolog.Logger
	account  *paper.Account
	syntheticSpreadBps float64

	mu         sync.Mutex
	buffers    map[string][]signal.Tick
	last       map[string]signal.Tick
	nextTicket uint64
	positions  map[uint64]Position
}

// NewBinance constructs a Binance-backed Port. account is used to book
// paper fills for OrderSend, since Binance spot symbols have no MT5-style
// broker settlement behind them. syntheticSpreadBps sets the full bid/ask
// spread (in basis points of price); bid and ask each sit half of it away
// from each trade's price.
func NewBinance(log zerolog.Logger, account *paper.Account, syntheticSpreadBps float64) *Binance {
	if syntheticSpreadBps <= 0 {
		syntheticSpreadBps = 2
	}
	return &Binance{
		log:                log,
		account:            account,
		syntheticSpreadBps: syntheticSpreadBps,
		buffers:            make(map[string][]signal.Tick),
		last:               make(map[string]signal.Tick),
		positions:          make(map[uint64]Position),
	}
}

// Run connects to the requested symbols' trade streams and buffers ticks
// until ctx is canceled, reconnecting with exponential backoff on drops.
func (b *Binance) Run(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return fmt.Errorf("binance venue requires at least one symbol")
	}
	streams := make([]string, len(symbols))
	for i, sym := range symbols {
		streams[i] = strings.ToLower(sym) + "@trade"
	}
	url := fmt.Sprintf("wss://stream.binance.com:9443/stream?streams=%s", strings.Join(streams, "/"))

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := b.consume(ctx, url); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Warn().Err(err).Msg("binance feed disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(binanceMaxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (b *Binance) consume(ctx context.Context, url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	b.log.Info().Str("venue", "binance").Msg("connected market data feed")
	conn.SetReadLimit(binanceReadLimit)
	conn.SetReadDeadline(time.Now().Add(binanceReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(binanceReadTimeout))
		return nil
	})

	pingCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go b.pingLoop(pingCtx, conn)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env binanceEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			b.log.Warn().Err(err).Msg("failed to decode binance message")
			continue
		}
		tick, err := b.decode(env)
		if err != nil {
			b.log.Warn().Err(err).Msg("invalid binance trade")
			continue
		}
		b.buffer(tick)
	}
}

func (b *Binance) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(binancePingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				b.log.Warn().Err(err).Msg("binance ping failed")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (b *Binance) decode(env binanceEnvelope) (signal.Tick, error) {
	symbol := parseBinanceSymbol(env.Stream)
	px, err := strconv.ParseFloat(env.Data.Price, 64)
	if err != nil {
		return signal.Tick{}, fmt.Errorf("parse price: %w", err)
	}
	half := px * b.syntheticSpreadBps / 10000 / 2
	return signal.Tick{
		Symbol: symbol,
		Bid:    px - half,
		Ask:    px + half,
		Ts:     time.UnixMilli(env.Data.TradeTime),
	}, nil
}

func parseBinanceSymbol(stream string) string {
	parts := strings.Split(stream, "@")
	if len(parts) == 0 || parts[0] == "" {
		return strings.ToUpper(stream)
	}
	return strings.ToUpper(parts[0])
}

func (b *Binance) buffer(t signal.Tick) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf := append(b.buffers[t.Symbol], t)
	if len(buf) > binanceBufferSize {
		buf = buf[len(buf)-binanceBufferSize:]
	}
	b.buffers[t.Symbol] = buf
	b.last[t.Symbol] = t
	metrics.TicksTotal.WithLabelValues(t.Symbol).Inc()
}

func (b *Binance) SymbolInfo(_ context.Context, symbol string) (SymbolInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	last, ok := b.last[symbol]
	if !ok {
		return SymbolInfo{}, ErrNoTicks
	}
	return SymbolInfo{Symbol: symbol, Digits: 2, PointSize: 0.01, Bid: last.Bid, Ask: last.Ask}, nil
}

func (b *Binance) CurrentQuote(_ context.Context, symbol string) (Quote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	last, ok := b.last[symbol]
	if !ok {
		return Quote{}, ErrNoTicks
	}
	return Quote{Symbol: symbol, Bid: last.Bid, Ask: last.Ask, Ts: last.Ts}, nil
}

func (b *Binance) TicksRange(_ context.Context, symbol string, _ TickRange, limit int) ([]signal.Tick, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	hist := b.buffers[symbol]
	if limit > 0 && limit < len(hist) {
		hist = hist[len(hist)-limit:]
	}
	out := make([]signal.Tick, len(hist))
	copy(out, hist)
	return out, nil
}

func (b *Binance) TicksSince(_ context.Context, symbol string, since time.Time) ([]signal.Tick, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []signal.Tick
	for _, t := range b.buffers[symbol] {
		if !t.Ts.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Positions returns the tickets this Port has opened and not yet closed,
// so the supervisor's completion watcher can attribute closes for
// Binance-backed bots the same way it does for the stub.
func (b *Binance) Positions(_ context.Context, symbol string) ([]Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Position, 0, len(b.positions))
	for _, p := range b.positions {
		if symbol != "" && p.Symbol != symbol {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (b *Binance) OrderSend(_ context.Context, req OrderRequest) (OrderResult, error) {
	quote, err := b.CurrentQuote(context.Background(), req.Symbol)
	if err != nil {
		return OrderResult{Ret: RetRejected}, err
	}
	price := req.Price
	if price == 0 {
		price = quote.Ask
		if req.Side == SideSell {
			price = quote.Bid
		}
	}

	if ticket, isClose := manualCloseTicket(req.Comment); isClose {
		return b.closePosition(ticket, price, req)
	}

	if b.account != nil {
		side := paper.Side("BUY")
		if req.Side == SideSell {
			side = "SELL"
		}
		if err := b.account.MarketFill(req.Symbol, side, req.Volume, price); err != nil {
			return OrderResult{Ret: RetNoMoney}, err
		}
	}

	b.mu.Lock()
	b.nextTicket++
	ticket := b.nextTicket
	b.positions[ticket] = Position{
		Ticket: ticket, Symbol: req.Symbol, Side: req.Side, Volume: req.Volume,
		OpenPrice: price, StopLoss: req.StopLoss, TakeProfit: req.TakeProfit,
		Comment: req.Comment, Magic: req.Magic,
	}
	b.mu.Unlock()
	return OrderResult{Ticket: ticket, Ret: RetOK, Price: price, Comment: req.Comment}, nil
}

// closePosition settles ticket against the opposing paper fill and reports
// the realized profit, mirroring Stub.closePosition for a venue whose paper
// account nets by symbol rather than by ticket.
func (b *Binance) closePosition(ticket uint64, price float64, req OrderRequest) (OrderResult, error) {
	b.mu.Lock()
	pos, ok := b.positions[ticket]
	if ok {
		delete(b.positions, ticket)
	}
	b.mu.Unlock()
	if !ok {
		return OrderResult{Ret: RetRejected}, fmt.Errorf("binance: unknown ticket %d", ticket)
	}

	if b.account != nil {
		side := paper.Side("SELL")
		if pos.Side == SideSell {
			side = "BUY"
		}
		if err := b.account.MarketFill(pos.Symbol, side, pos.Volume, price); err != nil {
			return OrderResult{Ret: RetNoMoney}, err
		}
	}

	sign := 1.0
	if pos.Side == SideSell {
		sign = -1.0
	}
	profit := (price - pos.OpenPrice) * pos.Volume * sign
	return OrderResult{Ticket: ticket, Ret: RetOK, Price: price, Profit: profit, Comment: req.Comment}, nil
}
