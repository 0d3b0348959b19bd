package marketaccess

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/paper"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"
)

const dexscreenerDefaultBaseURL = "https://api.dexscreener.com"

type dexscreenerPairsResponse struct {
	Pairs []dexscreenerPair `json:"pairs"`
	Pair  *dexscreenerPair  `json:"pair"`
}

type dexscreenerPair struct {
	PriceUsd    string          `json:"priceUsd"`
	PriceNative string          `json:"priceNative"`
	Txns        dexscreenerTxns `json:"txns"`
}

type dexscreenerTxns struct {
	M5 dexscreenerTxn `json:"m5"`
}

type dexscreenerTxn struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

func (r *dexscreenerPairsResponse) firstPair() (*dexscreenerPair, bool) {
	if len(r.Pairs) > 0 {
		return &r.Pairs[0], true
	}
	if r.Pair != nil {
		return r.Pair, true
	}
	return nil, false
}

// Target identifies a Dexscreener pair to poll: a chain and a pair
// contract address, addressed by a human-readable alias symbol.
type Target struct {
	Alias   string
	Chain   string
	Address string
}

// DexScreener polls the Dexscreener HTTP API on a fixed interval and serves
// the resulting prices through the Port interface, synthesizing a spread
// from the recent buy/sell imbalance the way the teacher's
// determineDexScreenerSide heuristic did. Grounded on
// internal/exchange/feed_dexscreener.go and discovery.go.
type DexScreener struct {
	log          zerolog.Logger
	client       *http.Client
	baseURL      string
	pollInterval time.Duration
	account      *paper.Account

	mu         sync.Mutex
	targets    map[string]Target // by alias
	last       map[string]signal.Tick
	history    map[string][]signal.Tick
	nextTicket uint64
	positions  map[uint64]Position
}

// NewDexScreener constructs a DexScreener-backed Port.
func NewDexScreener(log zerolog.Logger, baseURL string, pollInterval time.Duration, account *paper.Account) *DexScreener {
	if baseURL == "" {
		baseURL = dexscreenerDefaultBaseURL
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &DexScreener{
		log:          log,
		client:       &http.Client{Timeout: 10 * time.Second},
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		pollInterval: pollInterval,
		account:      account,
		targets:      make(map[string]Target),
		last:         make(map[string]signal.Tick),
		history:      make(map[string][]signal.Tick),
		positions:    make(map[uint64]Position),
	}
}

// Watch registers a pair to poll under the given alias.
func (d *DexScreener) Watch(alias, chain, address string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.targets[alias] = Target{Alias: alias, Chain: chain, Address: address}
}

// Run polls every registered target on pollInterval until ctx is canceled.
func (d *DexScreener) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	d.pollAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.pollAll(ctx)
		}
	}
}

func (d *DexScreener) pollAll(ctx context.Context) {
	d.mu.Lock()
	targets := make([]Target, 0, len(d.targets))
	for _, t := range d.targets {
		targets = append(targets, t)
	}
	d.mu.Unlock()

	for _, target := range targets {
		tick, err := d.fetch(ctx, target)
		if err != nil {
			d.log.Warn().Err(err).Str("symbol", target.Alias).Msg("dexscreener fetch failed")
			continue
		}
		d.mu.Lock()
		d.last[target.Alias] = tick
		hist := append(d.history[target.Alias], tick)
		if len(hist) > 2048 {
			hist = hist[len(hist)-2048:]
		}
		d.history[target.Alias] = hist
		d.mu.Unlock()
	}
}

func (d *DexScreener) fetch(ctx context.Context, target Target) (signal.Tick, error) {
	url := fmt.Sprintf("%s/latest/dex/pairs/%s/%s", d.baseURL, target.Chain, target.Address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return signal.Tick{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "tradepulse-controller/1.0")
	resp, err := d.client.Do(req)
	if err != nil {
		return signal.Tick{}, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return signal.Tick{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var payload dexscreenerPairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return signal.Tick{}, fmt.Errorf("decode response: %w", err)
	}
	pair, ok := payload.firstPair()
	if !ok {
		return signal.Tick{}, fmt.Errorf("no pair data returned")
	}
	price, err := parseDexScreenerPrice(pair)
	if err != nil {
		return signal.Tick{}, err
	}
	spread := syntheticSpread(pair, price)
	return signal.Tick{Symbol: target.Alias, Bid: price - spread/2, Ask: price + spread/2, Ts: time.Now().UTC()}, nil
}

func parseDexScreenerPrice(pair *dexscreenerPair) (float64, error) {
	if pair.PriceUsd != "" {
		if px, err := strconv.ParseFloat(pair.PriceUsd, 64); err == nil && px > 0 {
			return px, nil
		}
	}
	if pair.PriceNative != "" {
		if px, err := strconv.ParseFloat(pair.PriceNative, 64); err == nil && px > 0 {
			return px, nil
		}
	}
	return 0, fmt.Errorf("pair missing price")
}

// syntheticSpread widens with order-flow imbalance in the 5-minute window,
// a rough proxy for true bid/ask since Dexscreener only reports last trade
// price, not a resting book.
func syntheticSpread(pair *dexscreenerPair, price float64) float64 {
	total := pair.Txns.M5.Buys + pair.Txns.M5.Sells
	base := price * 0.001 // 10 bps floor
	if total == 0 {
		return base
	}
	imbalance := math.Abs(float64(pair.Txns.M5.Buys-pair.Txns.M5.Sells)) / float64(total)
	return base * (1 + imbalance)
}

func (d *DexScreener) SymbolInfo(_ context.Context, symbol string) (SymbolInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.last[symbol]
	if !ok {
		return SymbolInfo{}, ErrNoTicks
	}
	return SymbolInfo{Symbol: symbol, Digits: 8, PointSize: 1e-8, Bid: last.Bid, Ask: last.Ask}, nil
}

func (d *DexScreener) CurrentQuote(_ context.Context, symbol string) (Quote, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.last[symbol]
	if !ok {
		return Quote{}, ErrNoTicks
	}
	return Quote{Symbol: symbol, Bid: last.Bid, Ask: last.Ask, Ts: last.Ts}, nil
}

func (d *DexScreener) TicksRange(_ context.Context, symbol string, _ TickRange, limit int) ([]signal.Tick, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	hist := d.history[symbol]
	if limit > 0 && limit < len(hist) {
		hist = hist[len(hist)-limit:]
	}
	out := make([]signal.Tick, len(hist))
	copy(out, hist)
	return out, nil
}

func (d *DexScreener) TicksSince(_ context.Context, symbol string, since time.Time) ([]signal.Tick, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []signal.Tick
	for _, t := range d.history[symbol] {
		if !t.Ts.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Positions returns the tickets this Port has opened and not yet closed,
// so the supervisor's completion watcher can attribute closes for
// DexScreener-backed bots the same way it does for the stub.
func (d *DexScreener) Positions(_ context.Context, symbol string) ([]Position, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Position, 0, len(d.positions))
	for _, p := range d.positions {
		if symbol != "" && p.Symbol != symbol {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (d *DexScreener) OrderSend(ctx context.Context, req OrderRequest) (OrderResult, error) {
	quote, err := d.CurrentQuote(ctx, req.Symbol)
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
		return d.closePosition(ticket, price, req)
	}

	if d.account != nil {
		side := paper.Buy
		if req.Side == SideSell {
			side = paper.Sell
		}
		if err := d.account.MarketFill(req.Symbol, side, req.Volume, price); err != nil {
			return OrderResult{Ret: RetNoMoney}, err
		}
	}

	d.mu.Lock()
	d.nextTicket++
	ticket := d.nextTicket
	d.positions[ticket] = Position{
		Ticket: ticket, Symbol: req.Symbol, Side: req.Side, Volume: req.Volume,
		OpenPrice: price, StopLoss: req.StopLoss, TakeProfit: req.TakeProfit,
		Comment: req.Comment, Magic: req.Magic,
	}
	d.mu.Unlock()
	return OrderResult{Ticket: ticket, Ret: RetOK, Price: price, Comment: req.Comment}, nil
}

// closePosition settles ticket against the opposing paper fill and reports
// the realized profit, mirroring Stub.closePosition.
func (d *DexScreener) closePosition(ticket uint64, price float64, req OrderRequest) (OrderResult, error) {
	d.mu.Lock()
	pos, ok := d.positions[ticket]
	if ok {
		delete(d.positions, ticket)
	}
	d.mu.Unlock()
	if !ok {
		return OrderResult{Ret: RetRejected}, fmt.Errorf("dexscreener: unknown ticket %d", ticket)
	}

	if d.account != nil {
		side := paper.Sell
		if pos.Side == SideSell {
			side = paper.Buy
		}
		if err := d.account.MarketFill(pos.Symbol, side, pos.Volume, price); err != nil {
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
