package marketaccess

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"
)

// Mint pairs a symbol alias with the Solana mint addresses Jupiter quotes
// against, and the decimal precision of each mint's smallest unit.
type Mint struct {
	Symbol      string
	InputMint   string
	OutputMint  string
	InDecimals  uint8
	OutDecimals uint8
}

type jupiterQuote struct {
	InAmount    string `json:"inAmount"`
	OutAmount   string `json:"outAmount"`
	SlippageBps int    `json:"slippageBps"`
}

// Jupiter executes real on-chain swaps against Jupiter's aggregator for
// Solana-native symbols, the venue the spec's abstract Market Access Port
// uses for DEX-only instruments that have no MT5-style broker behind them
// at all. Grounded on internal/dex/solana/jupiter.go and wallet.go.
type Jupiter struct {
	log    zerolog.Logger
	base   string
	rpc    *rpc.Client
	owner  solana.PrivateKey
	commit rpc.CommitmentType
	http   *http.Client

	mu    sync.Mutex
	mints map[string]Mint
	last  map[string]signal.Tick
}

// LoadWallet resolves the Jupiter signing key, preferring an explicit
// configFileKey (the config file's wallet.private_key_base58, meant for
// local/dev use) and falling back to a best-effort .env load and the
// SOLANA_PRIVATE_KEY_BASE58 environment variable otherwise.
func LoadWallet(configFileKey string) (solana.PrivateKey, error) {
	if configFileKey != "" {
		return solana.PrivateKeyFromBase58(configFileKey)
	}
	_ = godotenv.Load()
	b58 := os.Getenv("SOLANA_PRIVATE_KEY_BASE58")
	if b58 == "" {
		return nil, errors.New("SOLANA_PRIVATE_KEY_BASE58 not set")
	}
	return solana.PrivateKeyFromBase58(b58)
}

// NewJupiter constructs a Jupiter-backed Port.
func NewJupiter(log zerolog.Logger, rpcURL, base string, owner solana.PrivateKey, commitment string) *Jupiter {
	commit := rpc.CommitmentConfirmed
	switch commitment {
	case "processed":
		commit = rpc.CommitmentProcessed
	case "finalized":
		commit = rpc.CommitmentFinalized
	}
	return &Jupiter{
		log:    log,
		base:   base,
		rpc:    rpc.New(rpcURL),
		owner:  owner,
		commit: commit,
		http:   &http.Client{Timeout: 8 * time.Second},
		mints:  make(map[string]Mint),
		last:   make(map[string]signal.Tick),
	}
}

// Watch registers a symbol's mint pair so quote/order calls know which
// Jupiter route to request.
func (j *Jupiter) Watch(m Mint) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.mints[m.Symbol] = m
}

func (j *Jupiter) quote(ctx context.Context, m Mint, amount uint64, slippageBps int) (*jupiterQuote, error) {
	q := url.Values{}
	q.Set("inputMint", m.InputMint)
	q.Set("outputMint", m.OutputMint)
	q.Set("amount", fmt.Sprintf("%d", amount))
	q.Set("slippageBps", fmt.Sprintf("%d", slippageBps))
	q.Set("onlyDirectRoutes", "false")
	u := j.base + "/v6/quote?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := j.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter quote status %d", resp.StatusCode)
	}
	var out jupiterQuote
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshQuote fetches a fresh 1-unit quote for symbol and caches it as the
// current tick, the poll-driven analogue of a resting bid/ask for a venue
// that has neither.
func (j *Jupiter) RefreshQuote(ctx context.Context, symbol string) error {
	j.mu.Lock()
	m, ok := j.mints[symbol]
	j.mu.Unlock()
	if !ok {
		return ErrSymbolUnknown
	}
	unit := uint64(1)
	for i := uint8(0); i < m.InDecimals; i++ {
		unit *= 10
	}
	q, err := j.quote(ctx, m, unit, 50)
	if err != nil {
		return err
	}
	price, err := priceFromQuote(q, m)
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.last[symbol] = signal.Tick{Symbol: symbol, Bid: price * 0.999, Ask: price * 1.001, Ts: time.Now().UTC()}
	j.mu.Unlock()
	return nil
}

func priceFromQuote(q *jupiterQuote, m Mint) (float64, error) {
	var in, out float64
	if _, err := fmt.Sscan(q.InAmount, &in); err != nil {
		return 0, fmt.Errorf("parse in amount: %w", err)
	}
	if _, err := fmt.Sscan(q.OutAmount, &out); err != nil {
		return 0, fmt.Errorf("parse out amount: %w", err)
	}
	if out == 0 {
		return 0, fmt.Errorf("zero out amount")
	}
	scale := pow10(int(m.OutDecimals) - int(m.InDecimals))
	return in / out * scale, nil
}

func pow10(exp int) float64 {
	v := 1.0
	if exp >= 0 {
		for i := 0; i < exp; i++ {
			v *= 10
		}
		return v
	}
	for i := 0; i < -exp; i++ {
		v /= 10
	}
	return v
}

func (j *Jupiter) SymbolInfo(_ context.Context, symbol string) (SymbolInfo, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	last, ok := j.last[symbol]
	if !ok {
		return SymbolInfo{}, ErrNoTicks
	}
	return SymbolInfo{Symbol: symbol, Digits: 6, PointSize: 1e-6, Bid: last.Bid, Ask: last.Ask}, nil
}

func (j *Jupiter) CurrentQuote(_ context.Context, symbol string) (Quote, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	last, ok := j.last[symbol]
	if !ok {
		return Quote{}, ErrNoTicks
	}
	return Quote{Symbol: symbol, Bid: last.Bid, Ask: last.Ask, Ts: last.Ts}, nil
}

func (j *Jupiter) TicksRange(_ context.Context, symbol string, _ TickRange, _ int) ([]signal.Tick, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	last, ok := j.last[symbol]
	if !ok {
		return nil, nil
	}
	return []signal.Tick{last}, nil
}

func (j *Jupiter) TicksSince(ctx context.Context, symbol string, since time.Time) ([]signal.Tick, error) {
	ticks, err := j.TicksRange(ctx, symbol, RangeAll, 0)
	if err != nil || len(ticks) == 0 {
		return ticks, err
	}
	if ticks[0].Ts.Before(since) {
		return nil, nil
	}
	return ticks, nil
}

func (j *Jupiter) Positions(_ context.Context, _ string) ([]Position, error) {
	// Spot swaps settle immediately; there is no resting position to report.
	return nil, nil
}

// OrderSend requests a fresh quote and submits the signed swap transaction
// over RPC, the full construct-sign-send pipeline, grounded on the
// teacher's JupiterClient.BuildAndSendSwap.
func (j *Jupiter) OrderSend(ctx context.Context, req OrderRequest) (OrderResult, error) {
	j.mu.Lock()
	m, ok := j.mints[req.Symbol]
	j.mu.Unlock()
	if !ok {
		return OrderResult{Ret: RetRejected}, ErrSymbolUnknown
	}

	amount := uint64(req.Volume)
	if req.Side == SideSell {
		m.InputMint, m.OutputMint = m.OutputMint, m.InputMint
	}
	q, err := j.quote(ctx, m, amount, 50)
	if err != nil {
		return OrderResult{Ret: RetRejected}, err
	}

	payload := map[string]any{
		"userPublicKey":             j.owner.PublicKey().String(),
		"wrapAndUnwrapSol":          true,
		"asLegacyTransaction":       false,
		"useTokenLedger":            false,
		"prioritizationFeeLamports": 0,
		"quoteResponse":             q,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return OrderResult{Ret: RetRejected}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, j.base+"/v6/swap", bytes.NewReader(body))
	if err != nil {
		return OrderResult{Ret: RetRejected}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := j.http.Do(httpReq)
	if err != nil {
		return OrderResult{Ret: RetRejected}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return OrderResult{Ret: RetRejected}, fmt.Errorf("jupiter swap status %d", resp.StatusCode)
	}
	var sr struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return OrderResult{Ret: RetRejected}, err
	}

	raw, err := base64.StdEncoding.DecodeString(sr.SwapTransaction)
	if err != nil {
		return OrderResult{Ret: RetRejected}, fmt.Errorf("decode tx: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return OrderResult{Ret: RetRejected}, fmt.Errorf("unmarshal tx: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(j.owner.PublicKey()) {
			return &j.owner
		}
		return nil
	}); err != nil {
		return OrderResult{Ret: RetRejected}, fmt.Errorf("sign: %w", err)
	}

	sig, err := j.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: j.commit,
	})
	if err != nil {
		return OrderResult{Ret: RetRejected}, err
	}
	j.log.Info().Str("symbol", req.Symbol).Str("sig", sig.String()).Msg("jupiter swap submitted")
	return OrderResult{Ret: RetOK, Comment: req.Comment}, nil
}
