package order

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/coreerr"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/marketaccess"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/pip"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"
)

// Request is the fully resolved, venue-agnostic order the executor submits,
// built from a strategy Signal plus a bot's SL/TP configuration.
type Request struct {
	BotID      uint64
	Mode       string
	Symbol     string
	Direction  signal.Kind
	Volume     float64
	EntryPrice float64
	StopLossPips   float64
	TakeProfitPips float64
}

// fillLadder is the sequence of filling modes the executor tries in order,
// grounded on hft_manager.py's _execute_trade retry loop over MT5 filling
// modes (IOC, FOK, RETURN) until one is accepted.
var fillLadder = []marketaccess.FillPolicy{marketaccess.FillIOC, marketaccess.FillFOK, marketaccess.FillReturn}

// Executor constructs and submits orders against a Market Access Port,
// applying the fill-mode retry ladder and the minimum-stop-distance
// clamp-and-retry-once rule.
type Executor struct {
	port marketaccess.Port
	log  zerolog.Logger
}

// NewExecutor constructs an Executor bound to port.
func NewExecutor(port marketaccess.Port, log zerolog.Logger) *Executor {
	return &Executor{port: port, log: log}
}

// Submit resolves SL/TP from pip distances against the symbol's point size,
// forces both SL and TP to be nonzero whenever either pip distance is
// positive (the spec's SL/TP-always-nonzero law), and submits through the
// fill-mode retry ladder, clamping to the venue's minimum stop distance and
// retrying once if the first attempt is rejected for that reason.
func (e *Executor) Submit(ctx context.Context, req Request) (marketaccess.OrderResult, error) {
	info, err := e.port.SymbolInfo(ctx, req.Symbol)
	if err != nil {
		return marketaccess.OrderResult{}, fmt.Errorf("order: symbol info: %w", coreerr.ErrMarketAccessUnavailable)
	}

	sl, tp := e.resolveStops(req, info)
	side := marketaccess.SideBuy
	if req.Direction == signal.Sell {
		side = marketaccess.SideSell
	}

	base := marketaccess.OrderRequest{
		Symbol:     req.Symbol,
		Side:       side,
		Volume:     req.Volume,
		StopLoss:   sl,
		TakeProfit: tp,
		Comment:    BuildTag(req.BotID, req.Mode, req.Direction),
		Magic:      Magic(req.BotID, req.Symbol),
	}

	result, err := e.submitWithFillLadder(ctx, base)
	if err == nil {
		return result, nil
	}
	if !errorsIsStopRejection(err) {
		return result, err
	}

	clamped := base
	clamped.StopLoss, clamped.TakeProfit = e.clampStops(req, info)
	result, err = e.submitWithFillLadder(ctx, clamped)
	if err != nil {
		return result, fmt.Errorf("order: %w", coreerr.ErrStopDistanceRejected)
	}
	return result, nil
}

func (e *Executor) resolveStops(req Request, info marketaccess.SymbolInfo) (sl, tp float64) {
	if req.StopLossPips <= 0 && req.TakeProfitPips <= 0 {
		return 0, 0
	}
	slPips, tpPips := req.StopLossPips, req.TakeProfitPips
	if slPips <= 0 {
		slPips = tpPips
	}
	if tpPips <= 0 {
		tpPips = slPips
	}
	slDist := pip.ToPrice(slPips, info.PointSize, info.Digits)
	tpDist := pip.ToPrice(tpPips, info.PointSize, info.Digits)
	if req.Direction == signal.Buy {
		return pip.Round(req.EntryPrice-slDist, info.Digits), pip.Round(req.EntryPrice+tpDist, info.Digits)
	}
	return pip.Round(req.EntryPrice+slDist, info.Digits), pip.Round(req.EntryPrice-tpDist, info.Digits)
}

// Close submits the opposite-side deal that closes ticket at the current
// crossing quote, tagged with the manual-close grammar so the venue (and
// any consumer of the resulting OrderResult) recognizes it as closing
// rather than opening a position, per spec.md §4.4's manual-close
// contract. An open Buy closes by selling at the bid; an open Sell closes
// by buying at the ask.
func (e *Executor) Close(ctx context.Context, symbol string, ticket uint64, openSide marketaccess.Side, volume float64) (marketaccess.OrderResult, error) {
	quote, err := e.port.CurrentQuote(ctx, symbol)
	if err != nil {
		return marketaccess.OrderResult{}, fmt.Errorf("order: close: %w", coreerr.ErrMarketAccessUnavailable)
	}
	closeSide, price := marketaccess.SideSell, quote.Bid
	if openSide == marketaccess.SideSell {
		closeSide, price = marketaccess.SideBuy, quote.Ask
	}
	req := marketaccess.OrderRequest{
		Symbol:  symbol,
		Side:    closeSide,
		Volume:  volume,
		Price:   price,
		Comment: BuildManualCloseTag(ticket),
	}
	return e.submitWithFillLadder(ctx, req)
}

func (e *Executor) clampStops(req Request, info marketaccess.SymbolInfo) (sl, tp float64) {
	minDist := info.MinStopPts * info.PointSize
	if minDist <= 0 {
		return e.resolveStops(req, info)
	}
	if req.Direction == signal.Buy {
		return pip.Round(req.EntryPrice-minDist, info.Digits), pip.Round(req.EntryPrice+minDist, info.Digits)
	}
	return pip.Round(req.EntryPrice+minDist, info.Digits), pip.Round(req.EntryPrice-minDist, info.Digits)
}

// submitWithFillLadder tries fillLadder in order, but only actually retries
// on a rejection whose code indicates the filling mode itself was the
// problem (RetInvalidFill). Per spec.md §4.4/§7, any other rejection
// (RetInvalidStops, RetRejected, RetNoMoney, ...) is surfaced immediately
// without further retry: retrying the fill mode can never fix a stop
// distance or an insufficient-funds rejection, and quietly looping through
// it would misreport an OrderRejected/StopDistanceRejected as
// FillingModeUnsupported.
func (e *Executor) submitWithFillLadder(ctx context.Context, req marketaccess.OrderRequest) (marketaccess.OrderResult, error) {
	var lastErr error
	for _, fill := range fillLadder {
		req.Fill = fill
		result, err := e.port.OrderSend(ctx, req)
		if err == nil && result.Ret == marketaccess.RetOK {
			return result, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("order: venue returned ret=%v", result.Ret)
		}
		switch result.Ret {
		case marketaccess.RetInvalidStops:
			return result, stopRejection{lastErr}
		case marketaccess.RetInvalidFill:
			e.log.Debug().Int("fill_mode", int(fill)).Err(lastErr).Msg("filling mode rejected, trying next mode")
			continue
		default:
			return result, fmt.Errorf("order: %w: %v", coreerr.ErrOrderRejected, lastErr)
		}
	}
	return marketaccess.OrderResult{Ret: marketaccess.RetInvalidFill}, fmt.Errorf("order: %w: %v", coreerr.ErrFillingModeUnsupported, lastErr)
}

type stopRejection struct{ err error }

func (s stopRejection) Error() string { return s.err.Error() }
func (s stopRejection) Unwrap() error { return s.err }

func errorsIsStopRejection(err error) bool {
	_, ok := err.(stopRejection)
	return ok
}
