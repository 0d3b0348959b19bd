// Package bot implements the per-bot analysis loop: acquire ticks,
// evaluate a strategy, run the protection gates, submit an order, publish
// telemetry, sleep, repeat. Grounded on
// original_source/backend/trading_bot/hft_manager.py's _bot_loop.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/coreerr"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/marketaccess"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/protection"
)

// Config describes a single bot's configuration, accepted however the
// caller builds it: by hand in tests, or decoded from the YAML roster in
// internal/config. Field names favor the spec's vocabulary over any one
// venue's; Normalize resolves the legacy aliases the original controller's
// update_config accepted ad hoc into this single canonical shape.
type Config struct {
	Symbol          string
	Strategy        string
	Mode            string // HFT or CANDLE; this controller only drives HFT loops, but the tag grammar carries the marker either way
	Venue           marketaccess.Venue
	Volume          float64
	StopLossPips    float64
	TakeProfitPips  float64
	UseManualSLTP   bool
	RiskRewardRatio float64
	LoopInterval    time.Duration
	Limits          protection.Limits
	SpreadLimitPts  float64 // copied into Limits.MaxSpreadPoints; 0 leaves the spread gate off (the marketaccess default table is not consulted)
}

// Normalize resolves alias fields and fills defaults, the centralized
// equivalent of hft_manager.py's update_config alias handling (which
// mapped e.g. "stopLoss" onto "stop_loss_pips" ad hoc on every call).
func Normalize(raw map[string]any) (Config, error) {
	cfg := Config{LoopInterval: time.Second, Venue: marketaccess.VenueStub, Mode: "HFT"}

	if v, ok := firstOf(raw, "mode"); ok {
		m := strings.ToUpper(fmt.Sprint(v))
		if m == "CANDLE" {
			cfg.Mode = "CANDLE"
		}
	}

	if v, ok := firstOf(raw, "symbol", "Symbol"); ok {
		cfg.Symbol = strings.ToUpper(fmt.Sprint(v))
	}
	if cfg.Symbol == "" {
		return Config{}, fmt.Errorf("bot: %w: symbol is required", coreerr.ErrConfigInvalid)
	}

	if v, ok := firstOf(raw, "strategy", "mode", "strategy_mode"); ok {
		cfg.Strategy = fmt.Sprint(v)
	}

	if v, ok := firstOf(raw, "venue", "provider"); ok {
		cfg.Venue = marketaccess.Venue(strings.ToLower(fmt.Sprint(v)))
	}

	if v, ok := firstOf(raw, "volume", "lot_size", "qty"); ok {
		f, err := toFloat(v)
		if err != nil {
			return Config{}, fmt.Errorf("bot: %w: volume: %v", coreerr.ErrConfigInvalid, err)
		}
		cfg.Volume = f
	}
	if cfg.Volume <= 0 {
		return Config{}, fmt.Errorf("bot: %w: volume must be positive", coreerr.ErrConfigInvalid)
	}

	if v, ok := firstOf(raw, "stop_loss_pips", "stopLoss", "sl_pips"); ok {
		f, _ := toFloat(v)
		cfg.StopLossPips = f
	}
	if v, ok := firstOf(raw, "take_profit_pips", "takeProfit", "tp_pips"); ok {
		f, _ := toFloat(v)
		cfg.TakeProfitPips = f
	}
	if v, ok := firstOf(raw, "use_manual_sl_tp"); ok {
		if b, ok := v.(bool); ok {
			cfg.UseManualSLTP = b
		}
	} else {
		cfg.UseManualSLTP = true
	}
	if v, ok := firstOf(raw, "risk_reward_ratio"); ok {
		f, _ := toFloat(v)
		cfg.RiskRewardRatio = f
	}
	// §3: when use_manual_sl_tp is false, tp_pips is derived from sl_pips
	// rather than taken as configured, so SL/TP stay a fixed ratio apart.
	if !cfg.UseManualSLTP && cfg.RiskRewardRatio > 0 {
		cfg.TakeProfitPips = cfg.RiskRewardRatio * cfg.StopLossPips
	}
	if v, ok := firstOf(raw, "loop_interval_ms", "interval_ms"); ok {
		f, _ := toFloat(v)
		if f > 0 {
			cfg.LoopInterval = time.Duration(f) * time.Millisecond
		}
	}
	if v, ok := firstOf(raw, "spread_limit_points", "spread_filter_points", "symbol_spread_limit"); ok {
		f, _ := toFloat(v)
		cfg.SpreadLimitPts = f
	}
	if v, ok := firstOf(raw, "max_daily_loss_usd", "max_daily_loss", "max_loss_threshold"); ok {
		f, _ := toFloat(v)
		cfg.Limits.MaxDailyLossUSD = f
	}
	if v, ok := firstOf(raw, "max_daily_profit_usd", "max_profit_threshold"); ok {
		f, _ := toFloat(v)
		cfg.Limits.MaxDailyProfitUSD = f
	}
	if v, ok := firstOf(raw, "max_consecutive_loss", "max_streak_loss", "max_consecutive_losses"); ok {
		f, _ := toFloat(v)
		cfg.Limits.MaxConsecutiveLoss = int(f)
	}
	if v, ok := firstOf(raw, "max_consecutive_win", "max_streak_win", "max_consecutive_profits"); ok {
		f, _ := toFloat(v)
		cfg.Limits.MaxConsecutiveWin = int(f)
	}
	if v, ok := firstOf(raw, "max_daily_trades"); ok {
		f, _ := toFloat(v)
		cfg.Limits.MaxDailyTrades = int(f)
	}
	if v, ok := firstOf(raw, "max_trades_per_minute", "rate_limit_per_minute", "max_orders_per_minute"); ok {
		f, _ := toFloat(v)
		cfg.Limits.MaxTradesPerMinute = int(f)
	}
	if v, ok := firstOf(raw, "cooldown_seconds", "cooldown_secs_after_trade"); ok {
		f, _ := toFloat(v)
		cfg.Limits.CooldownAfterTrade = time.Duration(f) * time.Second
	}
	if v, ok := firstOf(raw, "min_signal_confidence", "min_confidence"); ok {
		f, _ := toFloat(v)
		cfg.Limits.MinConfidence = f
	}
	if cfg.Limits.MaxSpreadPoints == 0 {
		cfg.Limits.MaxSpreadPoints = cfg.SpreadLimitPts
	}
	return cfg, nil
}

func firstOf(raw map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		var f float64
		_, err := fmt.Sscan(t, &f)
		return f, err
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
