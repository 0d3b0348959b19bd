// Package protection implements the eight-gate state machine a bot
// evaluates before every order submission, in the fixed order the spec
// requires: status, spread, daily cap, streak, daily-trade, rate,
// cooldown, confidence. Grounded on
// original_source/backend/trading_bot/hft_manager.go's _can_place_order
// (the rolling rate gate) and _update_performance (the daily/streak
// counters), generalized from the teacher's single risk.Limits.Allow
// notional check into the full machine.
package protection

import (
	"sync"
	"time"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/coreerr"
)

// Status is the bot's current protection standing.
type Status int

const (
	StatusActive Status = iota
	StatusPausedProtection
)

// Limits bundles the configured thresholds every gate checks against.
type Limits struct {
	MaxSpreadPoints    float64
	MaxDailyLossUSD    float64
	MaxDailyProfitUSD  float64
	MaxConsecutiveLoss int
	MaxConsecutiveWin  int
	MaxDailyTrades     int
	MaxTradesPerMinute int
	CooldownAfterTrade time.Duration
	MinConfidence      float64
}

// Counters is the mutable per-bot state the gates read and update. A zero
// Counters is a freshly started, unpaused bot.
type Counters struct {
	mu sync.Mutex

	status            Status
	dailyPnL          float64
	unrealizedPnL     float64
	dailyTrades       int
	consecutiveLosses int
	consecutiveWins   int
	dayBoundary       time.Time // UTC midnight of the tracked day
	recentTrades      []time.Time
	cooldownUntil     time.Time
	lastOrderAt       time.Time
}

// NewCounters constructs a fresh, active, unpaused Counters for now.
func NewCounters(now time.Time) *Counters {
	return &Counters{status: StatusActive, dayBoundary: dayBoundaryFor(now)}
}

func dayBoundaryFor(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

// rollDayIfNeeded resets the daily counters (but not streak or pause
// status) when now has crossed into a new UTC day, mirroring the
// original's UTC-midnight daily reset.
func (c *Counters) rollDayIfNeeded(now time.Time) {
	boundary := dayBoundaryFor(now)
	if boundary.After(c.dayBoundary) {
		c.dayBoundary = boundary
		c.dailyPnL = 0
		c.dailyTrades = 0
	}
}

// Machine evaluates the eight gates in order for a candidate order.
type Machine struct {
	limits Limits
}

// NewMachine constructs a Machine bound to limits.
func NewMachine(limits Limits) *Machine { return &Machine{limits: limits} }

// Check runs every gate in spec order and returns the first rejection, or
// nil if the order may proceed. spreadPoints is the current quoted spread
// in broker points; confidence is the strategy signal's confidence in
// [0, 1].
func (m *Machine) Check(c *Counters, now time.Time, spreadPoints, confidence float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollDayIfNeeded(now)

	if c.status == StatusPausedProtection {
		return coreerr.ErrProtectionPaused
	}
	if m.limits.MaxSpreadPoints > 0 && spreadPoints > m.limits.MaxSpreadPoints {
		return coreerr.ErrSpreadTooWide
	}
	combinedPnL := c.dailyPnL + c.unrealizedPnL
	if m.limits.MaxDailyLossUSD > 0 && -combinedPnL >= m.limits.MaxDailyLossUSD {
		c.status = StatusPausedProtection
		return coreerr.ErrProtectionPaused
	}
	if m.limits.MaxDailyProfitUSD > 0 && combinedPnL >= m.limits.MaxDailyProfitUSD {
		c.status = StatusPausedProtection
		return coreerr.ErrProtectionPaused
	}
	if m.limits.MaxConsecutiveLoss > 0 && c.consecutiveLosses >= m.limits.MaxConsecutiveLoss {
		c.status = StatusPausedProtection
		return coreerr.ErrProtectionPaused
	}
	if m.limits.MaxConsecutiveWin > 0 && c.consecutiveWins >= m.limits.MaxConsecutiveWin {
		c.status = StatusPausedProtection
		return coreerr.ErrProtectionPaused
	}
	if m.limits.MaxDailyTrades > 0 && c.dailyTrades >= m.limits.MaxDailyTrades {
		return coreerr.ErrCycleSuppressed
	}
	if m.limits.MaxTradesPerMinute > 0 && c.tradesInLastMinute(now) >= m.limits.MaxTradesPerMinute {
		return coreerr.ErrCycleSuppressed
	}
	if !c.cooldownUntil.IsZero() && now.Before(c.cooldownUntil) {
		return coreerr.ErrCycleSuppressed
	}
	if m.limits.MinConfidence > 0 && confidence < m.limits.MinConfidence {
		return coreerr.ErrLowConfidence
	}
	return nil
}

func (c *Counters) tradesInLastMinute(now time.Time) int {
	cutoff := now.Add(-time.Minute)
	kept := c.recentTrades[:0]
	count := 0
	for _, ts := range c.recentTrades {
		if ts.After(cutoff) {
			kept = append(kept, ts)
			count++
		}
	}
	c.recentTrades = kept
	return count
}

// RecordSubmission updates the rate, daily-trade, and cooldown bookkeeping
// immediately after an order is accepted by the venue — before its
// realized outcome is known. This is the "updates its performance
// counters" step (e) of the per-cycle control flow in spec.md §2, distinct
// from RecordCompletion's streak/P&L bookkeeping which only runs once the
// position closes.
func (m *Machine) RecordSubmission(c *Counters, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollDayIfNeeded(now)

	c.dailyTrades++
	c.recentTrades = append(c.recentTrades, now)
	c.lastOrderAt = now
	if m.limits.CooldownAfterTrade > 0 {
		c.cooldownUntil = now.Add(m.limits.CooldownAfterTrade)
	}
}

// RecordCompletion updates the daily P&L and consecutive-streak counters
// once a previously submitted order's outcome is known (a closed
// position). win must be true for a profitable close, false for a loss;
// pnl is the signed realized profit/loss in account currency. A win
// resets the loss streak and vice versa, the way the original's
// opposite-outcome reset does.
func (m *Machine) RecordCompletion(c *Counters, now time.Time, win bool, pnl float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollDayIfNeeded(now)

	c.dailyPnL += pnl
	if win {
		c.consecutiveWins++
		c.consecutiveLosses = 0
	} else {
		c.consecutiveWins = 0
		c.consecutiveLosses++
	}
}

// MarkUnrealized records the open-position mark-to-market P&L the daily
// loss/profit caps must fold in alongside dailyPnL, per spec.md §4.5's
// realized+unrealized cap and §3's daily_pnl_unrealized field. The caller
// (the bot loop) recomputes this every cycle from its tracked open orders
// against the current quote; it is not accumulated, only overwritten.
func (m *Machine) MarkUnrealized(c *Counters, pnl float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unrealizedPnL = pnl
}

// Resume manually clears a PAUSED_PROTECTION status and resets the win and
// loss streak counters, so a streak pause does not re-trip on the next
// Check. The spec requires manual-only un-pause: nothing in Check,
// RecordSubmission, or RecordCompletion clears it.
func (c *Counters) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusActive
	c.consecutiveLosses = 0
	c.consecutiveWins = 0
}

// Status returns the bot's current protection standing.
func (c *Counters) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Snapshot returns a read-only copy of the tracked counters for telemetry.
type Snapshot struct {
	Status            Status
	DailyPnL          float64
	UnrealizedPnL     float64
	DailyTrades       int
	ConsecutiveLosses int
	ConsecutiveWins   int
	LastOrderAt       time.Time
}

// Snapshot copies the current counters.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Status:            c.status,
		DailyPnL:          c.dailyPnL,
		UnrealizedPnL:     c.unrealizedPnL,
		DailyTrades:       c.dailyTrades,
		ConsecutiveLosses: c.consecutiveLosses,
		ConsecutiveWins:   c.consecutiveWins,
		LastOrderAt:       c.lastOrderAt,
	}
}
