// Package order builds and submits orders against a marketaccess.Port,
// implementing the tag grammar, pip-distance SL/TP construction, and
// fill-mode retry ladder the protection machine and bot loop depend on.
// Grounded on the teacher's internal/execution.Executor/Order, generalized
// from a log-only stub into the full construct/submit/retry/classify
// pipeline original_source/backend/trading_bot/hft_manager.py's
// _execute_trade performs.
package order

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/signal"
)

const tagPrefix = "TradePulse_bot_"

var tagPattern = regexp.MustCompile(`^TradePulse_bot_(\d+)_([A-Za-z0-9]+)_(BUY|SELL)$`)

var manualClosePattern = regexp.MustCompile(`^Manual_Close_(\d+)$`)

// Tag identifies the bot, mode, and direction an order was opened under.
type Tag struct {
	BotID     uint64
	Mode      string
	Direction signal.Kind
}

// BuildTag renders the order comment/tag grammar
// TradePulse_bot_<bot_id>_<MODE>_<DIRECTION>.
func BuildTag(botID uint64, mode string, direction signal.Kind) string {
	return fmt.Sprintf("%s%d_%s_%s", tagPrefix, botID, strings.ToUpper(mode), direction.String())
}

// ParseTag parses a tag produced by BuildTag, round-tripping exactly the
// fields BuildTag encoded.
func ParseTag(tag string) (Tag, error) {
	matches := tagPattern.FindStringSubmatch(tag)
	if matches == nil {
		return Tag{}, fmt.Errorf("order: tag %q does not match grammar", tag)
	}
	botID, err := strconv.ParseUint(matches[1], 10, 64)
	if err != nil {
		return Tag{}, fmt.Errorf("order: invalid bot id in tag %q: %w", tag, err)
	}
	var dir signal.Kind
	switch matches[3] {
	case "BUY":
		dir = signal.Buy
	case "SELL":
		dir = signal.Sell
	default:
		return Tag{}, fmt.Errorf("order: invalid direction in tag %q", tag)
	}
	return Tag{BotID: botID, Mode: matches[2], Direction: dir}, nil
}

// BuildManualCloseTag renders the manual-close tag grammar
// Manual_Close_<ticket>.
func BuildManualCloseTag(ticket uint64) string {
	return fmt.Sprintf("Manual_Close_%d", ticket)
}

// ParseManualCloseTag extracts the ticket from a manual-close tag.
func ParseManualCloseTag(tag string) (uint64, error) {
	matches := manualClosePattern.FindStringSubmatch(tag)
	if matches == nil {
		return 0, fmt.Errorf("order: tag %q is not a manual-close tag", tag)
	}
	return strconv.ParseUint(matches[1], 10, 64)
}
