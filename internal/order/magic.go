package order

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
)

// Magic derives a stable per-bot magic number from the bot id and symbol,
// grounded on hft_manager.py's _generate_unique_magic_number (an md5 digest
// truncated to a broker-safe integer range) so two bots never collide on
// the same symbol even if restarted in a different order.
func Magic(botID uint64, symbol string) uint64 {
	sum := md5.Sum([]byte(fmt.Sprintf("tradepulse_bot_%d_%s", botID, symbol)))
	v := binary.BigEndian.Uint64(sum[:8])
	// Keep within a 31-bit positive range the way MT5's int magic field
	// expects; this still leaves well over 2 billion distinct values.
	return v % 2147483647
}
