// Package format converts raw on-chain quantities into display values.
package format

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// NativeDecimals is the decimal precision of the native currency and launchpad tokens
const NativeDecimals = 18

// FormatMarketCap converts a wei-denominated decimal string into whole units.
// Unparseable input yields 0.
func FormatMarketCap(wei string) float64 {
	d, err := decimal.NewFromString(wei)
	if err != nil {
		return 0
	}
	return d.Shift(-NativeDecimals).InexactFloat64()
}

// FormatUnits renders a raw integer amount with the given decimals, trimming trailing zeros
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// ParseUnits converts a human amount such as "1.25" into its raw integer form.
// Digits beyond the given decimals are truncated.
func ParseUnits(amount string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return d.Shift(decimals).Truncate(0).BigInt(), nil
}

// FormatRelativeTime renders a unix timestamp relative to now, e.g. "45s ago" or "1h ago"
func FormatRelativeTime(unix int64, now time.Time) string {
	diff := now.Unix() - unix
	switch {
	case diff < 0:
		return "just now"
	case diff < 60:
		return fmt.Sprintf("%ds ago", diff)
	case diff < 3600:
		return fmt.Sprintf("%dm ago", diff/60)
	case diff < 86400:
		return fmt.Sprintf("%dh ago", diff/3600)
	default:
		return fmt.Sprintf("%dd ago", diff/86400)
	}
}
