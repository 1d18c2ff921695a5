// internal/pkg/money/money.go
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts are stored as int64 minor units (cents); the helpers here only
// convert for display and for provider payloads.

// FromMinor converts minor units to a decimal major-unit amount
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// ToMinor converts a major-unit amount to minor units, rounding half away from zero
func ToMinor(major decimal.Decimal) int64 {
	return major.Shift(2).Round(0).IntPart()
}

// Format renders minor units with the currency symbol when one is known,
// e.g. Format(2500, "usd") == "$25.00".
func Format(minor int64, currency string) string {
	amount := FromMinor(minor).StringFixed(2)
	switch strings.ToLower(currency) {
	case "usd", "":
		return "$" + amount
	case "eur":
		return "€" + amount
	case "gbp":
		return "£" + amount
	default:
		return amount + " " + strings.ToUpper(currency)
	}
}
