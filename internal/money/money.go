// Package money holds the decimal helpers for wallet amounts.
//
// All amounts are shopspring decimals, never floats. Rounding is
// round-half-away-from-zero (decimal.Round), which for the positive amounts
// handled here is plain round-half-up. Every persisted amount is normalized
// to exactly two fractional digits, and each transaction leg is rounded
// exactly once.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Round2 normalizes an amount to two fractional digits, half up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Parse converts a caller-supplied amount into a decimal. Anything that is
// not a plain finite number ("NaN", "Inf", empty, garbage) is rejected.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}

	return d, nil
}

// Format renders an amount with exactly two fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
