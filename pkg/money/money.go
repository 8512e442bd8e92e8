// Package money holds the currency helpers shared by plan math and checkout.
// Amounts are decimal dollars; anything that divides works in integer cents.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyAmount    = errors.New("amount is required")
	ErrInvalidAmount  = errors.New("amount is not a finite decimal")
	ErrAmountTooLarge = errors.New("amount exceeds the largest supported value")
)

// MaxAmount is the largest dollar amount accepted anywhere. Its cents fit an
// int64 with room for sums.
var MaxAmount = decimal.New(1, 12)

// InRange reports whether |d| is at most MaxAmount, so ToCents cannot overflow.
func InRange(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(MaxAmount)
}

// Round2 rounds half away from zero to whole cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ToCents converts a dollar amount to integer cents, rounding to the nearest
// cent first. d must be InRange.
func ToCents(d decimal.Decimal) int64 {
	return Round2(d).Shift(2).IntPart()
}

// FromCents converts integer cents to a dollar amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-2)
}

// Min returns the smaller amount.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the larger amount.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Format renders an amount with exactly two fractional digits.
func Format(d decimal.Decimal) string {
	return Round2(d).StringFixed(2)
}

// ParseAmount parses a user supplied amount. Spellings of NaN and infinity are
// rejected explicitly since they can never describe a contract total.
func ParseAmount(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, ErrEmptyAmount
	}
	lower := strings.ToLower(strings.TrimLeft(trimmed, "+-"))
	if strings.HasPrefix(lower, "nan") || strings.HasPrefix(lower, "inf") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if !InRange(d) {
		return decimal.Zero, ErrAmountTooLarge
	}
	return d, nil
}
