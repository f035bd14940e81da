// Package types provides common value types.
package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
type Money = decimal.Decimal

// MoneyScale is the number of fractional digits kept for stored amounts.
const MoneyScale int32 = 2

// MaxMoney is the largest value a NUMERIC(14,2) column holds.
var MaxMoney = decimal.RequireFromString("999999999999.99")

// NewMoneyFromString parses a decimal string such as "120.50".
func NewMoneyFromString(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	return decimal.RequireFromString(s)
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// MinMoney returns the smaller of a and b.
func MinMoney(a, b Money) Money {
	if a.LessThan(b) {
		return a
	}
	return b
}

// SumMoney adds all values.
func SumMoney(values ...Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// HasMoneyScale reports whether v has no more fractional digits than MoneyScale.
func HasMoneyScale(v Money) bool {
	return v.Equal(v.Round(MoneyScale))
}

// InMoneyRange reports whether v fits a NUMERIC(14,2) column in magnitude.
func InMoneyRange(v Money) bool {
	return v.Abs().LessThanOrEqual(MaxMoney)
}
