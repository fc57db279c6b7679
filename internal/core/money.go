// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Parsing goes through shopspring/decimal
// so that the decimal text the client sent is rounded, not its binary float
// approximation.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountTooLarge = errors.New("amount too large")

	minAmount = decimal.New(1, -2)
	// Bound on the decimal exponent of accepted amount text.
	maxExponent int32 = 20
	// Keeps cents comfortably inside int64.
	maxAmount = decimal.RequireFromString("999999999999.99")
)

type Money struct {
	Cents int64
}

// ParseAmount converts a decimal string to Money, rounding half away from
// zero to two decimal places.
//
// Examples:
//
//	ParseAmount("25.505") -> 2551
//	ParseAmount("25.504") -> 2550
//	ParseAmount("0.009")  -> ErrInvalidAmount (below 0.01)
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	// Comparisons rescale to a common exponent, so extreme exponents are
	// rejected before any arithmetic.
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		if exp > 0 && d.Sign() > 0 {
			return Money{}, ErrAmountTooLarge
		}
		return Money{}, ErrInvalidAmount
	}
	if d.LessThan(minAmount) {
		return Money{}, ErrInvalidAmount
	}
	if d.GreaterThan(maxAmount) {
		return Money{}, ErrAmountTooLarge
	}
	return Money{Cents: RoundToCents(d)}, nil
}

// RoundToCents rounds d to two decimal places and returns it in cents.
func RoundToCents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// MarshalJSON renders the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}
