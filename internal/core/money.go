// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Conversions from decimal text go
// through shopspring/decimal so that rounding is exact.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(1<<63 - 1)
)

// ParseAmount converts user-entered decimal text to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Signs, zero and anything that is
// not a plain decimal number are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("12,34")  -> 1234
//	ParseAmount("12.345") -> 1235
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	m, err := moneyFromDecimalString(s)
	if err != nil {
		return Money{}, err
	}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// moneyFromDecimalString converts a decimal number in major units to cents.
// The result keeps the sign of the input.
func moneyFromDecimalString(s string) (Money, error) {
	if strings.ContainsAny(s, "eE") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if cents.Abs().GreaterThan(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with two fixed decimals and no currency, e.g. "12.34".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}
