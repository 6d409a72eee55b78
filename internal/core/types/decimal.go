// Package types provides common type aliases and money/quantity helpers.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Quantity represents a stock quantity with full precision.
// Quantities are decimal because fractional units are legal
// (0.5 kg, 2.5 L, 0.25 of a 12-pack).
type Quantity = decimal.Decimal

// MoneyScale is the number of decimal places persisted for money values.
// Matches Postgres NUMERIC(15,2) semantics.
const MoneyScale int32 = 2

// NewMoneyFromString creates a Money value from a string.
// This is the preferred constructor for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MustQuantity creates a Quantity from a string, panics on error.
// Use only for constants and tests.
func MustQuantity(s string) Quantity {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero decimal value.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// One returns decimal 1, the identity conversion factor.
func One() decimal.Decimal {
	return decimal.NewFromInt(1)
}

// RoundMoney rounds a monetary amount to MoneyScale places, half away
// from zero (commercial half-up rounding, not banker's rounding).
func RoundMoney(m Money) Money {
	return m.Round(MoneyScale)
}
