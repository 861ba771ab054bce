package models

import (
	"fmt"
	"math"
)

// Money is an amount in whole currency units. Fractional sub-units are
// never persisted; every arithmetic step rounds to the nearest unit so
// repeated computation over the same inputs is deterministic.
type Money int64

// NewMoney validates v as a non-negative amount.
func NewMoney(v int64) (Money, error) {
	if v < 0 {
		return 0, &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	return Money(v), nil
}

// MoneyFromFloat rounds v to the nearest whole currency unit.
func MoneyFromFloat(v float64) Money {
	return Money(math.Round(v))
}

// Mul multiplies the amount by an integer quantity.
func (m Money) Mul(qty int) Money {
	return m * Money(qty)
}

// Percent returns p percent of the amount, rounded to the nearest unit.
func (m Money) Percent(p float64) Money {
	return MoneyFromFloat(float64(m) * p / 100)
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return m + other
}

// Sub returns the difference; the result may legitimately be negative
// for intermediate arithmetic, callers validate final totals.
func (m Money) Sub(other Money) Money {
	return m - other
}

// Int64 exposes the raw whole-unit value.
func (m Money) Int64() int64 {
	return int64(m)
}

func (m Money) String() string {
	return fmt.Sprintf("%d", int64(m))
}
