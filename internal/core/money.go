// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Decimal text is parsed and rounded with
// shopspring/decimal so the conversion never goes through float64.
package core

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents.
type Money struct {
	Cents int64
}

// MaxAmountCents is the largest amount a single transaction may carry
// (10 trillion in currency units). It leaves room for summing about nine
// thousand maximal amounts in int64 before the aggregators overflow.
const MaxAmountCents int64 = 1_000_000_000_000_000

var maxCents = decimal.New(MaxAmountCents, 0)

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
//	ParseDecimalToCents("12.344") -> 1234, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Only plain unsigned digits with an optional separator.
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return 0, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if cents.GreaterThan(maxCents) {
		return 0, ErrInvalidAmount
	}
	if !cents.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// MoneyFromDecimal rounds d half away from zero to cents. Values beyond
// MaxAmountCents in either direction saturate just past it so Validate
// rejects them instead of seeing a wrapped int64.
func MoneyFromDecimal(d decimal.Decimal) Money {
	cents := d.Round(2).Shift(2)
	switch {
	case cents.GreaterThan(maxCents):
		return Money{Cents: MaxAmountCents + 1}
	case cents.LessThan(maxCents.Neg()):
		return Money{Cents: -MaxAmountCents - 1}
	}
	return Money{Cents: cents.IntPart()}
}

// Validate accepts amounts in (0, MaxAmountCents].
func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Euros returns the value as a float64 for display purposes.
// Use cents for calculations.
func (m Money) Euros() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// String renders the amount with two decimals, e.g. "12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string. Sign is kept and
// Validate decides whether a value is acceptable, but magnitudes above
// MaxAmountCents are refused here.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" || raw == "null" {
		return ErrInvalidAmount
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if cents.Abs().GreaterThan(maxCents) {
		return ErrInvalidAmount
	}
	*m = Money{Cents: cents.IntPart()}
	return nil
}
