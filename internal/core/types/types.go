// Package types provides fixed-point quantity and money types shared
// across the domain.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Quantity is a fixed-point kilogram quantity with 3 decimal places
// (scale = 1e3).
//
// Rationale:
// - Every stock mutation rounds to 3 decimal kg, so gram-precision
//   integers represent quantities exactly and never drift
// - Stored as BIGINT in Postgres (scaled integer)
// - JSON remains a number with up to 3 decimals
type Quantity int64

const QuantityScale int64 = 1_000

func NewQuantityFromFloat64(v float64) Quantity {
	return Quantity(math.Round(v * float64(QuantityScale)))
}

func NewQuantityFromInt64Scaled(v int64) Quantity { return Quantity(v) }

// NewQuantityFromDecimal rounds a decimal kilogram value to 3 places.
func NewQuantityFromDecimal(d decimal.Decimal) Quantity {
	return Quantity(d.Mul(decimal.NewFromInt(QuantityScale)).Round(0).IntPart())
}

func (q Quantity) Int64Scaled() int64 { return int64(q) }

func (q Quantity) Float64() float64 { return float64(q) / float64(QuantityScale) }

// Decimal returns the exact decimal kilogram value.
func (q Quantity) Decimal() decimal.Decimal {
	return decimal.New(int64(q), -3)
}

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsPositive() bool { return q > 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

func (q Quantity) Neg() Quantity { return -q }

func (q Quantity) Abs() Quantity {
	if q < 0 {
		return -q
	}
	return q
}

// MulRound multiplies by a plain ratio and rounds to 3 decimal kg.
// This is the single rounding rule used by consumption math.
func (q Quantity) MulRound(f float64) Quantity {
	return Quantity(math.Round(float64(q) * f))
}

// String returns a decimal string with 3 fractional digits.
func (q Quantity) String() string {
	neg := q < 0
	v := q
	if neg {
		v = -v
	}
	intPart := int64(v) / QuantityScale
	frac := int64(v) % QuantityScale
	if neg {
		return fmt.Sprintf("-%d.%03d", intPart, frac)
	}
	return fmt.Sprintf("%d.%03d", intPart, frac)
}

// MarshalJSON encodes Quantity as a JSON number, preserving 3 digits.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts either a JSON number or string and parses to
// fixed-point (3 digits).
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := parseQuantityString(s)
		if err != nil {
			return err
		}
		*q = parsed
		return nil
	}

	parsed, err := parseQuantityString(string(data))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

func parseQuantityString(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}

	// Exponent form falls back to float parsing.
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse quantity: %w", err)
		}
		return NewQuantityFromFloat64(f), nil
	}

	sign := int64(1)
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = strings.TrimPrefix(s, "-")
	} else if strings.HasPrefix(s, "+") {
		s = strings.TrimPrefix(s, "+")
	}

	parts := strings.SplitN(s, ".", 2)
	intPartStr := parts[0]
	fracStr := ""
	if len(parts) == 2 {
		fracStr = parts[1]
	}

	if intPartStr == "" {
		intPartStr = "0"
	}
	intPart, err := strconv.ParseInt(intPartStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity integer part: %w", err)
	}

	// Normalize fractional part to 3 digits (pad right, truncate extra digits).
	if len(fracStr) > 3 {
		fracStr = fracStr[:3]
	}
	for len(fracStr) < 3 {
		fracStr += "0"
	}
	frac, err := strconv.ParseInt(fracStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity fractional part: %w", err)
	}

	return Quantity(sign * (intPart*QuantityScale + frac)), nil
}

// MinorUnits represents a monetary value in hundredths of a won
// (scale = 1e2). Prices arrive VAT-inclusive in whole won, but the
// VAT strip divides by 1.1 and keeping two sub-won digits preserves
// the quotient for exact revenue and cost aggregation.
type MinorUnits int64

const MoneyScale int64 = 100

// NewMinorUnitsFromFloat rounds a won amount to minor units.
func NewMinorUnitsFromFloat(major float64) MinorUnits {
	return MinorUnits(math.Round(major * float64(MoneyScale)))
}

// NewMinorUnitsFromDecimal rounds a decimal won amount to minor units.
func NewMinorUnitsFromDecimal(d decimal.Decimal) MinorUnits {
	return MinorUnits(d.Mul(decimal.NewFromInt(MoneyScale)).Round(0).IntPart())
}

func (m MinorUnits) Int64Scaled() int64 { return int64(m) }

func (m MinorUnits) Float64() float64 { return float64(m) / float64(MoneyScale) }

// Decimal returns the exact decimal won value.
func (m MinorUnits) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

func (m MinorUnits) IsZero() bool     { return m == 0 }
func (m MinorUnits) IsPositive() bool { return m > 0 }
func (m MinorUnits) IsNegative() bool { return m < 0 }
func (m MinorUnits) Neg() MinorUnits  { return -m }

func (m MinorUnits) Abs() MinorUnits {
	if m < 0 {
		return -m
	}
	return m
}

// MulQuantity returns quantity × unit price in minor units.
func (m MinorUnits) MulQuantity(q Quantity) MinorUnits {
	product := decimal.New(int64(m), -2).Mul(decimal.New(int64(q), -3))
	return NewMinorUnitsFromDecimal(product)
}

// String returns a decimal string with 2 fractional digits.
func (m MinorUnits) String() string {
	neg := m < 0
	v := m
	if neg {
		v = -v
	}
	intPart := int64(v) / MoneyScale
	frac := int64(v) % MoneyScale
	if neg {
		return fmt.Sprintf("-%d.%02d", intPart, frac)
	}
	return fmt.Sprintf("%d.%02d", intPart, frac)
}

// MarshalJSON encodes MinorUnits as a JSON number.
func (m MinorUnits) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or string.
func (m *MinorUnits) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	s := string(data)
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("parse money: %w", err)
	}
	*m = NewMinorUnitsFromDecimal(d)
	return nil
}
