package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MinAmount is the smallest expense amount accepted by the backend.
var MinAmount = decimal.New(1, -2)

// Amount is a monetary value. It embeds decimal.Decimal for arithmetic and
// encodes to JSON as a bare number, which is what the backend expects.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// MustAmount parses s and panics on failure. Intended for constants and tests.
func MustAmount(s string) Amount {
	return Amount{Decimal: decimal.RequireFromString(s)}
}

// ParseAmount parses user input into a positive amount of at least 0.01.
// Surrounding whitespace is ignored.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, invalid("amount", "amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, invalid("amount", "%q is not a number", s)
	}
	if d.LessThan(MinAmount) {
		return Amount{}, invalid("amount", "amount must be at least %s", MinAmount.StringFixed(2))
	}
	return Amount{Decimal: d}, nil
}

// MarshalJSON encodes the amount as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}
