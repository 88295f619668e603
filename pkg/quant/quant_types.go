package quant

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// PriceMicros represents price multiplied by 1,000,000 (10^6).
// E.g., 9.50 = 9,500,000 PriceMicros.
type PriceMicros int64

const (
	PriceScale    = 1000000
	priceDecimals = 6
)

var maxPriceMicros = decimal.NewFromInt(math.MaxInt64)

var (
	// ErrEmptyPrice is returned for an empty price token.
	ErrEmptyPrice = errors.New("empty price")

	// ErrMalformedPrice is returned when the token is not plain digits with an optional fraction.
	ErrMalformedPrice = errors.New("malformed price")
)

// ParsePriceMicros converts an unsigned decimal string ("10", "9.5", "100.") to PriceMicros.
// Rule #1: No Float. Digits beyond the sixth fractional place are truncated.
func ParsePriceMicros(s string) (PriceMicros, error) {
	if s == "" {
		return 0, ErrEmptyPrice
	}

	dots := 0
	digits := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '.':
			dots++
		case c >= '0' && c <= '9':
			digits++
		default:
			return 0, fmt.Errorf("%w: %q", ErrMalformedPrice, s)
		}
	}
	if dots > 1 || digits == 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedPrice, s)
	}

	// decimal rejects a trailing dot; "100." is accepted by the feed grammar.
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedPrice, err)
	}

	scaled := d.Shift(priceDecimals).Truncate(0)
	if scaled.GreaterThan(maxPriceMicros) {
		return 0, fmt.Errorf("%w: %q out of range", ErrMalformedPrice, s)
	}

	return FromDecimal(d), nil
}

// FromDecimal converts a decimal price to PriceMicros, truncating extra precision.
func FromDecimal(d decimal.Decimal) PriceMicros {
	return PriceMicros(d.Shift(priceDecimals).IntPart())
}

// Decimal returns the price as an exact decimal.
func (p PriceMicros) Decimal() decimal.Decimal {
	return decimal.New(int64(p), -priceDecimals)
}

// String renders the shortest exact form, e.g. 9500000 -> "9.5".
func (p PriceMicros) String() string {
	return p.Decimal().String()
}

// Diff returns |p - o|.
func (p PriceMicros) Diff(o PriceMicros) PriceMicros {
	if p > o {
		return p - o
	}
	return o - p
}
