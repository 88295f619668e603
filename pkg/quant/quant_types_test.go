package quant

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParsePriceMicros(t *testing.T) {
	tests := []struct {
		input    string
		expected PriceMicros
	}{
		{"10", 10000000},
		{"10.00", 10000000},
		{"9.5", 9500000},
		{"0.000001", 1},
		{"0.0000019", 1},
		{"100.", 100000000},
		{".5", 500000},
	}

	for _, tt := range tests {
		got, err := ParsePriceMicros(tt.input)
		if err != nil {
			t.Errorf("ParsePriceMicros(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParsePriceMicros(%q) = %d; want %d", tt.input, got, tt.expected)
		}
	}
}

func TestParsePriceMicros_Rejects(t *testing.T) {
	for _, input := range []string{"-1", "1e5", "1.2.3", ".", "abc", "1,5", " 1"} {
		if _, err := ParsePriceMicros(input); !errors.Is(err, ErrMalformedPrice) {
			t.Errorf("ParsePriceMicros(%q) error = %v; want ErrMalformedPrice", input, err)
		}
	}

	if _, err := ParsePriceMicros(""); !errors.Is(err, ErrEmptyPrice) {
		t.Errorf("expected ErrEmptyPrice, got %v", err)
	}
}

func TestPriceMicros_String(t *testing.T) {
	tests := []struct {
		p    PriceMicros
		want string
	}{
		{10000000, "10"},
		{9500000, "9.5"},
		{1, "0.000001"},
		{0, "0"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("PriceMicros(%d).String() = %s; want %s", tt.p, got, tt.want)
		}
	}
}

func TestFromDecimal(t *testing.T) {
	if got := FromDecimal(decimal.RequireFromString("12.3456789")); got != 12345678 {
		t.Errorf("FromDecimal = %d; want 12345678", got)
	}

	// parsing truncates the same way
	for _, s := range []string{"12.3456789", "0.0000019", "9.5"} {
		got, err := ParsePriceMicros(s)
		if err != nil {
			t.Fatalf("ParsePriceMicros(%q) failed: %v", s, err)
		}
		if want := FromDecimal(decimal.RequireFromString(s)); got != want {
			t.Errorf("ParsePriceMicros(%q) = %d; want %d", s, got, want)
		}
	}
}

func TestPriceMicros_Diff(t *testing.T) {
	if PriceMicros(5).Diff(8) != 3 || PriceMicros(8).Diff(5) != 3 {
		t.Error("Diff should be symmetric")
	}
}
