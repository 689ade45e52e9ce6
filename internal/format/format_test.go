package format

import (
	"math/big"
	"testing"
	"time"
)

func TestFormatMarketCap(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{name: "one and a half units", input: "1500000000000000000", expected: 1.5},
		{name: "zero", input: "0", expected: 0},
		{name: "large", input: "123000000000000000000000", expected: 123000},
		{name: "sub unit", input: "1000000000000000", expected: 0.001},
		{name: "invalid", input: "not-a-number", expected: 0},
		{name: "empty", input: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatMarketCap(tt.input)
			if got != tt.expected {
				t.Errorf("FormatMarketCap(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	base := now.Unix()

	tests := []struct {
		name     string
		ts       int64
		expected string
	}{
		{name: "seconds", ts: base - 45, expected: "45s ago"},
		{name: "zero", ts: base, expected: "0s ago"},
		{name: "minutes", ts: base - 125, expected: "2m ago"},
		{name: "hour", ts: base - 3700, expected: "1h ago"},
		{name: "days", ts: base - 3*86400 - 10, expected: "3d ago"},
		{name: "future", ts: base + 30, expected: "just now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRelativeTime(tt.ts, now); got != tt.expected {
				t.Errorf("FormatRelativeTime(now%+d) = %q, expected %q", tt.ts-base, got, tt.expected)
			}
		})
	}
}

func TestFormatUnits(t *testing.T) {
	amount, _ := new(big.Int).SetString("1234500000000000000", 10)
	if got := FormatUnits(amount, 18); got != "1.2345" {
		t.Errorf("expected 1.2345, got %s", got)
	}
	if got := FormatUnits(nil, 18); got != "0" {
		t.Errorf("expected 0 for nil amount, got %s", got)
	}
}

func TestParseUnits(t *testing.T) {
	got, err := ParseUnits("1.25", 18)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected, _ := new(big.Int).SetString("1250000000000000000", 10)
	if got.Cmp(expected) != 0 {
		t.Errorf("expected %s, got %s", expected, got)
	}

	if _, err := ParseUnits("abc", 18); err == nil {
		t.Error("expected error for invalid amount")
	}
}
