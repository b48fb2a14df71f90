package format

import "testing"

func TestCurrency(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		expected string
	}{
		{"Zero", 0, "$0.00"},
		{"Small", 25, "$25.00"},
		{"Thousands separator", 1350.5, "$1,350.50"},
		{"Millions", 1234567.891, "$1,234,567.89"},
		{"Negative", -1234.56, "-$1,234.56"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Currency(tt.amount); got != tt.expected {
				t.Errorf("Currency(%v) = %q, expected %q", tt.amount, got, tt.expected)
			}
		})
	}
}

func TestSpokenCurrency(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		expected string
	}{
		{"Whole dollars", 50, "$50"},
		{"Whole thousands", 1350, "$1,350"},
		{"Cents kept", 12.5, "$12.50"},
		{"Zero", 0, "$0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SpokenCurrency(tt.amount); got != tt.expected {
				t.Errorf("SpokenCurrency(%v) = %q, expected %q", tt.amount, got, tt.expected)
			}
		})
	}
}
