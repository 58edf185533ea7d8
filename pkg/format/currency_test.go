package format

import "testing"

func TestCurrency(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{0, "₹0.00"},
		{89.29, "₹89.29"},
		{1234.5, "₹1,234.50"},
		{1234567.891, "₹1,234,567.89"},
		{-42, "-₹42.00"},
	}

	for _, tt := range tests {
		if got := Currency(tt.amount); got != tt.expected {
			t.Errorf("Currency(%v) = %q, expected %q", tt.amount, got, tt.expected)
		}
	}
}

func TestNumericCurrency(t *testing.T) {
	if got := NumericCurrency(-9876.543); got != "-9,876.54" {
		t.Errorf("NumericCurrency() = %q", got)
	}
	if got := NumericCurrency(100); got != "100.00" {
		t.Errorf("NumericCurrency() = %q", got)
	}
}
