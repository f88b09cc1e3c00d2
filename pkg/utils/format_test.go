package utils

import "testing"

func TestFormatPriceTruncates(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{101.23, "101.23"},
		{101.239, "101.23"}, // truncation, not rounding
		{101.2, "101.20"},
		{52.1, "52.10"},
		{0.996, "0.99"},
		{1000, "1000.00"},
	}
	for _, tt := range tests {
		if got := FormatPrice(tt.in); got != tt.want {
			t.Errorf("FormatPrice(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPctAbsolute(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.23, "1.23"},
		{-0.5, "0.50"},
		{0, "0.00"},
		{-12.34, "12.34"},
	}
	for _, tt := range tests {
		if got := FormatPct(tt.in); got != tt.want {
			t.Errorf("FormatPct(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTicker(t *testing.T) {
	if got := NormalizeTicker("  aapl "); got != "AAPL" {
		t.Errorf("NormalizeTicker = %q, want AAPL", got)
	}
}
