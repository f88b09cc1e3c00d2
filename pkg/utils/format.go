package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatPrice renders a price with exactly two decimals, truncating rather
// than rounding. 101.239 renders as "101.23", matching the convention of
// the publishing system the copy feeds into.
func FormatPrice(f float64) string {
	truncated := math.Trunc(f*100) / 100
	return fmt.Sprintf("%.2f", truncated)
}

// FormatPct renders a change percentage as its absolute value with exactly
// two decimals. Sign is conveyed by the surrounding verb, never by the
// number itself.
func FormatPct(f float64) string {
	return fmt.Sprintf("%.2f", math.Abs(f))
}

// NormalizeTicker uppercases and trims a user-supplied ticker symbol.
func NormalizeTicker(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
