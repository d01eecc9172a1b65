// internal/extract/price_test.go
package extract

import "testing"

func TestFindPriceInText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected float64
	}{
		{"currency prefixed amount", "Now Foods CoQ10 $19.99", 19.99},
		{"no dollar sign means unknown", "Now Foods CoQ10 100mg capsules", 0},
		{"bare number is not a price", "Rated 4.8 out of 5 by 1299 customers", 0},
		{"thousands separator", "Premium bundle $1,299.99 today", 1299.99},
		{"four digits without separator", "Special $1999.99 today", 1999.99},
		{"euro symbol", "Nur €24.50 heute", 24.5},
		{"implausibly large discarded", "$99999.00 placeholder", 0},
		{"zero discarded", "$0.00", 0},
		{"first plausible match wins", "was $0.00 now $12.49", 12.49},
		{"empty text", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindPriceInText(tt.text, 0.01, 10000)
			if got != tt.expected {
				t.Errorf("FindPriceInText(%q) = %v, want %v", tt.text, got, tt.expected)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{"bare structured value", "24.99", 24.99},
		{"currency prefixed", "$24.99", 24.99},
		{"currency with spaces", "$ 1,050.00", 1050},
		{"four digits without separator", "1999.99", 1999.99},
		{"currency four digits without separator", "$1999.99", 1999.99},
		{"whole dollars", "35", 35},
		{"garbage", "call for price", 0},
		{"out of range", "0.001", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(tt.input, 0.01, 10000)
			if got != tt.expected {
				t.Errorf("ParsePrice(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParsePriceRespectsBounds(t *testing.T) {
	if got := ParsePrice("$5.00", 10, 100); got != 0 {
		t.Errorf("price below min should be discarded, got %v", got)
	}
	if got := ParsePrice("$500.00", 10, 100); got != 0 {
		t.Errorf("price above max should be discarded, got %v", got)
	}
}
