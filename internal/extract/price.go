// internal/extract/price.go
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// currencyPricePattern matches a currency-prefixed monetary amount:
// symbol, then either comma-grouped thousands or a plain digit run,
// with an optional two-digit fraction. The comma-grouped alternative
// requires at least one group; a plain run must never half-match it,
// or "$1999.99" would extract as 199.
var currencyPricePattern = regexp.MustCompile(`[$€£]\s*([0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]{1,2})?|[0-9]+(?:\.[0-9]{1,2})?)`)

// barePricePattern matches the same amount without requiring a symbol,
// for values coming from trusted structured sources.
var barePricePattern = regexp.MustCompile(`[0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]{1,2})?|[0-9]+(?:\.[0-9]{1,2})?`)

// ParsePrice interprets a value from a trusted source (structured data,
// meta tag, or a dedicated price element). A currency-prefixed amount is
// preferred; failing that, the first bare number is taken. Values outside
// [min, max] are discarded as implausible. Returns 0, the unknown
// sentinel, when nothing plausible is found.
func ParsePrice(s string, min, max float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if m := currencyPricePattern.FindStringSubmatch(s); m != nil {
		if v := parseAmount(m[1]); plausible(v, min, max) {
			return v
		}
	}
	if m := barePricePattern.FindString(s); m != "" {
		if v := parseAmount(m); plausible(v, min, max) {
			return v
		}
	}
	return 0
}

// FindPriceInText scans free text for the first currency-prefixed
// amount. Unlike ParsePrice it never accepts bare numbers, so dosage
// strings like "100mg" cannot masquerade as prices. Returns 0 when no
// plausible match exists.
func FindPriceInText(text string, min, max float64) float64 {
	for _, m := range currencyPricePattern.FindAllStringSubmatch(text, -1) {
		if v := parseAmount(m[1]); plausible(v, min, max) {
			return v
		}
	}
	return 0
}

func parseAmount(s string) float64 {
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func plausible(v, min, max float64) bool {
	return v >= min && v <= max
}
