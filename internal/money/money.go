// Package money converts heterogeneous stored price values into integer
// minor-currency units for exact arithmetic and provider APIs.
package money

import (
	"math"
	"strconv"
	"strings"
)

var currencySymbols = []string{"€", "$", "£", "EUR", "USD", "GBP"}

// ParseCents accepts either a numeric amount in major units or a
// formatted price string ("349€", "34,50€", "$12.99") and returns the
// equivalent amount in minor units, rounded to the nearest cent.
//
// Unparsable input yields 0. Callers must treat 0 as invalid rather
// than proceed with it; the non-throwing contract exists so a catalog
// sync pass can mark a single product failed without aborting a batch.
func ParseCents(value interface{}) int64 {
	switch v := value.(type) {
	case float64:
		return toCents(v)
	case float32:
		return toCents(float64(v))
	case int:
		return int64(v) * 100
	case int64:
		return v * 100
	case string:
		return parseStringCents(v)
	default:
		return 0
	}
}

func parseStringCents(s string) int64 {
	s = strings.TrimSpace(s)
	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.TrimSpace(s)
	// comma as decimal separator ("34,50")
	s = strings.ReplaceAll(s, ",", ".")

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return toCents(f)
}

func toCents(major float64) int64 {
	if major < 0 {
		return 0
	}
	return int64(math.Round(major * 100))
}
