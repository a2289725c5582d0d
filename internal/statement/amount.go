package statement

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var trailingDecimalComma = regexp.MustCompile(`,\d{2}$`)

// ParseAmount parses the amount notations found in bank exports:
//
//   - plain numerics: "1234.56"
//   - trailing currency markers: "99,99 EUR", "12.50€"
//   - parenthesized negatives: "(123.45)" -> -123.45
//   - mixed separators, where the separator appearing last is the decimal
//     one: "1.234,56" (Italian) and "1,234.56" (English) both -> 1234.56
//   - a lone comma is decimal only when followed by exactly two digits at the
//     end of the string, otherwise it is a thousands separator
//
// The returned value keeps its sign; callers normalize to magnitude plus
// direction.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount cell is empty")
	}

	negative := false

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = stripCurrencyMarker(s)

	// Interior spaces (including non-breaking) are sometimes used as
	// thousands separators.
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")

	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	if s == "" {
		return decimal.Zero, fmt.Errorf("amount cell has no digits")
	}

	s = normalizeSeparators(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	if negative {
		d = d.Neg()
	}
	return d, nil
}

// stripCurrencyMarker removes a leading or trailing currency symbol or code.
func stripCurrencyMarker(s string) string {
	s = strings.TrimSpace(s)

	upper := strings.ToUpper(s)
	for _, marker := range []string{"EUR", "€"} {
		if strings.HasSuffix(upper, marker) {
			s = strings.TrimSpace(s[:len(s)-len(marker)])
			upper = strings.ToUpper(s)
		}
		if strings.HasPrefix(upper, marker) {
			s = strings.TrimSpace(s[len(marker):])
			upper = strings.ToUpper(s)
		}
	}

	return s
}

// normalizeSeparators rewrites thousands/decimal separators into the plain
// dot-decimal form decimal.NewFromString expects.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// Both present: whichever appears last is the decimal separator.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if trailingDecimalComma.MatchString(s) {
			// The last comma is the decimal separator; any earlier
			// ones are thousands separators.
			s = strings.ReplaceAll(s[:lastComma], ",", "") + "." + s[lastComma+1:]
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	return s
}
