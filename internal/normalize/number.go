// Package normalize provides pure conversion functions for the raw tokens
// found in brokerage statements: numbers with thousands separators, money
// values with accounting conventions, localized dates, and security symbols.
package normalize

import (
	"strconv"
	"strings"
)

// Number parses an integer or decimal token, stripping thousands
// separators. The boolean reports whether the token was parseable.
func Number(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

// Money parses a monetary token. On top of Number it accepts a leading
// currency symbol, a trailing CR/DR marker, and parenthesized negatives.
// The literal N/A parses to zero, distinct from an unparseable token.
func Money(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.EqualFold(s, "N/A") {
		return 0, true
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.TrimSuffix(s, "CR")
	s = strings.TrimSuffix(s, "DR")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

// Round2 rounds to cents. Derived fees and totals go through this so that
// float noise never leaks into emitted records.
func Round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}
