package normalize

import (
	"strings"
	"time"
)

// slashDateFormats are the layouts seen across the three statement sources.
var slashDateFormats = []string{
	"01/02/06",
	"01/02/2006",
	"1/2/06",
	"1/2/2006",
}

// Date normalizes a M/D/YY or M/D/YYYY token to YYYY/MM/DD. Two-digit years
// are assumed to mean 2000-2099. Unparseable input is returned unchanged so
// callers can still surface the raw string.
func Date(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	for _, layout := range slashDateFormats {
		t, err := time.Parse(layout, trimmed)
		if err != nil {
			continue
		}
		if t.Year() < 2000 {
			t = t.AddDate(100, 0, 0)
		}
		return t.Format("2006/01/02")
	}
	return s
}

// parseExpiry parses an option expiry in M/D/YY or M/D/YYYY form.
func parseExpiry(s string) (time.Time, bool) {
	for _, layout := range slashDateFormats {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() < 2000 {
			t = t.AddDate(100, 0, 0)
		}
		return t, true
	}
	return time.Time{}, false
}
