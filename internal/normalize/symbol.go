package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// optionPattern matches raw option descriptions such as
// "FTNT 09/19/2025 77.00 C" or "AAPL 9/6/25 195 P".
var optionPattern = regexp.MustCompile(
	`^(?P<root>[A-Za-z0-9\.\-]+)\s+(?P<exp>\d{1,2}/\d{1,2}/\d{2,4})\s+(?P<strike>[\d,]+(?:\.\d{1,4})?)\s+(?P<cp>[CPcp])$`,
)

var fourDigitCode = regexp.MustCompile(`^\d{4}$`)

// Symbol canonicalizes a raw security description. Option descriptions are
// rewritten to OCC-style identifiers (root + YYMMDD expiry + C/P flag +
// 8-digit strike in thousandths); anything else passes through with
// whitespace collapsed. Normalization failure degrades to the raw
// description, never to an error.
func Symbol(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	m := optionPattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	occ, ok := occSymbol(m[1], m[2], m[4], m[3])
	if !ok {
		return s
	}
	return occ
}

// occSymbol builds ROOT + YYMMDD + C|P + %08d(round(strike*1000)).
func occSymbol(root, expiry, cp, strike string) (string, bool) {
	t, ok := parseExpiry(expiry)
	if !ok {
		return "", false
	}
	v, ok := Number(strike)
	if !ok {
		return "", false
	}
	thousandths := int(math.Round(v * 1000))
	r := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(root), " ", ""))
	flag := strings.ToUpper(cp)[:1]
	return fmt.Sprintf("%s%s%s%08d", r, t.Format("060102"), flag, thousandths), true
}

// TWSymbol resolves a localized security name through the statement's own
// name-to-code table and appends the Taiwan market suffix when the resolved
// code is exactly four digits. Unresolved names pass through unchanged.
func TWSymbol(name string, codes map[string]string) string {
	symbol := name
	if code, ok := codes[name]; ok {
		symbol = code
	}
	if fourDigitCode.MatchString(symbol) {
		return symbol + ".TW"
	}
	return symbol
}

// FoldWidth folds fullwidth characters to their halfwidth equivalents.
// Taiwan statements mix fullwidth digits and punctuation into otherwise
// numeric columns.
func FoldWidth(s string) string {
	return width.Narrow.String(s)
}
