package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/tradefeed/tradefeed/internal/layout"
	"github.com/tradefeed/tradefeed/internal/normalize"
	"github.com/tradefeed/tradefeed/internal/trade"
)

// Schwab extracts records from eConfirm email bodies, HTML or plain text.
// The confirmation layout differs between equities and options in which
// fields appear and in what order, so each record is located by its
// "Symbol:" label and all remaining fields are scanned independently
// inside a bounded window from that point.
type Schwab struct{}

// schwabWindow bounds the slice of flattened text scanned per record.
const schwabWindow = 2000

var (
	schwabSymbol = regexp.MustCompile(
		`Symbol:\s*(.+?)\s+(Security Description:|Action:|Type:|Trade Date:)`)
	schwabBuy        = regexp.MustCompile(`(?i)\b(Purchase|Buy|Bought)\b`)
	schwabSell       = regexp.MustCompile(`(?i)\b(Sale|Sell|Sold)\b`)
	schwabTradeDate  = regexp.MustCompile(`Trade Date:\s*([0-9]{2}/[0-9]{2}/[0-9]{2,4})`)
	schwabSettleDate = regexp.MustCompile(`Settle Date:\s*([0-9]{2}/[0-9]{2}/[0-9]{2,4})`)
	schwabChargeTot  = regexp.MustCompile(`(?i)Charge and/or Interest.*?Total:\s*\$?([\d,]+\.\d{2})`)
	schwabNumToken   = regexp.MustCompile(
		`N/A|\([\$\d,]+(?:\.\d{2,4})?\)|-?\$[\d,]+\.\d{2,4}|-?[\d,]+(?:\.\d{2,4})?`)
)

// schwabRowSpan captures the numeric span between the table headers and the
// total-amount column, truncated at known boilerplate so unrelated numbers
// from the email body are not swept in.
var schwabRowSpan = regexp.MustCompile(
	`(?i)Quantity\s+Price\s+Principal.*?(?:Total Amount|Net Amount)\s+(.+?)` +
		`(?:Additional information|If you have any questions|We will hold this|` +
		`Schwab acted as your agent|Notice: All email|Thank you for investing|$)`)

// schwabFeeLabels are the fee components summed when the charge column has
// no explicit total.
var schwabFeeLabels = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Commission:\s*\$?([\d,]+\.\d{2})`),
	regexp.MustCompile(`(?i)Industry Fee:\s*\$?([\d,]+\.\d{2})`),
	regexp.MustCompile(`(?i)Regulatory Fee:\s*\$?([\d,]+\.\d{2})`),
	regexp.MustCompile(`(?i)Options Regulatory Fee:\s*\$?([\d,]+\.\d{2})`),
	regexp.MustCompile(`(?i)Transaction Fee:\s*\$?([\d,]+\.\d{2})`),
	regexp.MustCompile(`(?i)Exchange Fee:\s*\$?([\d,]+\.\d{2})`),
	regexp.MustCompile(`(?i)Fees:\s*\$?([\d,]+\.\d{2})`),
}

// Parse flattens the body to plain text and scans every Symbol window.
func (p *Schwab) Parse(doc *Document) ([]trade.Record, error) {
	text, err := flattenBody(doc.Body)
	if err != nil {
		return nil, err
	}

	var records []trade.Record
	for _, m := range schwabSymbol.FindAllStringSubmatchIndex(text, -1) {
		rawSym := strings.TrimSpace(text[m[2]:m[3]])
		end := m[0] + schwabWindow
		if end > len(text) {
			end = len(text)
		}
		window := text[m[0]:end]

		if rec, ok := p.parseWindow(rawSym, window); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// parseWindow extracts one record from a Symbol window. A record is only
// emitted if symbol, quantity, price, and at least one of total or
// principal are all resolvable.
func (p *Schwab) parseWindow(rawSym, window string) (trade.Record, bool) {
	sym := normalize.Symbol(rawSym)
	action := p.action(window)

	tradeDate := firstGroup(schwabTradeDate, window)
	settleDate := firstGroup(schwabSettleDate, window)

	qty, price, principal, total := p.rowNumbers(window)

	fee, feeOK := p.fee(window)
	if !feeOK && principal.ok && total.ok {
		fee = normalize.Round2(abs(total.v) - abs(principal.v))
		feeOK = true
	}

	if sym == "" || !qty.ok || !price.ok || (!total.ok && !principal.ok) {
		return trade.Record{}, false
	}

	// Prefer the parsed total; otherwise derive it from principal and fee
	// by action semantics: buys pay the fee on top, sells give it up.
	amount := total
	if !amount.ok && principal.ok {
		effFee := 0.0
		if feeOK {
			effFee = fee
		}
		if action == trade.Sell {
			amount = numVal{v: normalize.Round2(principal.v - effFee), ok: true}
		} else {
			amount = numVal{v: normalize.Round2(principal.v + effFee), ok: true}
		}
	}
	// Buys are cash out, sells are cash in, however the amount was derived.
	if amount.ok {
		switch {
		case action == trade.Buy && amount.v > 0:
			amount.v = -amount.v
		case action == trade.Sell && amount.v < 0:
			amount.v = -amount.v
		}
	}

	if !feeOK {
		fee = 0
	}
	date := ""
	switch {
	case settleDate != "":
		date = normalize.Date(settleDate)
	case tradeDate != "":
		date = normalize.Date(tradeDate)
	}

	return trade.Record{
		Symbol:   sym,
		Type:     action,
		Currency: "USD",
		Shares:   qty.v,
		Price:    price.v,
		Fee:      fee,
		Date:     date,
		Total:    amount.v,
	}, true
}

// action resolves buy versus sell by whichever vocabulary match sits
// nearer the window start; the opposite side's words often co-occur in
// disclaimer text further down.
func (p *Schwab) action(window string) trade.Type {
	mb := schwabBuy.FindStringIndex(window)
	ms := schwabSell.FindStringIndex(window)
	switch {
	case mb != nil && ms != nil:
		if ms[0] <= mb[0] {
			return trade.Sell
		}
		return trade.Buy
	case ms != nil:
		return trade.Sell
	case mb != nil:
		return trade.Buy
	default:
		return ""
	}
}

// numVal is a number with a resolvability flag; unresolvable fields keep
// records from being emitted rather than defaulting.
type numVal struct {
	v  float64
	ok bool
}

// rowNumbers pulls quantity, price, principal and total from the numeric
// span under the Quantity/Price/Principal headers. The first three tokens
// are positional; the total is the last token that still parses as money.
func (p *Schwab) rowNumbers(window string) (qty, price, principal, total numVal) {
	m := schwabRowSpan.FindStringSubmatch(window)
	if m == nil {
		return
	}
	tokens := schwabNumToken.FindAllString(m[1], -1)
	if len(tokens) < 4 {
		return
	}

	if v, ok := normalize.Number(tokens[0]); ok {
		qty = numVal{v, true}
	}
	if v, ok := normalize.Money(tokens[1]); ok {
		price = numVal{v, true}
	}
	if v, ok := normalize.Money(tokens[2]); ok {
		principal = numVal{v, true}
	}
	for i := len(tokens) - 1; i >= 0; i-- {
		if v, ok := normalize.Money(tokens[i]); ok {
			total = numVal{v, true}
			break
		}
	}
	return
}

// fee resolves the charge column: an explicit total when present,
// otherwise the sum of known fee components. Zero matches means the fee is
// unknown, not zero.
func (p *Schwab) fee(window string) (float64, bool) {
	if m := schwabChargeTot.FindStringSubmatch(window); m != nil {
		if v, ok := normalize.Money(m[1]); ok {
			return v, true
		}
	}

	sum := 0.0
	found := false
	for _, re := range schwabFeeLabels {
		for _, m := range re.FindAllStringSubmatch(window, -1) {
			if v, ok := normalize.Money(m[1]); ok {
				sum += v
				found = true
			}
		}
	}
	if !found {
		return 0, false
	}
	return normalize.Round2(sum), true
}

// flattenBody strips HTML to visible text with single-space separators, or
// collapses whitespace directly for plain-text bodies.
func flattenBody(body string) (string, error) {
	if strings.Contains(body, "<") && strings.Contains(body, "</") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			return "", err
		}
		doc.Find("script, style").Remove()
		var parts []string
		for _, n := range doc.Nodes {
			collectText(n, &parts)
		}
		return layout.CollapseSpaces(strings.Join(parts, " ")), nil
	}
	return layout.CollapseSpaces(body), nil
}

// collectText gathers every text node in document order, matching the
// space-separated flattening the window regexes are written against.
func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
