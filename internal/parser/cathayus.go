package parser

import (
	"regexp"
	"strings"

	"github.com/tradefeed/tradefeed/internal/layout"
	"github.com/tradefeed/tradefeed/internal/normalize"
	"github.com/tradefeed/tradefeed/internal/trade"
)

// CathayUS extracts records from 客戶買賣報告書 (overseas trade report)
// PDFs. Every page repeats header and disclaimer boilerplate, so scanning
// is restricted to the region between the trade-reference header and the
// disclaimer block. Records are fixed-shape three-line groups anchored by
// an eight-digit reference number.
type CathayUS struct{}

const (
	usRowTolerance = 2.5
	// Disclaimer rows start slightly above their measured top; subtract a
	// small margin so their ascenders don't leak into the region.
	usDisclaimerMargin = 5
)

var usCurrencies = map[string]bool{"USD": true, "TWD": true}

var usActions = map[string]trade.Type{
	"買進": trade.Buy,
	"賣出": trade.Sell,
	"除息": trade.Dividend,
}

var (
	usRefLine  = regexp.MustCompile(`^\d{8}\b`)
	usRefSplit = regexp.MustCompile(`^(\d{8})\s+(.+)$`)
	usNumToken = regexp.MustCompile(`^-?[\d,]+(?:\.\d+)?$`)
	usISODate  = regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`)
	usCurrency = regexp.MustCompile(`^[A-Z]{3}$`)
)

// rawFields is the source-tagged field map produced by the row parsers and
// consumed by the projection step.
type rawFields map[string]string

// Parse walks each page independently and emits records in encounter order.
func (p *CathayUS) Parse(doc *Document) ([]trade.Record, error) {
	var records []trade.Record
	for _, page := range doc.Pages {
		records = append(records, p.parsePage(page)...)
	}
	return records, nil
}

func (p *CathayUS) parsePage(page []layout.Fragment) []trade.Record {
	var headerBottom float64
	found := false
	for _, f := range page {
		if strings.Contains(f.Text, "TradeReference") || strings.Contains(f.Text, "交易序號") {
			if !found || f.Bottom > headerBottom {
				headerBottom = f.Bottom
			}
			found = true
		}
	}
	if !found {
		return nil
	}

	regionBottom := pageBottom(page)
	for _, f := range page {
		if strings.HasPrefix(f.Text, "重要事項") || strings.Contains(f.Text, "Important") {
			if f.Top-usDisclaimerMargin < regionBottom {
				regionBottom = f.Top - usDisclaimerMargin
			}
		}
	}

	var region []layout.Fragment
	for _, f := range page {
		if f.Top >= headerBottom+2 && f.Top <= regionBottom {
			region = append(region, f)
		}
	}

	lines := layout.ClusterPage(region, usRowTolerance)

	var records []trade.Record
	for i := 0; i < len(lines); {
		if !usRefLine.MatchString(lines[i]) {
			i++
			continue
		}
		fields := p.parseRowA(lines[i])
		if i+1 < len(lines) {
			p.parseRowB(lines[i+1], fields)
		}
		if i+2 < len(lines) {
			// Actual-currency and exchange-rate figures; parsed but kept
			// out of the canonical schema.
			_ = p.parseRowC(lines[i+2])
		}
		if rec, ok := p.project(fields); ok {
			records = append(records, rec)
		}
		i += 3
	}
	return records
}

// parseRowA reads the reference line: product description, an optional
// currency code, price and receivable/payable. The currency is located by
// an exact three-letter match against the known set; everything before it
// is the product, truncated at the first '/'.
func (p *CathayUS) parseRowA(s string) rawFields {
	fields := rawFields{}
	m := usRefSplit.FindStringSubmatch(s)
	if m == nil {
		return fields
	}
	toks := strings.Fields(m[2])

	curIdx := -1
	for i, t := range toks {
		if usCurrency.MatchString(t) && usCurrencies[t] {
			curIdx = i
		}
	}

	if curIdx < 0 {
		fields["Product"] = productName(m[2])
		return fields
	}

	fields["Currency"] = toks[curIdx]
	if curIdx+1 < len(toks) {
		fields["Price"] = toks[curIdx+1]
	}
	if curIdx+2 < len(toks) {
		fields["AcctReceivablePayable"] = toks[curIdx+2]
	}
	fields["Product"] = productName(strings.Join(toks[:curIdx], " "))
	return fields
}

// parseRowB reads the market code, trade-type token, a trailing settlement
// date, and the first three numeric tokens as shares, amount and fee.
func (p *CathayUS) parseRowB(s string, fields rawFields) {
	toks := strings.Fields(s)
	if len(toks) > 0 {
		fields["Market"] = toks[0]
	}
	if len(toks) > 1 {
		fields["TradeType"] = toks[1]
	}
	for i := len(toks) - 1; i >= 0; i-- {
		if usISODate.MatchString(toks[i]) {
			fields["SettlementDate"] = toks[i]
			break
		}
	}
	var nums []string
	for _, t := range toks {
		if usNumToken.MatchString(t) {
			nums = append(nums, t)
		}
	}
	keys := []string{"Shares", "Amount", "HandlingFee"}
	for i, key := range keys {
		if i < len(nums) {
			fields[key] = nums[i]
		}
	}
}

// parseRowC reads the settlement-currency line: actual currency, exchange
// rate and actual receivable/payable.
func (p *CathayUS) parseRowC(s string) rawFields {
	fields := rawFields{}
	toks := strings.Fields(s)
	if len(toks) > 0 && usCurrency.MatchString(toks[0]) {
		fields["ActualCurrency"] = toks[0]
	}
	var nums []string
	for _, t := range toks {
		if usNumToken.MatchString(t) {
			nums = append(nums, t)
		}
	}
	if len(nums) > 0 {
		fields["ExchangeRate"] = nums[0]
	}
	if len(nums) > 1 {
		fields["ActualAcctReceivablePayable"] = nums[1]
	}
	return fields
}

// project maps the merged field map into the canonical schema. Unmapped
// trade-type tokens pass through as their raw string.
func (p *CathayUS) project(fields rawFields) (trade.Record, bool) {
	tradeType := trade.Type(fields["TradeType"])
	if mapped, ok := usActions[fields["TradeType"]]; ok {
		tradeType = mapped
	}

	shares, sharesOK := normalize.Number(fields["Shares"])
	price, priceOK := normalize.Number(fields["Price"])
	total, totalOK := normalize.Number(fields["AcctReceivablePayable"])
	fee, feeOK := normalize.Number(fields["HandlingFee"])
	if !feeOK {
		fee = 0
	}
	if !sharesOK || !priceOK || !totalOK {
		return trade.Record{}, false
	}

	return trade.Record{
		Symbol:   fields["Product"],
		Type:     tradeType,
		Currency: fields["Currency"],
		Shares:   shares,
		Price:    price,
		Fee:      fee,
		Date:     fields["SettlementDate"],
		Total:    total,
	}, true
}

func productName(full string) string {
	if idx := strings.Index(full, "/"); idx >= 0 {
		return full[:idx]
	}
	return full
}

func pageBottom(page []layout.Fragment) float64 {
	var max float64
	for _, f := range page {
		if f.Top > max {
			max = f.Top
		}
	}
	return max
}
