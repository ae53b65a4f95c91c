package parser

import (
	"regexp"
	"strings"

	"github.com/tradefeed/tradefeed/internal/layout"
	"github.com/tradefeed/tradefeed/internal/normalize"
	"github.com/tradefeed/tradefeed/internal/trade"
)

// CathayTW extracts trade rows from 國泰綜合證券 daily statement PDFs.
// The statement carries a trade/settlement date header, a holdings section
// that doubles as the name-to-code table, and trade rows whose
// receivable/payable total lands on a nearby standalone line.
type CathayTW struct{}

// twRowTolerance matches the line spacing of the statement's 10pt table.
const twRowTolerance = 3.0

var twActions = map[string]trade.Type{
	"買進":   trade.Buy,
	"集買":   trade.Buy,
	"現股買進": trade.Buy,
	"賣出":   trade.Sell,
	"集賣":   trade.Sell,
	"現股賣出": trade.Sell,
}

// twSummaryLabels are aggregate rows that match the trade-row shape but are
// not trades.
var twSummaryLabels = map[string]bool{
	"總合計":   true,
	"買進總計：": true,
	"賣出總計：": true,
}

var (
	// name, action, shares, price, amount, fee, tax; trailing columns ignored.
	twTradeRow = regexp.MustCompile(
		`^(\S+)\s+(\S+)\s+([\d,]+)\s+([\d,]+(?:\.\d+)?)\s+([\d,]+)\s+([\d,]+)\s+([\d,]+)\b`)
	twDatePair   = regexp.MustCompile(`(\d{4}/\d{2}/\d{2})\s+(\d{4}/\d{2}/\d{2})`)
	twCodeRow    = regexp.MustCompile(`^(\d{4})\s+(\S+)\b`)
	twStandalone = regexp.MustCompile(`^\s*(-?[\d,]+)\s*$`)
)

// Parse scans the clustered line sequence for trade rows. A row lacking
// shares, price, or a resolved receivable/payable total is dropped.
func (p *CathayTW) Parse(doc *Document) ([]trade.Record, error) {
	lines := layout.ClusterPages(doc.Pages, twRowTolerance)
	for i, s := range lines {
		lines[i] = normalize.FoldWidth(s)
	}

	settleDate := p.settlementDate(lines)
	codes := p.codeMapping(lines)

	var records []trade.Record
	for i := 0; i < len(lines); i++ {
		m := twTradeRow.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		name, action := m[1], m[2]
		if twSummaryLabels[name] {
			continue
		}
		tradeType, ok := twActions[action]
		if !ok {
			continue
		}

		shares, sharesOK := normalize.Number(m[3])
		price, priceOK := normalize.Number(m[4])
		fee, feeOK := normalize.Number(m[6])
		if !feeOK {
			fee = 0
		}

		// The receivable/payable total sits on a standalone line shortly
		// after the trade row; the first non-zero match wins and its line
		// is consumed. A genuine zero settlement would be skipped here,
		// matching the statement's own presentation.
		var total float64
		totalOK := false
		for k := 1; k <= 3 && i+k < len(lines); k++ {
			m2 := twStandalone.FindStringSubmatch(lines[i+k])
			if m2 == nil || strings.TrimSpace(m2[1]) == "0" {
				continue
			}
			if v, ok := normalize.Number(m2[1]); ok {
				total = v
				totalOK = true
				i += k
				break
			}
		}

		if !sharesOK || !priceOK || !totalOK {
			continue
		}

		records = append(records, trade.Record{
			Symbol:   normalize.TWSymbol(name, codes),
			Type:     tradeType,
			Currency: "TWD",
			Shares:   shares,
			Price:    price,
			Fee:      fee,
			Date:     settleDate,
			Total:    total,
		})
	}
	return records, nil
}

// settlementDate finds the 成交日期/交割日期 header and reads the second
// date token off the following line. The settlement date is used for every
// record in the document, aligning with the US statement semantics.
func (p *CathayTW) settlementDate(lines []string) string {
	for i, s := range lines {
		if strings.Contains(s, "成交日期") && strings.Contains(s, "交割日期") && i+1 < len(lines) {
			if m := twDatePair.FindStringSubmatch(lines[i+1]); m != nil {
				return m[2]
			}
		}
	}
	return ""
}

// codeMapping reads the 代碼/股票名稱 holdings section into a name-to-code
// table. The block ends at the first blank line or a known footer marker.
func (p *CathayTW) codeMapping(lines []string) map[string]string {
	codes := make(map[string]string)
	inBlock := false
	for _, s := range lines {
		if strings.Contains(s, "代碼") && strings.Contains(s, "股票名稱") {
			inBlock = true
			continue
		}
		if !inBlock {
			continue
		}
		if strings.TrimSpace(s) == "" || strings.Contains(s, "集保市值總計") || strings.Contains(s, "理財資訊") {
			break
		}
		if m := twCodeRow.FindStringSubmatch(s); m != nil {
			codes[m[2]] = m[1]
		}
	}
	return codes
}
