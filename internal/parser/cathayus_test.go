package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradefeed/tradefeed/internal/layout"
	"github.com/tradefeed/tradefeed/internal/trade"
)

// usPage lays out one statement page: a trade-reference header, body lines
// between the header and the disclaimer, and a trailing disclaimer block.
func usPage(body ...string) []layout.Fragment {
	page := []layout.Fragment{
		{Text: "TradeReference", Top: 40, Bottom: 48, X0: 0},
		{Text: "交易序號", Top: 40, Bottom: 48, X0: 80},
	}
	top := 60.0
	for _, s := range body {
		page = append(page, layout.Fragment{Text: s, Top: top, Bottom: top + 8, X0: 0})
		top += 12
	}
	page = append(page, layout.Fragment{Text: "重要事項說明", Top: 700, Bottom: 708, X0: 0})
	return page
}

func TestCathayUS_Parse(t *testing.T) {
	doc := &Document{
		Kind: KindCathayUS,
		Pages: [][]layout.Fragment{usPage(
			"12345678 APPLE INC/AAPL USD 195.50 1,955.00",
			"US 買進 10 1,955.00 3.50 2025/09/08",
			"TWD 32.15 62,853",
		)},
	}

	records, err := (&CathayUS{}).Parse(doc)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, trade.Record{
		Symbol:   "APPLE INC",
		Type:     trade.Buy,
		Currency: "USD",
		Shares:   10,
		Price:    195.50,
		Fee:      3.50,
		Date:     "2025/09/08",
		Total:    1955,
	}, records[0])
}

func TestCathayUS_DividendAndRawActionPassThrough(t *testing.T) {
	doc := &Document{
		Kind: KindCathayUS,
		Pages: [][]layout.Fragment{usPage(
			"11112222 VANGUARD ETF/VT USD 0.85 85.00",
			"US 除息 100 85.00 0 2025/09/10",
			"USD 1.00 85.00",
			"33334444 SOME CORP/SC USD 10.00 100.00",
			"US 現股 10 100.00 1.00 2025/09/10",
			"USD 1.00 100.00",
		)},
	}

	records, err := (&CathayUS{}).Parse(doc)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, trade.Dividend, records[0].Type)
	assert.Equal(t, trade.Type("現股"), records[1].Type)
}

func TestCathayUS_PageWithoutHeaderSkipped(t *testing.T) {
	doc := &Document{
		Kind: KindCathayUS,
		Pages: [][]layout.Fragment{{
			{Text: "12345678 APPLE INC/AAPL USD 195.50 1,955.00", Top: 60, Bottom: 68, X0: 0},
		}},
	}

	records, err := (&CathayUS{}).Parse(doc)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCathayUS_DisclaimerRegionExcluded(t *testing.T) {
	page := usPage(
		"12345678 APPLE INC/AAPL USD 195.50 1,955.00",
		"US 買進 10 1,955.00 3.50 2025/09/08",
		"USD 1.00 1,955.00",
	)
	// A reference-shaped line inside the disclaimer region must not be
	// scanned.
	page = append(page, layout.Fragment{
		Text: "87654321 Important notice about your account", Top: 710, Bottom: 718, X0: 0,
	})

	records, err := (&CathayUS{}).Parse(&Document{Kind: KindCathayUS, Pages: [][]layout.Fragment{page}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "APPLE INC", records[0].Symbol)
}

func TestCathayUS_MissingNumbersDropRecord(t *testing.T) {
	doc := &Document{
		Kind: KindCathayUS,
		Pages: [][]layout.Fragment{usPage(
			// Row A without a recognized currency token: no price, no total.
			"12345678 MYSTERY PRODUCT",
			"US 買進 10 100.00 1.00 2025/09/08",
			"USD 1.00 100.00",
		)},
	}

	records, err := (&CathayUS{}).Parse(doc)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCathayUS_RowAParsing(t *testing.T) {
	p := &CathayUS{}

	t.Run("currency token splits product from figures", func(t *testing.T) {
		fields := p.parseRowA("12345678 TAIWAN SEMICONDUCTOR ADR/TSM USD 185.20 5,556.00")
		assert.Equal(t, "TAIWAN SEMICONDUCTOR ADR", fields["Product"])
		assert.Equal(t, "USD", fields["Currency"])
		assert.Equal(t, "185.20", fields["Price"])
		assert.Equal(t, "5,556.00", fields["AcctReceivablePayable"])
	})

	t.Run("no currency token keeps product only", func(t *testing.T) {
		fields := p.parseRowA("12345678 SOME PRODUCT/XY")
		assert.Equal(t, "SOME PRODUCT", fields["Product"])
		assert.Empty(t, fields["Currency"])
	})
}

func TestCathayUS_RowBParsing(t *testing.T) {
	p := &CathayUS{}
	fields := rawFields{}
	p.parseRowB("US 賣出 250 48,000 72 2025/09/05 2025/09/09", fields)

	assert.Equal(t, "US", fields["Market"])
	assert.Equal(t, "賣出", fields["TradeType"])
	assert.Equal(t, "250", fields["Shares"])
	assert.Equal(t, "48,000", fields["Amount"])
	assert.Equal(t, "72", fields["HandlingFee"])
	// The last date token is the settlement date.
	assert.Equal(t, "2025/09/09", fields["SettlementDate"])
}
