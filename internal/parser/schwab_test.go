package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradefeed/tradefeed/internal/trade"
)

const schwabEquityBuy = `Your eConfirm from Charles Schwab
Symbol: AAPL Security Description: APPLE INC Action: Purchase
Trade Date: 09/04/25 Settle Date: 09/08/25
Quantity Price Principal Charge and/or Interest Total Amount
10 $195.50 $1,955.00 $0.75 $1,955.75
Additional information about your trade confirmation follows.`

const schwabEquitySale = `Symbol: MSFT Security Description: MICROSOFT CORP Action: Sale
Trade Date: 09/04/25 Settle Date: 09/08/25
Quantity Price Principal Charge and/or Interest Total Amount
5 $420.00 $2,100.00 $0.35 $2,099.65
Additional information follows.`

const schwabOptionSale = `Symbol: FTNT 09/19/2025 77.00 C Action: Sale
Trade Date: 09/05/25 Settle Date: 09/08/25
Quantity Price Principal Charge and/or Interest Total Amount
1 $2.50 $250.00 Commission: $0.65 Industry Fee: $0.03 Total: $0.68 $249.32
If you have any questions about this trade, contact us.`

func TestSchwab_EquityBuy(t *testing.T) {
	doc := &Document{Kind: KindSchwabText, Body: schwabEquityBuy}

	records, err := (&Schwab{}).Parse(doc)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, trade.Record{
		Symbol:   "AAPL",
		Type:     trade.Buy,
		Currency: "USD",
		Shares:   10,
		Price:    195.50,
		Fee:      0.75,
		Date:     "2025/09/08",
		Total:    -1955.75,
	}, records[0])
}

func TestSchwab_SaleTotalIsPositive(t *testing.T) {
	doc := &Document{Kind: KindSchwabText, Body: schwabEquitySale}

	records, err := (&Schwab{}).Parse(doc)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, trade.Sell, records[0].Type)
	assert.Equal(t, 2099.65, records[0].Total)
	// Fee derived as |total| - |principal| when no explicit charge total;
	// negative for sales, where proceeds land below principal.
	assert.InDelta(t, -0.35, records[0].Fee, 1e-9)
}

func TestSchwab_OptionSaleWithChargeColumn(t *testing.T) {
	doc := &Document{Kind: KindSchwabText, Body: schwabOptionSale}

	records, err := (&Schwab{}).Parse(doc)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "FTNT250919C00077000", rec.Symbol)
	assert.Equal(t, trade.Sell, rec.Type)
	assert.Equal(t, 1.0, rec.Shares)
	assert.Equal(t, 2.50, rec.Price)
	assert.Equal(t, 0.68, rec.Fee)
	assert.Equal(t, 249.32, rec.Total)
}

func TestSchwab_HTMLBody(t *testing.T) {
	body := `<html><body>
	<p>Symbol: <b>AAPL</b></p><p>Action: Purchase</p>
	<p>Trade Date: 09/04/25 Settle Date: 09/08/25</p>
	<table><tr><th>Quantity</th><th>Price</th><th>Principal</th>
	<th>Charge and/or Interest</th><th>Total Amount</th></tr>
	<tr><td>10</td><td>$195.50</td><td>$1,955.00</td><td>$0.75</td><td>$1,955.75</td></tr></table>
	<p>Additional information</p></body></html>`

	records, err := (&Schwab{}).Parse(&Document{Kind: KindSchwabHTML, Body: body})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "AAPL", records[0].Symbol)
	assert.Equal(t, -1955.75, records[0].Total)
}

func TestSchwab_RequiredFieldGating(t *testing.T) {
	// Symbol, quantity and price resolve, but neither total nor principal
	// does: no record may be emitted.
	body := `Symbol: AAPL Action: Purchase
Trade Date: 09/04/25
Quantity and pricing details to follow in a later confirmation.`

	records, err := (&Schwab{}).Parse(&Document{Kind: KindSchwabText, Body: body})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSchwab_BuyTotalAlwaysNonPositive(t *testing.T) {
	// Even when the source total is printed unsigned, a buy is cash out.
	records, err := (&Schwab{}).Parse(&Document{Kind: KindSchwabText, Body: schwabEquityBuy})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.LessOrEqual(t, records[0].Total, 0.0)
}

func TestSchwab_SellNearerThanBuyWins(t *testing.T) {
	// Disclaimer text mentioning the opposite side must not flip the
	// action; the match closer to the window start decides.
	body := `Symbol: NVDA Action: Sale
Trade Date: 09/04/25 Settle Date: 09/08/25
Quantity Price Principal Charge and/or Interest Total Amount
2 $500.00 $1,000.00 $0.10 $999.90
You may buy or sell securities through your account at any time.
Additional information`

	records, err := (&Schwab{}).Parse(&Document{Kind: KindSchwabText, Body: body})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, trade.Sell, records[0].Type)
	assert.GreaterOrEqual(t, records[0].Total, 0.0)
}

func TestSchwab_MultipleConfirmsInOneBody(t *testing.T) {
	body := schwabEquityBuy + "\n" + strings.Repeat("filler ", 400) + "\n" + schwabEquitySale

	records, err := (&Schwab{}).Parse(&Document{Kind: KindSchwabText, Body: body})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "AAPL", records[0].Symbol)
	assert.Equal(t, "MSFT", records[1].Symbol)
}

func TestSchwab_NATotalParsesToZero(t *testing.T) {
	// N/A is a zero sentinel, not an unparseable token; the record keeps
	// a zero total rather than deriving one from principal.
	body := `Symbol: AAPL Action: Purchase
Trade Date: 09/04/25 Settle Date: 09/08/25
Commission: $1.00
Quantity Price Principal Charge and/or Interest Net Amount
10 $100.00 $1,000.00 N/A
Additional information`

	records, err := (&Schwab{}).Parse(&Document{Kind: KindSchwabText, Body: body})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0.0, records[0].Total)
	assert.Equal(t, 1.0, records[0].Fee)
}

func TestSchwab_ParenthesizedTotalForcedPositiveOnSale(t *testing.T) {
	body := `Symbol: MSFT Action: Sale
Trade Date: 09/04/25 Settle Date: 09/08/25
Quantity Price Principal Charge and/or Interest Total Amount
5 $420.00 $2,100.00 $0.35 (2,099.65)
Additional information`

	records, err := (&Schwab{}).Parse(&Document{Kind: KindSchwabText, Body: body})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2099.65, records[0].Total)
}

func TestFlattenBody(t *testing.T) {
	t.Run("html stripped to visible text", func(t *testing.T) {
		got, err := flattenBody("<p>Symbol: <b>AAPL</b></p><p>Action: Purchase</p>")
		require.NoError(t, err)
		assert.Equal(t, "Symbol: AAPL Action: Purchase", got)
	})

	t.Run("plain text collapsed", func(t *testing.T) {
		got, err := flattenBody("Symbol:   AAPL\n\nAction: Purchase")
		require.NoError(t, err)
		assert.Equal(t, "Symbol: AAPL Action: Purchase", got)
	})

	t.Run("script content removed", func(t *testing.T) {
		got, err := flattenBody("<html><head><script>var x=1;</script></head><body>Symbol: AAPL Action: Buy</body></html>")
		require.NoError(t, err)
		assert.Equal(t, "Symbol: AAPL Action: Buy", got)
	})
}
