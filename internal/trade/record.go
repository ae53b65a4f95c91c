// Package trade defines the canonical trade record shared by every
// statement source.
package trade

// Type classifies the cash-flow direction of a record.
type Type string

const (
	Buy      Type = "buy"
	Sell     Type = "sell"
	Dividend Type = "dividend"
)

// Record is the denormalized output unit common to all sources. Date is
// YYYY/MM/DD or empty when unknown. Total is the signed net cash effect:
// negative for cash out, positive for cash in.
type Record struct {
	Symbol   string  `json:"symbol"`
	Type     Type    `json:"trade_type"`
	Currency string  `json:"currency"`
	Shares   float64 `json:"shares"`
	Price    float64 `json:"price"`
	Fee      float64 `json:"fee"`
	Date     string  `json:"date"`
	Total    float64 `json:"total"`
}
