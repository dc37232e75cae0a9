// Package interpret turns raw OCR receipt text into line items and a total.
//
// Receipts have no canonical layout and OCR output is noisy, so the
// interpreter is a permissive set of line rules rather than a layout
// analyser. Wrong guesses are expected; a failure to parse is never an
// error, only an empty result.
package interpret

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrEmptyInput reports that there was no text (or nothing usable) to parse.
// Interpret never returns it; callers use it to label empty results.
var ErrEmptyInput = errors.New("no receipt text to interpret")

// LineItem is one purchased entry on a receipt
type LineItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Cost returns price × quantity
func (i LineItem) Cost() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ParseResult is the structured form of one receipt's text.
// Total is nil when no total could be found or inferred.
type ParseResult struct {
	Items []LineItem       `json:"items"`
	Total *decimal.Decimal `json:"total_amount"`
}

// Empty reports whether nothing at all was recognised
func (r ParseResult) Empty() bool {
	return len(r.Items) == 0 && r.Total == nil
}

// Err returns ErrEmptyInput for an empty result and nil otherwise
func (r ParseResult) Err() error {
	if r.Empty() {
		return ErrEmptyInput
	}
	return nil
}

// ItemsTotal sums the cost of every item
func (r ParseResult) ItemsTotal() decimal.Decimal {
	return SumCost(r.Items)
}

// SumCost sums price × quantity over items
func SumCost(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Cost())
	}
	return sum
}

func sumPrices(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Price)
	}
	return sum
}
