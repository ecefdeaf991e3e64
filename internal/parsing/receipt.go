// Package parsing turns OCR receipt text into a structured receipt and
// decides whether a person needs to look at it.
package parsing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrEmptyInput is returned when the OCR text is empty or only whitespace.
var ErrEmptyInput = errors.New("empty OCR text")

// UnknownStore is the store name used when none could be found.
const UnknownStore = "Unknown Store"

// Review reasons, joined with "; " in ParsedReceipt.ReviewReason.
const (
	ReasonNoDate        = "No date found in receipt."
	ReasonNoStore       = "Store name not detected."
	ReasonItemsMismatch = "Items total does not match receipt total."
	ReasonLowConfidence = "OCR confidence below threshold."
)

// LineItem is one purchased line. Price is the amount printed on the line;
// UnitPrice is set when the line also carried a per-unit price.
type LineItem struct {
	Name      string           `json:"name"`
	Price     decimal.Decimal  `json:"price"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// Amount is the extended amount of the line.
func (i LineItem) Amount() decimal.Decimal {
	if i.UnitPrice != nil {
		return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
	}
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ParsedReceipt is the structured form of one receipt.
type ParsedReceipt struct {
	StoreName     *string          `json:"store_name,omitempty"`
	Date          string           `json:"date,omitempty"`
	Total         *decimal.Decimal `json:"total,omitempty"`
	Tax           *decimal.Decimal `json:"tax,omitempty"`
	Subtotal      *decimal.Decimal `json:"subtotal,omitempty"`
	ReceiptNumber *string          `json:"receipt_number,omitempty"`
	Items         []LineItem       `json:"items"`
	RawText       string           `json:"raw_text"`
	OCRConfidence float64          `json:"ocr_confidence"`
	NeedsReview   bool             `json:"needs_review"`
	ReviewReason  string           `json:"review_reason,omitempty"`
}

// Store returns the store name or the empty string.
func (r *ParsedReceipt) Store() string {
	if r.StoreName == nil {
		return ""
	}
	return *r.StoreName
}

// ItemsTotal sums the extended amounts of all items.
func (r *ParsedReceipt) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range r.Items {
		sum = sum.Add(item.Amount())
	}
	return sum
}

func (r *ParsedReceipt) clone() *ParsedReceipt {
	out := *r
	if r.Items != nil {
		out.Items = make([]LineItem, len(r.Items))
		copy(out.Items, r.Items)
	}
	return &out
}
