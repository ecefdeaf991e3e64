package receipt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-reader/internal/parsing"
)

// EngineText marks receipts submitted as text rather than scanned.
const EngineText = "text"

// Receipt is one processed receipt: the uploaded file, if any, and what the
// parser made of it. Parsed is never changed after the receipt is saved;
// corrections live in a Review.
type Receipt struct {
	ID          string                 `json:"id"`
	Filename    string                 `json:"filename,omitempty"`
	ContentType string                 `json:"content_type,omitempty"`
	Engine      string                 `json:"engine"`
	Parsed      *parsing.ParsedReceipt `json:"parsed"`
	ReviewID    string                 `json:"review_id,omitempty"` // ID of the review that resolved this receipt
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// NeedsReview reports whether the parser flagged the receipt and no one has
// reviewed it yet.
func (r *Receipt) NeedsReview() bool {
	return r.Parsed != nil && r.Parsed.NeedsReview && r.ReviewID == ""
}

// Review is a person's correction of a flagged receipt
type Review struct {
	ID        string           `json:"id"`
	ReceiptID string           `json:"receipt_id"`
	StoreName string           `json:"store_name"`
	Date      string           `json:"date"`
	Total     *decimal.Decimal `json:"total,omitempty"`
	Note      string           `json:"note,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// ReviewInput holds the corrected values. Empty fields keep the parsed value.
type ReviewInput struct {
	StoreName string           `json:"store_name"`
	Date      string           `json:"date"`
	Total     *decimal.Decimal `json:"total"`
	Note      string           `json:"note"`
}

// TextInput is a transcript produced outside this service. Confidence is
// on a 0-100 scale.
type TextInput struct {
	Text             string             `json:"text"`
	Confidence       float64            `json:"confidence"`
	FieldConfidences map[string]float64 `json:"field_confidences,omitempty"`
	DateHint         string             `json:"date_hint,omitempty"`
}
