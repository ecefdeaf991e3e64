package parsing

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zombor/receipt-reader/internal/confidence"
	"github.com/zombor/receipt-reader/internal/dates"
)

// storeNameLines is how many leading lines may hold the store name.
const storeNameLines = 5

// Options configures an Engine.
type Options struct {
	// DateOrder resolves dates like 03/04/2024 where both numbers could
	// be the month.
	DateOrder dates.Order
	// MinConfidence flags receipts whose OCR confidence is below it.
	// Zero disables the check.
	MinConfidence float64
	Clock         dates.Clock
	Recorder      Recorder
}

// Engine parses and validates receipt text. It is safe for concurrent use.
type Engine struct {
	dates         *dates.Extractor
	clock         dates.Clock
	recorder      Recorder
	minConfidence float64
}

// NewEngine creates an Engine. Nil Clock and Recorder fall back to the wall
// clock and a no-op recorder.
func NewEngine(opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = dates.SystemClock{}
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Engine{
		dates:         dates.NewExtractorWithClock(opts.DateOrder, clock),
		clock:         clock,
		recorder:      recorder,
		minConfidence: opts.MinConfidence,
	}
}

// Input is one OCR transcript along with what the OCR engine reported
// about it.
type Input struct {
	Text string
	// EngineConfidence is on a 0-100 scale. Zero means unknown.
	EngineConfidence float64
	FieldConfidences map[string]float64
	// DateHint is a date the OCR engine read as a structured field. It is
	// preferred over dates found in Text when it parses.
	DateHint string
}

// Process parses, scores and validates one transcript.
func (e *Engine) Process(in Input) (*ParsedReceipt, error) {
	draft, err := e.ParseWithHint(in.Text, in.DateHint)
	if err != nil {
		return nil, err
	}
	draft.OCRConfidence = confidence.Aggregate(confidence.Signals{
		Engine: in.EngineConfidence,
		Fields: in.FieldConfidences,
		Text:   in.Text,
	})
	return e.Validate(draft), nil
}

// Parse builds a draft receipt from text without validating it.
func (e *Engine) Parse(text string) (*ParsedReceipt, error) {
	return e.ParseWithHint(text, "")
}

// ParseWithHint is Parse with a date read by the OCR engine.
func (e *Engine) ParseWithHint(text, dateHint string) (*ParsedReceipt, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	lines := splitLines(Normalize(text))
	e.recorder.Record("parse.start", "lines", len(lines))

	acc := draft{}
	if hint, ok := e.dates.ExtractBest(dateHint); ok {
		acc.date = hint
		e.recorder.Record("field.date", "value", hint, "source", "hint")
	}
	for i := 0; i < len(lines); i++ {
		var skip bool
		acc, skip = e.step(acc, lines, i)
		if skip {
			i++
		}
	}

	out := acc.receipt(text)
	e.recorder.Record("parse.done",
		"store", out.Store(),
		"date", out.Date,
		"items", len(out.Items),
		"has_total", out.Total != nil,
	)
	return out, nil
}

// draft accumulates fields over one pass of the lines.
type draft struct {
	storeName     string
	date          string
	receiptNumber string
	total         *decimal.Decimal
	tax           *decimal.Decimal
	subtotal      *decimal.Decimal
	items         []LineItem
}

func (d draft) receipt(raw string) *ParsedReceipt {
	out := &ParsedReceipt{
		Date:     d.date,
		Total:    d.total,
		Tax:      d.tax,
		Subtotal: d.subtotal,
		Items:    dedupeItems(d.items),
		RawText:  raw,
	}
	if d.storeName != "" {
		name := d.storeName
		out.StoreName = &name
	}
	if d.receiptNumber != "" {
		num := d.receiptNumber
		out.ReceiptNumber = &num
	}
	return out
}

// step folds lines[i] into acc. The bool reports that lines[i+1] was used
// as the price of a bare item name and should be skipped.
func (e *Engine) step(acc draft, lines []string, i int) (draft, bool) {
	line := lines[i]

	if acc.storeName == "" && i < storeNameLines {
		if name, ok := ExtractStoreName(line); ok {
			acc.storeName = name
			e.recorder.Record("field.store_name", "line", i, "value", name)
		}
	}

	if acc.date == "" {
		if date, ok := e.dates.ExtractBest(line); ok {
			acc.date = date
			e.recorder.Record("field.date", "line", i, "value", date)
		}
	}

	if acc.receiptNumber == "" {
		if num, ok := ExtractReceiptNumber(line); ok {
			acc.receiptNumber = num
			e.recorder.Record("field.receipt_number", "line", i, "value", num)
		}
	}

	if total, strong, ok := ExtractTotal(line); ok {
		if acc.total == nil || strong {
			acc.total = &total
			e.recorder.Record("field.total", "line", i, "value", total.StringFixed(2), "strong", strong)
		}
	}

	if tax, ok := ExtractTax(line); ok {
		acc.tax = &tax
		e.recorder.Record("field.tax", "line", i, "value", tax.StringFixed(2))
	}

	if subtotal, ok := ExtractSubtotal(line); ok {
		acc.subtotal = &subtotal
		e.recorder.Record("field.subtotal", "line", i, "value", subtotal.StringFixed(2))
	}

	var next string
	if i+1 < len(lines) {
		next = lines[i+1]
	}
	item, consumed, ok := ExtractItem(line, next)
	if !ok {
		return acc, false
	}
	items := make([]LineItem, len(acc.items), len(acc.items)+1)
	copy(items, acc.items)
	acc.items = append(items, item)
	e.recorder.Record("field.item", "line", i, "name", item.Name, "price", item.Price.StringFixed(2), "quantity", item.Quantity)
	return acc, consumed
}
