package parsing

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zombor/receipt-reader/internal/dates"
)

// mismatchTolerance is the share of the total the items may differ by.
var mismatchTolerance = decimal.NewFromFloat(0.3)

const reasonSeparator = "; "

// Validate fills in defaults for missing required fields and decides
// whether the receipt needs review. It never fails and does not modify
// draft. Validating an already validated receipt returns an equal receipt.
func (e *Engine) Validate(draft *ParsedReceipt) *ParsedReceipt {
	out := draft.clone()
	reasons := splitReasons(out.ReviewReason)
	flag := func(reason string) {
		out.NeedsReview = true
		for _, r := range reasons {
			if r == reason {
				return
			}
		}
		reasons = append(reasons, reason)
		e.recorder.Record("validate.flag", "reason", reason)
	}

	if out.Date == "" {
		out.Date = e.clock.Now().Format(dates.Layout)
		flag(ReasonNoDate)
	}

	if out.Store() == "" {
		name := UnknownStore
		out.StoreName = &name
		flag(ReasonNoStore)
	}

	out.Items = dedupeItems(out.Items)

	if out.Total != nil && out.Total.IsPositive() {
		sum := out.ItemsTotal()
		if sum.IsPositive() && sum.Sub(*out.Total).Abs().GreaterThan(out.Total.Mul(mismatchTolerance)) {
			flag(ReasonItemsMismatch)
		}
	}

	if e.minConfidence > 0 && out.OCRConfidence < e.minConfidence {
		flag(ReasonLowConfidence)
	}

	out.ReviewReason = strings.Join(reasons, reasonSeparator)
	return out
}

// dedupeItems merges items with the same name and price, summing their
// quantities. The first occurrence keeps its position and other fields.
func dedupeItems(items []LineItem) []LineItem {
	type key struct {
		name  string
		price string
	}
	out := make([]LineItem, 0, len(items))
	index := make(map[key]int, len(items))
	for _, item := range items {
		k := key{name: item.Name, price: item.Price.StringFixed(2)}
		if i, ok := index[k]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}

func splitReasons(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, reasonSeparator)
}
