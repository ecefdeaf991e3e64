package receipt

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const reviewSheet = "Review Queue"

var reviewHeaders = []string{
	"Receipt ID",
	"Created",
	"Engine",
	"Store",
	"Date",
	"Total",
	"Items",
	"Items Total",
	"Confidence",
	"Review Reason",
}

var reviewColumnWidths = []struct {
	start, end string
	width      float64
}{
	{"A", "A", 38}, // id
	{"B", "C", 16},
	{"D", "D", 28}, // store
	{"E", "I", 12},
	{"J", "J", 48}, // reasons
}

// ExportReviewQueue returns the receipts waiting for review as an XLSX
// workbook
func (s *Service) ExportReviewQueue() ([]byte, error) {
	queue, err := s.ListNeedingReview()
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), reviewSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	for i, h := range reviewHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(reviewSheet, cell, h); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	for i, r := range queue {
		row := i + 2
		p := r.Parsed
		total := ""
		if p.Total != nil {
			total = p.Total.StringFixed(2)
		}
		values := []any{
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Engine,
			p.Store(),
			p.Date,
			total,
			len(p.Items),
			p.ItemsTotal().StringFixed(2),
			p.OCRConfidence,
			strings.ReplaceAll(p.ReviewReason, "; ", "\n"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(reviewSheet, cell, v); err != nil {
				return nil, fmt.Errorf("writing row %d: %w", row, err)
			}
		}
	}

	for _, w := range reviewColumnWidths {
		if err := f.SetColWidth(reviewSheet, w.start, w.end, w.width); err != nil {
			return nil, fmt.Errorf("setting column width %s: %w", w.start, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
