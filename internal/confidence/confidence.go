// Package confidence folds OCR engine confidence signals into a single
// 0-100 score.
package confidence

import (
	"math"
	"regexp"
	"strings"
)

var (
	reDate   = regexp.MustCompile(`\b\d{1,4}[-/.]\d{1,2}[-/.]\d{2,4}\b|\b(?:19|20)\d{6}\b`)
	reCurr   = regexp.MustCompile(`\b(?:usd|eur|gbp|cad|aud|inr|jpy)\b|[$£€]`)
	reAmount = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})*\.\d{2}\b|\b\d+\.\d{2}\b`)
)

// Signals is what an OCR engine reported about one transcript. Engine and
// Fields are on a 0-100 scale; an Engine of zero and an empty Fields mean
// the engine reported nothing.
type Signals struct {
	Engine float64
	Fields map[string]float64
	Text   string
}

// Aggregate returns a confidence in [0,100]. Per-field confidences win
// over the engine scalar and are averaged, zeros included. The text
// heuristic is used only when the engine reported nothing.
func Aggregate(s Signals) float64 {
	if len(s.Fields) > 0 {
		return round2(fieldMean(s.Fields))
	}
	if s.Engine > 0 {
		return round2(clamp(s.Engine))
	}
	return round2(Heuristic(s.Text))
}

// Heuristic scores text by how receipt-like it looks: a date, a currency
// marker, an amount and enough content each add to a small base.
func Heuristic(text string) float64 {
	low := strings.ToLower(text)
	score := 20.0
	if reDate.MatchString(low) {
		score += 20
	}
	if reCurr.MatchString(low) {
		score += 15
	}
	if reAmount.MatchString(low) {
		score += 15
	}
	if len(text) > 120 {
		score += 10
	}
	return clamp(score)
}

func fieldMean(fields map[string]float64) float64 {
	var sum float64
	for _, v := range fields {
		sum += clamp(v)
	}
	return sum / float64(len(fields))
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
