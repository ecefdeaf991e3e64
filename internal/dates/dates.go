// Package dates finds calendar dates in OCR text, resolves day/month
// ambiguity and picks the most plausible one.
package dates

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Layout is the canonical output format.
const Layout = "2006-01-02"

// Order is the preferred reading of an ambiguous numeric date such as 03/04/2024.
type Order int

const (
	// MDY reads 03/04/2024 as March 4.
	MDY Order = iota
	// DMY reads 03/04/2024 as 3 April.
	DMY
)

func (o Order) String() string {
	if o == DMY {
		return "DMY"
	}
	return "MDY"
}

// ParseOrder parses "MDY" or "DMY", case-insensitively.
func ParseOrder(s string) (Order, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "MDY":
		return MDY, nil
	case "DMY":
		return DMY, nil
	default:
		return MDY, fmt.Errorf("unknown date order %q: want MDY or DMY", s)
	}
}

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Candidate is a date found in the text that passed validation.
type Candidate struct {
	Date     time.Time
	Tag      Tag
	Match    string
	Position int
	Score    int
}

// ISO returns the candidate formatted as YYYY-MM-DD.
func (c Candidate) ISO() string {
	return c.Date.Format(Layout)
}

// rawDate is one regex hit before it is turned into a calendar date.
type rawDate struct {
	match    string
	tag      Tag
	position int
	groups   []string
}

// Extractor scans text for dates. It holds no mutable state and is safe
// for concurrent use.
type Extractor struct {
	order Order
	clock Clock
}

// NewExtractor creates an Extractor using the wall clock.
func NewExtractor(order Order) *Extractor {
	return NewExtractorWithClock(order, SystemClock{})
}

// NewExtractorWithClock creates an Extractor with a custom clock for testing.
func NewExtractorWithClock(order Order, clock Clock) *Extractor {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Extractor{order: order, clock: clock}
}

var defaultExtractor = NewExtractor(MDY)

// ExtractBest returns the best date in text using month-first order.
func ExtractBest(text string) (string, bool) {
	return defaultExtractor.ExtractBest(text)
}

// Order reports the configured ambiguity preference.
func (e *Extractor) Order() Order {
	return e.order
}

// ExtractBest returns the highest scoring date in text as YYYY-MM-DD.
// The second return is false when nothing in text survives validation.
func (e *Extractor) ExtractBest(text string) (string, bool) {
	candidates := e.Candidates(text)
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[0].ISO(), true
}

// Candidates returns every valid date in text, best first.
func (e *Extractor) Candidates(text string) []Candidate {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	now := e.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	earliest := today.AddDate(-10, 0, 0)
	latest := today.AddDate(0, 0, 7)
	context := contextBonus(text)

	var out []Candidate
	for _, p := range patterns {
		for _, raw := range findAll(p, text) {
			year, month, day, ok := p.parse(raw.groups, e.order)
			if !ok || !validDate(year, month, day) {
				continue
			}
			date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
			if date.Before(earliest) || date.After(latest) {
				continue
			}
			out = append(out, Candidate{
				Date:     date,
				Tag:      raw.tag,
				Match:    raw.match,
				Position: raw.position,
				Score:    score(raw, context),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		di, dj := distance(out[i].Date, now), distance(out[j].Date, now)
		if di != dj {
			return di < dj
		}
		return out[i].Position < out[j].Position
	})
	return out
}

func findAll(p pattern, text string) []rawDate {
	locs := p.re.FindAllStringSubmatchIndex(text, -1)
	out := make([]rawDate, 0, len(locs))
	for _, loc := range locs {
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = text[loc[2*i]:loc[2*i+1]]
			}
		}
		out = append(out, rawDate{
			match:    groups[0],
			tag:      p.tag,
			position: loc[0],
			groups:   groups,
		})
	}
	return out
}

// validDate rejects out of range fields and dates time.Date would roll
// over, like February 30.
func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1 {
		return false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return d.Year() == year && int(d.Month()) == month && d.Day() == day
}

func distance(d, now time.Time) time.Duration {
	diff := d.Sub(now)
	if diff < 0 {
		return -diff
	}
	return diff
}
