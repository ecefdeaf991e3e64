package dates

import (
	"regexp"
	"strings"
)

const baseScore = 50

var tagBonus = map[Tag]int{
	TagISO:              30,
	TagMonthNameShort:   25,
	TagMonthNameFull:    25,
	TagReverseMonthName: 25,
	TagReceiptDate:      20,
	TagTransactionDate:  20,
	TagCompact:          15,
	TagWithTime:         10,
	TagUSFull:           5,
	TagEUFull:           5,
}

var wellFormedISO = regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2}$`)

// contextBonus scores words anywhere in the source text that suggest a
// date is nearby. It is the same for every candidate of one text.
func contextBonus(text string) int {
	low := strings.ToLower(text)
	bonus := 0
	if strings.Contains(low, "date") {
		bonus += 10
	}
	if strings.Contains(low, "transaction") || strings.Contains(low, "receipt") {
		bonus += 8
	}
	if strings.Contains(low, "purchase") {
		bonus += 5
	}
	return bonus
}

func score(raw rawDate, context int) int {
	s := baseScore + tagBonus[raw.tag] + context
	if twoDigitYear(raw) {
		s -= 5
	}
	if wellFormedISO.MatchString(raw.match) {
		s += 10
	}
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func twoDigitYear(raw rawDate) bool {
	switch raw.tag {
	case TagShortYear:
		return true
	case TagWithTime, TagReceiptDate, TagTransactionDate:
		return len(raw.groups) > 3 && len(raw.groups[3]) == 2
	default:
		return false
	}
}
