package dates

import (
	"regexp"
	"strconv"
	"strings"
)

// Tag names a family of date patterns.
type Tag string

const (
	TagUSFull           Tag = "US_FULL"
	TagEUFull           Tag = "EU_FULL"
	TagISO              Tag = "ISO"
	TagShortYear        Tag = "SHORT_YEAR"
	TagMonthNameShort   Tag = "MONTH_NAME_SHORT"
	TagMonthNameFull    Tag = "MONTH_NAME_FULL"
	TagReverseMonthName Tag = "REVERSE_MONTH_NAME"
	TagCompact          Tag = "COMPACT"
	TagWithTime         Tag = "WITH_TIME"
	TagReceiptDate      Tag = "RECEIPT_DATE"
	TagTransactionDate  Tag = "TRANSACTION_DATE"
)

// parseFunc turns the capture groups of a match into year, month and day.
// groups[0] is the whole match.
type parseFunc func(groups []string, order Order) (year, month, day int, ok bool)

type pattern struct {
	tag   Tag
	re    *regexp.Regexp
	parse parseFunc
}

// patterns is evaluated in order; every family reports all of its matches.
var patterns = []pattern{
	{TagUSFull, regexp.MustCompile(`\b(\d{1,2})[-/.](\d{1,2})[-/.](\d{4})\b`), parseNumeric},
	{TagEUFull, regexp.MustCompile(`\b(1[3-9]|2\d|3[01])[-/.](0?[1-9]|1[0-2])[-/.](\d{4})\b`), parseNumeric},
	{TagISO, regexp.MustCompile(`\b(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})\b`), parseYearFirst},
	{TagShortYear, regexp.MustCompile(`\b(\d{1,2})[-/.](\d{1,2})[-/.](\d{2})\b`), parseNumeric},
	{TagMonthNameShort, regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sept|sep|oct|nov|dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`), parseMonthName},
	{TagMonthNameFull, regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`), parseMonthName},
	{TagReverseMonthName, regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?,?\s+(\d{4})\b`), parseReverseMonthName},
	{TagCompact, regexp.MustCompile(`\b((?:19|20)\d{2})(0[1-9]|1[0-2])(0[1-9]|[12]\d|3[01])\b`), parseYearFirst},
	{TagWithTime, regexp.MustCompile(`\b(\d{1,2})[-/.](\d{1,2})[-/.](\d{4}|\d{2})\s+\d{1,2}:\d{2}(?::\d{2})?(?:\s?[AaPp][Mm])?\b`), parseNumeric},
	{TagReceiptDate, regexp.MustCompile(`(?i)\bdate\s*[:\-]?\s*(\d{1,2})[-/.](\d{1,2})[-/.](\d{4}|\d{2})\b`), parseNumeric},
	{TagTransactionDate, regexp.MustCompile(`(?i)\btrans(?:action)?\.?\s*(?:date)?\s*[:\-]?\s*(\d{1,2})[-/.](\d{1,2})[-/.](\d{4}|\d{2})\b`), parseNumeric},
}

var monthNumbers = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// parseNumeric handles the day/month ambiguous families, groups are
// (first, second, year).
func parseNumeric(groups []string, order Order) (int, int, int, bool) {
	if len(groups) < 4 {
		return 0, 0, 0, false
	}
	a, errA := strconv.Atoi(groups[1])
	b, errB := strconv.Atoi(groups[2])
	if errA != nil || errB != nil {
		return 0, 0, 0, false
	}
	year, ok := normalizeYear(groups[3])
	if !ok {
		return 0, 0, 0, false
	}
	month, day, ok := resolveDayMonth(a, b, year, order)
	if !ok {
		return 0, 0, 0, false
	}
	return year, month, day, true
}

// parseYearFirst handles ISO and compact forms, groups are (year, month, day).
func parseYearFirst(groups []string, _ Order) (int, int, int, bool) {
	if len(groups) < 4 {
		return 0, 0, 0, false
	}
	year, errY := strconv.Atoi(groups[1])
	month, errM := strconv.Atoi(groups[2])
	day, errD := strconv.Atoi(groups[3])
	if errY != nil || errM != nil || errD != nil {
		return 0, 0, 0, false
	}
	return year, month, day, true
}

// parseMonthName handles "Jan 15, 2024" and "January 15, 2024".
func parseMonthName(groups []string, _ Order) (int, int, int, bool) {
	if len(groups) < 4 {
		return 0, 0, 0, false
	}
	month, ok := monthNumber(groups[1])
	if !ok {
		return 0, 0, 0, false
	}
	day, errD := strconv.Atoi(groups[2])
	year, errY := strconv.Atoi(groups[3])
	if errD != nil || errY != nil {
		return 0, 0, 0, false
	}
	return year, month, day, true
}

// parseReverseMonthName handles "15 January 2024".
func parseReverseMonthName(groups []string, _ Order) (int, int, int, bool) {
	if len(groups) < 4 {
		return 0, 0, 0, false
	}
	month, ok := monthNumber(groups[2])
	if !ok {
		return 0, 0, 0, false
	}
	day, errD := strconv.Atoi(groups[1])
	year, errY := strconv.Atoi(groups[3])
	if errD != nil || errY != nil {
		return 0, 0, 0, false
	}
	return year, month, day, true
}

func monthNumber(name string) (int, bool) {
	name = strings.ToLower(name)
	if len(name) < 3 {
		return 0, false
	}
	m, ok := monthNumbers[name[:3]]
	return m, ok
}

// normalizeYear expands two digit years: 00-30 are 2000s, 31-99 are 1900s.
func normalizeYear(s string) (int, bool) {
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	switch len(s) {
	case 2:
		if y <= 30 {
			return 2000 + y, true
		}
		return 1900 + y, true
	case 4:
		return y, true
	default:
		return 0, false
	}
}

// resolveDayMonth decides which of two numbers is the month.
// A number above 12 can only be a day; when both fit, order decides,
// falling back to the other reading when the preferred one is not a real date.
func resolveDayMonth(a, b, year int, order Order) (month, day int, ok bool) {
	switch {
	case a > 12 && b > 12:
		return 0, 0, false
	case a > 12:
		return b, a, true
	case b > 12:
		return a, b, true
	}

	preferredMonth, preferredDay := a, b
	if order == DMY {
		preferredMonth, preferredDay = b, a
	}
	if validDate(year, preferredMonth, preferredDay) {
		return preferredMonth, preferredDay, true
	}
	if validDate(year, preferredDay, preferredMonth) {
		return preferredDay, preferredMonth, true
	}
	return 0, 0, false
}
