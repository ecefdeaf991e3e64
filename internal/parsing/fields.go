package parsing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// amountExpr captures a two-decimal amount with an optional dollar sign and
// thousands separators. It must be followed by whitespace or the end of the
// line so percentages like "8.25%" are not read as amounts.
const amountExpr = `\$?\s?(\d{1,3}(?:,\d{3})+\.\d{2}|\d+\.\d{2})(?:\s|$)`

// priceExpr is amountExpr anchored by the caller.
const priceExpr = `\$?\s?(\d{1,3}(?:,\d{3})+\.\d{2}|\d+\.\d{2})`

var maxAmount = decimal.NewFromInt(10000)

var (
	totalPattern    = regexp.MustCompile(`(?i)(?:grand\s*total|total|amount|balance|final)\s*(?:due)?\s*[:\-]?\s*` + amountExpr)
	strongTotal     = regexp.MustCompile(`(?i)\b(?:total|amount|balance|final)\b`)
	taxPattern      = regexp.MustCompile(`(?i)\b(?:sales\s+)?(?:tax|gst|vat|hst)\b\s*(?:\d{1,2}(?:\.\d+)?\s*%)?\s*[:\-]?\s*` + amountExpr)
	subtotalPattern = regexp.MustCompile(`(?i)\bsub(?:\s*-?\s*total)?\b\s*[:\-]?\s*` + amountExpr)

	receiptNumberPattern = regexp.MustCompile(`(?i)\b(?:receipt|ref|transaction)\b(?:\s*(?:no\.?|number|num\.?|id))?\s*[#:\s]\s*([a-z0-9][a-z0-9\-]{2,})`)
	hashNumberPattern    = regexp.MustCompile(`(?:^|\s)#\s?([A-Za-z0-9][A-Za-z0-9\-]{2,})`)
	hasDigit             = regexp.MustCompile(`\d`)
)

var (
	storeRejects = []*regexp.Regexp{
		regexp.MustCompile(`\d{1,4}[/\-.]\d{1,2}[/\-.]\d{2,4}`),
		regexp.MustCompile(`\$\s?\d+\.\d{2}`),
		regexp.MustCompile(`(?i)\b(?:total|subtotal|tax|receipt|phone|tel|address)\b`),
		regexp.MustCompile(`^[\d\s\-().+]+$`),
		regexp.MustCompile(`^[*=\-_~#\s]+$`),
		// register, terminal and street numbers; "#1234" store numbers pass
		regexp.MustCompile(`(?:^|[^#\p{L}\p{N}])\d{3,}\b`),
	}
	storeLetters   = regexp.MustCompile(`\p{L}{2,}`)
	decorativeRun  = regexp.MustCompile(`[*=\-_~#]{2,}`)
	edgeNonWord    = regexp.MustCompile(`^[^\p{L}\p{N}]+|[^\p{L}\p{N}'.)]+$`)
	collapseSpaces = regexp.MustCompile(`\s+`)
)

var (
	itemSimple   = regexp.MustCompile(`^(\p{L}[^$@]*?)\s+` + priceExpr + `(?:\s+[A-Za-z])?$`)
	itemQuantity = regexp.MustCompile(`^(\d{1,3})\s*[xX]?\s+(\p{L}[^$@]*?)\s+` + priceExpr + `(?:\s+[A-Za-z])?$`)
	itemUnit     = regexp.MustCompile(`(?i)^(\p{L}[^$@]*?)\s*@\s*` + priceExpr + `\s*(?:ea|each)?\s*=?\s*` + priceExpr + `(?:\s+[a-z])?$`)
	itemNameOnly = regexp.MustCompile(`^\p{L}[\p{L}\s&'.\-]*$`)
	priceOnly    = regexp.MustCompile(`^` + priceExpr + `$`)

	nonItemPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:sub\s*-?\s*total|total|tax|gst|vat|hst|discount|savings|coupon|change|balance|amount|due)\b`),
		regexp.MustCompile(`(?i)thank\s*you`),
		regexp.MustCompile(`^\d{1,4}[/\-.]\d{1,2}[/\-.]\d{1,4}`),
		regexp.MustCompile(`(?i)\b(?:phone|tel|address|receipt|invoice|ref|transaction|trans)\b`),
		regexp.MustCompile(`^[\s*\-=_#~.]+$`),
		regexp.MustCompile(`(?i)\b(?:cash|credit|debit|visa|mastercard|amex|discover|tendered|tender|payment|paid)\b`),
		regexp.MustCompile(`(?i)^card\b|\bcard\s*(?:tend|#|\*|x{2,})`),
		regexp.MustCompile(`(?i)\b(?:cashier|server|store|register|clerk|terminal|operator)\b`),
	}
)

// ExtractStoreName returns the cleaned store name on line, if the line
// looks like one.
func ExtractStoreName(line string) (string, bool) {
	line = strings.TrimSpace(line)
	n := len([]rune(line))
	if n < 3 || n > 50 {
		return "", false
	}
	for _, re := range storeRejects {
		if re.MatchString(line) {
			return "", false
		}
	}
	if !storeLetters.MatchString(line) {
		return "", false
	}

	name := decorativeRun.ReplaceAllString(line, " ")
	name = edgeNonWord.ReplaceAllString(name, "")
	name = strings.TrimSpace(collapseSpaces.ReplaceAllString(name, " "))
	if !storeLetters.MatchString(name) {
		return "", false
	}
	return name, true
}

// ExtractTotal returns the total on line and whether the line carries a
// strong total keyword, which lets it override an earlier total.
func ExtractTotal(line string) (amount decimal.Decimal, strong bool, ok bool) {
	m := totalPattern.FindStringSubmatch(line)
	if m == nil {
		return decimal.Decimal{}, false, false
	}
	amount, ok = parseAmount(m[1])
	if !ok || !amount.IsPositive() || !amount.LessThan(maxAmount) {
		return decimal.Decimal{}, false, false
	}
	return amount, strongTotal.MatchString(line), true
}

// ExtractTax returns the tax amount on line.
func ExtractTax(line string) (decimal.Decimal, bool) {
	return extractAmount(taxPattern, line)
}

// ExtractSubtotal returns the subtotal amount on line.
func ExtractSubtotal(line string) (decimal.Decimal, bool) {
	return extractAmount(subtotalPattern, line)
}

// ExtractReceiptNumber returns a receipt, reference or transaction number
// on line. Tokens without a digit are ignored.
func ExtractReceiptNumber(line string) (string, bool) {
	for _, re := range []*regexp.Regexp{receiptNumberPattern, hashNumberPattern} {
		for _, m := range re.FindAllStringSubmatch(line, -1) {
			if hasDigit.MatchString(m[1]) {
				return m[1], true
			}
		}
	}
	return "", false
}

// ExtractItem reads a line item from line. next is the following line, or
// "" at the end of the text; it is only consulted for a bare name whose
// price is printed on its own line. consumedNext reports that case.
func ExtractItem(line, next string) (item LineItem, consumedNext bool, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || isNonItem(line) {
		return LineItem{}, false, false
	}

	if m := itemQuantity.FindStringSubmatch(line); m != nil {
		qty, err := strconv.Atoi(m[1])
		if err != nil || qty < 1 {
			return LineItem{}, false, false
		}
		item, ok = newItem(m[2], m[3], qty)
		if ok && qty > 1 {
			unit := item.Price.DivRound(decimal.NewFromInt(int64(qty)), 2)
			item.UnitPrice = &unit
		}
		return item, false, ok
	}

	if m := itemUnit.FindStringSubmatch(line); m != nil {
		unit, okU := parseAmount(m[2])
		total, okT := parseAmount(m[3])
		if !okU || !okT || !unit.IsPositive() {
			return LineItem{}, false, false
		}
		qty := int(total.DivRound(unit, 0).IntPart())
		if qty < 1 {
			qty = 1
		}
		item, ok = newItem(m[1], m[3], qty)
		if ok {
			item.UnitPrice = &unit
		}
		return item, false, ok
	}

	if m := itemSimple.FindStringSubmatch(line); m != nil {
		item, ok = newItem(m[1], m[2], 1)
		return item, false, ok
	}

	next = strings.TrimSpace(next)
	if itemNameOnly.MatchString(line) && storeLetters.MatchString(line) {
		if m := priceOnly.FindStringSubmatch(next); m != nil {
			item, ok = newItem(line, m[1], 1)
			return item, ok, ok
		}
	}
	return LineItem{}, false, false
}

func isNonItem(line string) bool {
	for _, re := range nonItemPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func newItem(rawName, rawPrice string, qty int) (LineItem, bool) {
	name := cleanItemName(rawName)
	if !storeLetters.MatchString(name) {
		return LineItem{}, false
	}
	price, ok := parseAmount(rawPrice)
	if !ok || !price.IsPositive() || !price.LessThan(maxAmount) {
		return LineItem{}, false
	}
	return LineItem{Name: name, Price: price, Quantity: qty}, true
}

func cleanItemName(s string) string {
	s = collapseSpaces.ReplaceAllString(strings.TrimSpace(s), " ")
	s = strings.TrimLeft(s, "*#@ ")
	return strings.TrimRight(s, ".,;:-_ ")
}

func extractAmount(re *regexp.Regexp, line string) (decimal.Decimal, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return decimal.Decimal{}, false
	}
	amount, ok := parseAmount(m[1])
	if !ok || amount.IsNegative() {
		return decimal.Decimal{}, false
	}
	return amount, true
}

func parseAmount(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
