package parsing

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reSpaces      = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	reBlankLines  = regexp.MustCompile(`\n{3,}`)
	reLineTrimEnd = regexp.MustCompile(`[ ]+\n`)
)

// Normalize folds compatibility characters (full width digits, ligatures,
// non-breaking spaces) and tidies whitespace so the line patterns see
// plain text.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = reSpaces.ReplaceAllString(s, " ")
	s = reLineTrimEnd.ReplaceAllString(s, "\n")
	s = reBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// splitLines returns the trimmed, non-empty lines of s.
func splitLines(s string) []string {
	raw := strings.Split(s, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
