// Package sanitize normalizes text pulled out of PDF pages so it can be
// stored as a single-line JSON string.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	// controlChars matches non-printable control characters except tab, LF and CR.
	controlChars = regexp.MustCompile(`[\x01-\x08\x0B\x0C\x0E-\x1F\x7F]`)

	// whitespaceRun matches ASCII and Unicode whitespace, including NBSP and NEL.
	whitespaceRun = regexp.MustCompile(`[\s\p{Z}\x{0085}]+`)
)

// Clean strips NUL bytes, invalid UTF-8 and control characters, collapses
// every whitespace run into a single space and trims the result.
// Clean(Clean(s)) == Clean(s).
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ToValidUTF8(text, "")
	text = controlChars.ReplaceAllString(text, "")
	text = whitespaceRun.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}
