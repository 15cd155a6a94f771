// Package errfmt bounds engine-provided text before it reaches users.
package errfmt

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxLen caps notification payloads (stderr chunks, error messages).
const MaxLen = 4096

// MaxSummaryLen caps one-line summaries embedded in error strings.
const MaxSummaryLen = 128

// truncateUTF8 caps s at limit bytes, backtracking to a valid UTF-8 boundary.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	end := limit
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}

// Truncate caps a payload at MaxLen bytes with UTF-8-safe truncation.
func Truncate(s string) string {
	return truncateUTF8(s, MaxLen)
}

// Summary flattens s to one printable line and caps it at MaxSummaryLen
// bytes. Control characters become spaces.
func Summary(s string) string {
	flat := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return truncateUTF8(strings.TrimSpace(flat), MaxSummaryLen)
}
