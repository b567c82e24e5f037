package core

import (
	"regexp"
	"strings"
	"unicode"
)

var nonWordRegex = regexp.MustCompile(`[^\w\s]`)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// NormalizeTitle lowers `s`, drops punctuation and collapses runs of whitespace.
// "  CSE 101: Final-Project " becomes "cse 101 finalproject".
func NormalizeTitle(s string) string {
	s = nonWordRegex.ReplaceAllString(strings.ToLower(s), "")
	return strings.Join(strings.Fields(s), " ")
}

// CompactTitle keeps only lowercase letters and digits: "CSE 101 Lecture" becomes "cse101lecture".
func CompactTitle(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokens splits a normalized title into its words, skipping single characters.
func Tokens(s string) []string {
	fields := strings.Fields(NormalizeTitle(s))
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// ContainsEither reports whether a contains b or b contains a. Empty strings never match.
func ContainsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
