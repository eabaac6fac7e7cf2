package answer

import (
	"strings"
	"unicode"
)

// Normalize lowercases the input, strips everything that is not a letter,
// digit, or whitespace, collapses whitespace runs to a single space, and
// trims the result. Normalize is idempotent.
func Normalize(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))

	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}

	return b.String()
}

// Match reports whether the submitted text matches any of the acceptable
// answers after normalization. Matching is exact, no fuzzy comparison.
func Match(submitted string, acceptable []string) bool {
	normalized := Normalize(submitted)
	for _, a := range acceptable {
		if Normalize(a) == normalized {
			return true
		}
	}
	return false
}
