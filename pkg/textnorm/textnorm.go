// Package textnorm provides text normalization helpers shared by the
// catalog, resolver, and discovery tracker.
package textnorm

import (
	"strings"
	"unicode"
)

// Normalize lowercases s, trims surrounding whitespace and punctuation, and
// collapses internal whitespace runs to single spaces. Two names that
// normalize identically are treated as the same name everywhere.
func Normalize(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// LetterRatio returns the fraction of runes in s that are letters.
// Whitespace is excluded from the denominator.
func LetterRatio(s string) float64 {
	letters, total := 0, 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(letters) / float64(total)
}

// Truncate shortens s to at most n runes, appending an ellipsis marker when
// anything was cut. Newlines are flattened so the result is log-safe.
func Truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n]) + "..."
	}
	return s
}

// IsWordBoundary reports whether the rune at either side of a match is a
// boundary: start/end of text, or anything that is not a letter or digit.
func IsWordBoundary(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
