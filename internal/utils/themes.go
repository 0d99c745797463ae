package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// NormalizeTheme folds a title into a comparison key: accents removed,
// case folded, punctuation collapsed to single spaces.
func NormalizeTheme(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}
	folded = cases.Fold().String(folded)
	folded = nonAlnum.ReplaceAllString(folded, " ")
	return strings.TrimSpace(folded)
}

// ContainsTheme reports whether title matches any of themes after normalisation.
func ContainsTheme(themes []string, title string) bool {
	key := NormalizeTheme(title)
	if key == "" {
		return false
	}
	for _, theme := range themes {
		if NormalizeTheme(theme) == key {
			return true
		}
	}
	return false
}
