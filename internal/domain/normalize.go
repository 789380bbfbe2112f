package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName canonicalizes a place name for cross-dataset comparison:
// lower-case, diacritics stripped, whitespace, hyphens and underscores removed.
// It is idempotent.
func NormalizeName(name string) string {
	// Chains carry state, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, strings.ToLower(name))
	if err != nil {
		stripped = strings.ToLower(name)
	}
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '_' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, stripped)
}

// SameName reports whether a and b normalize equal.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}
