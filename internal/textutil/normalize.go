// Package textutil holds the text normalization both buyer matching and
// cross-source dedup rely on. Matching and dedup must agree on what
// "the same text" means, so both go through this package.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold lowercases and strips diacritics ("Préfecture" -> "prefecture").
func fold(s string) string {
	result, _, err := transform.String(stripAccents, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return result
}

// Key reduces text to bare [a-z0-9], dropping everything else. Identity
// comparisons (dedup keys, substring containment for buyer matching)
// use this form: "Maintenance RADAR !" and "maintenance radar" collapse
// to the same key.
func Key(s string) string {
	folded := fold(s)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Loose folds like Key but keeps word boundaries as single spaces, for
// substring search where token edges matter.
func Loose(s string) string {
	folded := fold(s)
	var b strings.Builder
	b.Grow(len(folded))
	space := true // swallow leading separators
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}
