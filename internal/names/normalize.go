// Package names canonicalizes personal names so they can be compared
// token by token.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// punctuation is dropped outright: straight and typographic apostrophes and periods.
var punctuation = strings.NewReplacer(
	"'", "",
	"’", "",
	"‘", "",
	"ʼ", "",
	".", "",
)

// foldAccents returns a fresh transformer on every call. Chained transformers
// keep internal buffers and must not be shared between goroutines.
func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
}

// Normalize lowercases name, folds accents, turns hyphens into spaces, drops
// apostrophes and periods and collapses whitespace.
//
//	Normalize("José-García")   // "jose garcia"
//	Normalize("  John  O'Brien") // "john obrien"
//
// Normalize is deterministic and idempotent.
func Normalize(name string) string {
	if name == "" {
		return ""
	}

	clean := strings.ToLower(name)
	if folded, _, err := transform.String(foldAccents(), clean); err == nil {
		clean = folded
	}
	// Compatibility decomposition can surface uppercase letters ("ℌ" -> "H").
	clean = strings.ToLower(clean)

	clean = strings.ReplaceAll(clean, "-", " ")
	clean = punctuation.Replace(clean)

	return strings.Join(strings.Fields(clean), " ")
}

// NormalizeNoSpace normalizes name and removes every remaining space, for the
// space-insensitive exact-match comparison.
func NormalizeNoSpace(name string) string {
	return strings.ReplaceAll(Normalize(name), " ", "")
}

// Tokens normalizes name and splits it into ordered name parts.
// An empty name yields an empty, non-nil slice.
func Tokens(name string) []string {
	normalized := Normalize(name)
	if normalized == "" {
		return []string{}
	}
	return strings.Split(normalized, " ")
}
