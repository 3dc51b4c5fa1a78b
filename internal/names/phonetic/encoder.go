// Package phonetic maps name tokens to short sound codes so spelling variants
// of the same pronunciation can be recognized.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Encoder returns at most two phonetic codes for a single token. Empty codes
// are allowed and never count as a match.
type Encoder interface {
	Encode(token string) []string
}

// EncoderFunc adapts a plain function to the Encoder interface.
type EncoderFunc func(token string) []string

// Encode calls f.
func (f EncoderFunc) Encode(token string) []string {
	return f(token)
}

// DoubleMetaphone encodes tokens with the Double Metaphone algorithm,
// returning the primary and alternate codes.
type DoubleMetaphone struct{}

// Encode implements Encoder.
func (DoubleMetaphone) Encode(token string) []string {
	primary, secondary := matchr.DoubleMetaphone(token)
	return []string{primary, secondary}
}

// Table is a pinned token -> codes lookup. Tokens are matched case-insensitively
// and unknown tokens encode to nothing.
type Table map[string][]string

// Encode implements Encoder.
func (t Table) Encode(token string) []string {
	return t[strings.ToLower(token)]
}

// Compatible reports whether a and b share at least one non-empty code.
func Compatible(enc Encoder, a, b string) bool {
	codes := enc.Encode(a)
	if len(codes) == 0 {
		return false
	}
	for _, other := range enc.Encode(b) {
		if other == "" {
			continue
		}
		for _, code := range codes {
			if code == other {
				return true
			}
		}
	}
	return false
}

// AllCompatible reports whether every aligned pair of tokens is Compatible.
// Sequences of different length are never compatible.
func AllCompatible(enc Encoder, target, candidate []string) bool {
	if len(target) != len(candidate) {
		return false
	}
	for i := range target {
		if !Compatible(enc, target[i], candidate[i]) {
			return false
		}
	}
	return true
}
