// Package matching holds the deterministic name-matching policy: an ordered
// cascade of hard rules that either settles a name pair or defers it to the
// semantic verifier.
//
// Everything in this package is pure. No I/O, no shared mutable state; a
// Cascade may be used from any number of goroutines.
package matching

import (
	"slices"
	"strings"
	"unicode/utf8"

	"nameguard/internal/names"
	"nameguard/internal/names/phonetic"
)

// Rule identifies which hard rule settled a name pair.
type Rule string

const (
	RuleNone         Rule = ""
	RuleGenderSwap   Rule = "gender_swap"
	RuleExactMatch   Rule = "exact_match"
	RuleTokenOrder   Rule = "token_order_swap"
	RuleSafePhonetic Rule = "safe_phonetic"
)

// Tokens of this many characters or fewer are too short to trust a phonetic match.
const shortTokenMaxRunes = 4

// Explanations attached to hard-rule decisions.
const (
	ExplainGenderSwap   = "Gendered name difference detected. This is a non-match in financial contexts."
	ExplainExactMatch   = "Exact match after case and punctuation normalization."
	ExplainTokenOrder   = "Token order swap changes identity. This is a non-match in financial contexts."
	ExplainSafePhonetic = "Safe phonetic match detected (Double Metaphone)."
)

// Confidence scores attached to hard-rule decisions.
const (
	ConfidenceGenderSwap   = 20
	ConfidenceExactMatch   = 100
	ConfidenceTokenOrder   = 30
	ConfidenceSafePhonetic = 95
)

// Cascade applies the hard rules in a fixed order.
type Cascade struct {
	threshold Threshold
	encoder   phonetic.Encoder
}

// NewCascade builds a cascade. A nil encoder falls back to Double Metaphone.
func NewCascade(threshold Threshold, encoder phonetic.Encoder) *Cascade {
	if encoder == nil {
		encoder = phonetic.DoubleMetaphone{}
	}
	return &Cascade{threshold: threshold, encoder: encoder}
}

// Threshold returns the threshold decisions are built with.
func (c *Cascade) Threshold() Threshold {
	return c.threshold
}

// Check runs the cascade over two raw names. The boolean is false when no rule
// fired and the pair must be deferred.
func (c *Cascade) Check(target, candidate string) (Decision, bool) {
	d, rule := c.Evaluate(target, candidate)
	return d, rule != RuleNone
}

// Evaluate is Check but also reports which rule fired. RuleNone means defer.
//
// Rule priority (first match wins):
//  1. Gender swap on any aligned token pair (non-match)
//  2. Exact match ignoring case, accents, punctuation and spaces (match)
//  3. Same tokens in a different order (non-match)
//  4. Phonetic variant with no risk factor (match)
//
// Rule 1 is deliberately ahead of rule 2.
func (c *Cascade) Evaluate(target, candidate string) (Decision, Rule) {
	targetTokens := names.Tokens(target)
	candidateTokens := names.Tokens(candidate)

	if len(targetTokens) == len(candidateTokens) {
		for i := range targetTokens {
			if IsGenderSwap(targetTokens[i], candidateTokens[i]) {
				return c.threshold.Decide(ConfidenceGenderSwap, ExplainGenderSwap), RuleGenderSwap
			}
		}
	}

	if names.NormalizeNoSpace(target) == names.NormalizeNoSpace(candidate) {
		return c.threshold.Decide(ConfidenceExactMatch, ExplainExactMatch), RuleExactMatch
	}

	if sameTokenSet(targetTokens, candidateTokens) && !slices.Equal(targetTokens, candidateTokens) {
		return c.threshold.Decide(ConfidenceTokenOrder, ExplainTokenOrder), RuleTokenOrder
	}

	if d, ok := c.AssessPhoneticRisk(targetTokens, candidateTokens); ok {
		return d, RuleSafePhonetic
	}

	return Decision{}, RuleNone
}

// AssessPhoneticRisk approves aligned token sequences that sound alike and
// carry none of the risk factors below. Otherwise it defers.
//
// Risk factors, checked per differing pair and short-circuiting:
//   - A: gendered endings (maria/mario, michael/michelle)
//   - B: exactly one token ends in "i" (rashid/rashidi)
//   - C: either token is four characters or shorter (ali/alin)
func (c *Cascade) AssessPhoneticRisk(target, candidate []string) (Decision, bool) {
	if len(target) != len(candidate) {
		return Decision{}, false
	}
	if !phonetic.AllCompatible(c.encoder, target, candidate) {
		return Decision{}, false
	}
	for i := range target {
		if riskyPair(target[i], candidate[i]) {
			return Decision{}, false
		}
	}
	return c.threshold.Decide(ConfidenceSafePhonetic, ExplainSafePhonetic), true
}

// PhoneticallyMatched reports whether both names align token by token with a
// shared phonetic code for every pair, ignoring the risk scan.
func (c *Cascade) PhoneticallyMatched(target, candidate string) bool {
	return phonetic.AllCompatible(c.encoder, names.Tokens(target), names.Tokens(candidate))
}

func riskyPair(a, b string) bool {
	if a == b {
		return false
	}
	if IsGenderSwap(a, b) || isElElleSwap(a, b) {
		return true
	}
	if strings.HasSuffix(a, "i") != strings.HasSuffix(b, "i") {
		return true
	}
	return utf8.RuneCountInString(a) <= shortTokenMaxRunes || utf8.RuneCountInString(b) <= shortTokenMaxRunes
}

func sameTokenSet(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	other := make(map[string]struct{}, len(b))
	for _, t := range b {
		if _, ok := set[t]; !ok {
			return false
		}
		other[t] = struct{}{}
	}
	return len(set) == len(other)
}
