package verifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

var (
	openingFence = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\r?\n?")
	closingFence = regexp.MustCompile("\\s*```\\s*$")
	matchField   = regexp.MustCompile(`(?i)"match":\s*(true|false)`)
)

// Verdict is the verifier's decision as far as it could be read from its reply.
// Match is nil when no boolean could be recovered; Confidence is nil whenever
// the reply was not valid JSON.
type Verdict struct {
	Match       *bool  `json:"match"`
	Confidence  *int   `json:"confidence"`
	Explanation string `json:"explanation"`
	// Strict is true when the reply decoded as JSON.
	Strict bool   `json:"-"`
	Raw    string `json:"-"`
}

// IsMatch reports Match, treating an unknown verdict as a non-match.
func (v Verdict) IsMatch() bool {
	return v.Match != nil && *v.Match
}

type wireVerdict struct {
	Match       *bool    `json:"match"`
	Confidence  *float64 `json:"confidence"`
	Explanation string   `json:"explanation"`
	Reason      string   `json:"reason"`
}

// ParseReply reads a verifier reply in two stages. The strict stage strips
// markdown code fences and decodes the JSON object. If that fails the fallback
// stage searches the text for a "match" boolean and reports the decode error
// as the explanation. ParseReply never fails; callers inspect Strict and Match.
func ParseReply(reply string) Verdict {
	text := StripFences(reply)

	v, err := ParseStrict(text)
	if err == nil {
		v.Raw = reply
		return v
	}

	v = ExtractMatch(text, err)
	v.Raw = reply
	return v
}

// StripFences trims whitespace and removes a leading ``` fence (with an
// optional language tag) and a trailing ``` fence.
func StripFences(reply string) string {
	text := strings.TrimSpace(reply)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = openingFence.ReplaceAllString(text, "")
	text = closingFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ParseStrict decodes text as the decision JSON object.
func ParseStrict(text string) (Verdict, error) {
	var wire wireVerdict
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&wire); err != nil {
		return Verdict{}, err
	}
	if dec.More() {
		return Verdict{}, errors.New("unexpected content after JSON object")
	}

	v := Verdict{
		Match:       wire.Match,
		Explanation: wire.Explanation,
		Strict:      true,
	}
	if v.Explanation == "" {
		v.Explanation = wire.Reason
	}
	if wire.Confidence != nil {
		c := int(math.Round(*wire.Confidence))
		v.Confidence = &c
	}
	return v, nil
}

// ExtractMatch is the best-effort stage: it looks for a "match": true|false
// pair in otherwise unparseable text. Confidence is always nil.
func ExtractMatch(text string, cause error) Verdict {
	v := Verdict{Explanation: fmt.Sprintf("JSON parsing failed: %v", cause)}

	if !strings.Contains(text, `"match":`) && !strings.Contains(text, `'match':`) {
		return v
	}
	if m := matchField.FindStringSubmatch(text); m != nil {
		found := strings.EqualFold(m[1], "true")
		v.Match = &found
	}
	return v
}
