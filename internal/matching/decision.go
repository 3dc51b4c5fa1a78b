package matching

// DefaultThreshold is the confidence at or above which a decision is a match.
const DefaultThreshold Threshold = 85

// Threshold converts confidence scores into match / non-match decisions.
// A process loads it once and shares it with every component that builds decisions.
type Threshold int

// Decision is the outcome of a deterministic rule.
type Decision struct {
	Match       bool   `json:"match"`
	Confidence  int    `json:"confidence"`
	Explanation string `json:"explanation"`
}

// Decide builds a Decision whose Match field is derived from confidence.
func (t Threshold) Decide(confidence int, explanation string) Decision {
	return Decision{
		Match:       confidence >= int(t),
		Confidence:  confidence,
		Explanation: explanation,
	}
}

// Valid reports whether t lies on the 0-100 confidence scale.
func (t Threshold) Valid() bool {
	return t >= 0 && t <= 100
}
