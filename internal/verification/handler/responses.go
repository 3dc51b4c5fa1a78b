package handler

import (
	"nameguard/internal/verification"
)

// VerifyResponse is the HTTP response for POST /v1/names/verify.
// Match is null when the verifier's reply could not be read.
type VerifyResponse struct {
	Match        *bool  `json:"match"`
	Confidence   *int   `json:"confidence"`
	Explanation  string `json:"explanation"`
	Source       string `json:"source"`
	Rule         string `json:"rule,omitempty"`
	PhoneticHint bool   `json:"phonetic_hint"`
	RequestID    string `json:"request_id,omitempty"`
}

// FromResult converts a verification result to an HTTP response.
func FromResult(result *verification.Result, requestID string) *VerifyResponse {
	return &VerifyResponse{
		Match:        result.Match,
		Confidence:   result.Confidence,
		Explanation:  result.Explanation,
		Source:       string(result.Source),
		Rule:         string(result.Rule),
		PhoneticHint: result.PhoneticHint,
		RequestID:    requestID,
	}
}
