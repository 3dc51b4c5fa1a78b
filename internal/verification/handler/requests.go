package handler

import (
	"fmt"
	"strings"
	"unicode/utf8"

	dErrors "nameguard/pkg/domain-errors"
)

// MaxNameLength bounds each name in characters.
const MaxNameLength = 256

// VerifyRequest is the HTTP request body for POST /v1/names/verify.
type VerifyRequest struct {
	TargetName    string `json:"target_name"`
	CandidateName string `json:"candidate_name"`
}

// Validate validates and trims the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	// Size validation (fail fast)
	if utf8.RuneCountInString(r.TargetName) > MaxNameLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("target_name must be at most %d characters", MaxNameLength))
	}
	if utf8.RuneCountInString(r.CandidateName) > MaxNameLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("candidate_name must be at most %d characters", MaxNameLength))
	}

	r.TargetName = strings.TrimSpace(r.TargetName)
	r.CandidateName = strings.TrimSpace(r.CandidateName)
	if r.TargetName == "" {
		return dErrors.New(dErrors.CodeValidation, "target_name is required")
	}
	return nil
}
