package verifier

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for verifier backends.
type ErrorCategory string

const (
	// ErrorTimeout indicates the verifier took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the verifier returned a malformed envelope
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorProviderOutage indicates the verifier is unavailable
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates an unexpected local failure
	ErrorInternal ErrorCategory = "internal"
)

// ProviderError wraps verifier failures with a normalized category.
type ProviderError struct {
	Category   ErrorCategory
	Provider   string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("verifier %s [%s]: %s: %v", e.Provider, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("verifier %s [%s]: %s", e.Provider, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError builds a ProviderError. Timeouts, outages and rate limits
// are marked retryable; nothing in this package retries, callers decide.
func NewProviderError(category ErrorCategory, provider, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited

	return &ProviderError{
		Category:   category,
		Provider:   provider,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// Category extracts the error category, defaulting to ErrorInternal.
func Category(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}
