package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	// ErrUnavailable: a dependency is temporarily refusing work, for example
	// the semantic verifier while its circuit is open.
	ErrUnavailable = errors.New("unavailable")
)
