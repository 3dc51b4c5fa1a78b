// Package verifier talks to the semantic verifier: the LLM-backed service that
// judges name pairs the deterministic rules could not settle.
//
// The package owns the prompt variants, the reply parser and decorators that
// add caching and circuit breaking around any Verifier implementation.
package verifier

import (
	"context"
	"fmt"
)

// PromptVariant selects how much policy context the verifier receives.
type PromptVariant string

const (
	// PromptMinimal asks for a plain match judgement with no rules context.
	PromptMinimal PromptVariant = "minimal"
	// PromptElaborated embeds the verification rules and, when hinted, the
	// phonetic-risk context block.
	PromptElaborated PromptVariant = "elaborated"
)

// Request is one name pair sent to the verifier.
type Request struct {
	Target       string
	Candidate    string
	PhoneticHint bool
	Prompt       PromptVariant
}

// Render returns the prompt text for the request's variant.
func (r Request) Render() (string, error) {
	switch r.Prompt {
	case PromptMinimal:
		return MinimalPrompt(r.Target, r.Candidate), nil
	case PromptElaborated:
		return ElaboratedPrompt(r.Target, r.Candidate, r.PhoneticHint), nil
	default:
		return "", fmt.Errorf("unknown prompt variant %q", r.Prompt)
	}
}

// Verifier sends a name pair to the semantic verifier and returns its raw
// reply, which is expected to hold the decision JSON, possibly fenced.
// Implementations make a single attempt per call.
type Verifier interface {
	Verify(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to the Verifier interface.
type Func func(ctx context.Context, req Request) (string, error)

// Verify calls f.
func (f Func) Verify(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
