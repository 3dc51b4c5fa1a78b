package verifier

import (
	"context"
	"fmt"
	"log/slog"

	"nameguard/pkg/platform/circuit"
	"nameguard/pkg/platform/sentinel"
)

// BreakerObserver is notified when the breaker changes state.
type BreakerObserver interface {
	SetBreakerState(name string, open bool)
}

type breakerVerifier struct {
	next     Verifier
	breaker  *circuit.Breaker
	logger   *slog.Logger
	observer BreakerObserver
}

// WithBreaker guards next with a circuit breaker. While the breaker is open,
// calls fail fast with an error wrapping sentinel.ErrUnavailable. Replies are
// not inspected: only transport errors count as failures. Caller
// cancellation is not held against the verifier.
func WithBreaker(next Verifier, breaker *circuit.Breaker, logger *slog.Logger, observer BreakerObserver) Verifier {
	return &breakerVerifier{next: next, breaker: breaker, logger: logger, observer: observer}
}

func (b *breakerVerifier) Verify(ctx context.Context, req Request) (string, error) {
	if !b.breaker.Allow() {
		return "", fmt.Errorf("semantic verifier circuit %s open: %w", b.breaker.Name(), sentinel.ErrUnavailable)
	}

	reply, err := b.next.Verify(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		if _, change := b.breaker.RecordFailure(); change.Opened {
			b.transition(ctx, true, err)
		}
		return "", err
	}

	if _, change := b.breaker.RecordSuccess(); change.Closed {
		b.transition(ctx, false, nil)
	}
	return reply, nil
}

func (b *breakerVerifier) transition(ctx context.Context, open bool, cause error) {
	if b.observer != nil {
		b.observer.SetBreakerState(b.breaker.Name(), open)
	}
	if b.logger == nil {
		return
	}
	if open {
		b.logger.WarnContext(ctx, "semantic verifier circuit opened",
			"circuit", b.breaker.Name(),
			"category", Category(cause),
			"error", cause,
		)
		return
	}
	b.logger.InfoContext(ctx, "semantic verifier circuit closed", "circuit", b.breaker.Name())
}
