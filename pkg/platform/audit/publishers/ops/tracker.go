// Package ops records operational audit events on a best-effort basis.
//
// Unlike compliance events, ops events never fail the caller. When the store
// keeps failing, a circuit breaker drops events instead of hammering it.
package ops

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "nameguard/pkg/platform/audit"
	"nameguard/pkg/platform/circuit"
)

// Tracker emits ops events.
type Tracker struct {
	store   audit.Store
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Tracker.
type Option func(*Tracker)

// WithLogger sets a logger for dropped events.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// WithBreaker replaces the default store circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(t *Tracker) {
		if b != nil {
			t.breaker = b
		}
	}
}

// New creates an ops tracker.
func New(store audit.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:   store,
		breaker: circuit.New("audit_ops", circuit.WithCooldown(time.Minute), circuit.WithSuccessThreshold(1)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track writes the event, swallowing failures.
func (t *Tracker) Track(ctx context.Context, action audit.AuditEvent, event audit.Event) {
	if !t.breaker.Allow() {
		t.metrics.IncCircuitBreakerDropped()
		return
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Action = string(action)
	event.Category = action.Category()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := t.store.Append(ctx, event); err != nil {
		t.metrics.IncPersistFailures()
		if _, change := t.breaker.RecordFailure(); change.Opened {
			t.metrics.SetCircuitBreakerState(true)
		}
		if t.logger != nil {
			t.logger.WarnContext(ctx, "ops audit event dropped", "action", action, "error", err)
		}
		return
	}

	if _, change := t.breaker.RecordSuccess(); change.Closed {
		t.metrics.SetCircuitBreakerState(false)
	}
	t.metrics.IncTracked()
}
