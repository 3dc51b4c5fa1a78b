// Package compliance provides a fail-closed audit publisher for regulatory events.
//
// Emit writes synchronously: the caller blocks until the store acknowledged the
// event, and a failed write is returned so the calling operation fails too.
// A verification whose decision cannot be recorded must not be reported.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "nameguard/pkg/platform/audit"
)

// Publisher emits compliance events with fail-closed semantics.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New creates a compliance publisher.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously writes a compliance event to the audit store.
// Returns error if persistence fails - the caller MUST fail its operation.
func (p *Publisher) Emit(ctx context.Context, event audit.ComplianceEvent) error {
	start := time.Now()

	if event.Action == "" {
		return fmt.Errorf("compliance event requires Action")
	}
	if event.Action.Category() != audit.CategoryCompliance {
		return fmt.Errorf("event %q is not a compliance event", event.Action)
	}
	if event.SubjectHash == "" {
		return fmt.Errorf("compliance event requires SubjectHash")
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := p.store.Append(ctx, event.ToEvent()); err != nil {
		p.metrics.IncPersistFailures()
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "CRITICAL: compliance audit failed",
				"action", event.Action,
				"request_id", event.RequestID,
				"error", err,
			)
		}
		return fmt.Errorf("compliance audit persistence failed: %w", err)
	}

	p.metrics.ObservePersistDuration(time.Since(start))
	p.metrics.IncEventsEmitted()
	return nil
}

// Close is a no-op for the synchronous compliance publisher.
func (p *Publisher) Close() error {
	return nil
}
