// Package app builds the verification stack from configuration. The server
// and the CLI share it so both run the same cascade, verifier decorators and
// audit trail.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nameguard/internal/matching"
	"nameguard/internal/names/phonetic"
	"nameguard/internal/platform/config"
	platformredis "nameguard/internal/platform/redis"
	"nameguard/internal/ratelimit"
	"nameguard/internal/verification"
	vmetrics "nameguard/internal/verification/metrics"
	"nameguard/internal/verifier"
	"nameguard/internal/verifier/anthropic"
	"nameguard/internal/verifier/cache"
	audit "nameguard/pkg/platform/audit"
	"nameguard/pkg/platform/audit/publishers/compliance"
	"nameguard/pkg/platform/audit/publishers/ops"
	kafkastore "nameguard/pkg/platform/audit/store/kafka"
	"nameguard/pkg/platform/audit/store/memory"
	pgstore "nameguard/pkg/platform/audit/store/postgres"
	"nameguard/pkg/platform/circuit"
)

// App is the assembled verification stack.
type App struct {
	Service *verification.Service
	Tracker *ops.Tracker
	// Checks are readiness probes keyed by dependency name.
	Checks map[string]func(context.Context) error
	// AuditBackend names the selected audit store: memory, postgres or kafka.
	AuditBackend string

	redis   *platformredis.Client
	closers []func() error
}

// Build connects to the configured backends and wires the service.
// On error, anything already opened is closed.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{Checks: map[string]func(context.Context) error{}}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	metrics := vmetrics.New()

	v, err := a.buildVerifier(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}

	store, err := a.buildAuditStore(ctx, cfg.Audit, logger)
	if err != nil {
		return nil, err
	}
	publisher := compliance.New(store,
		compliance.WithLogger(logger),
		compliance.WithMetrics(compliance.NewMetrics()),
	)
	a.closers = append(a.closers, publisher.Close)
	a.Tracker = ops.New(store,
		ops.WithLogger(logger),
		ops.WithMetrics(ops.NewMetrics()),
	)

	cascade := matching.NewCascade(cfg.Matching.Threshold, phonetic.DoubleMetaphone{})
	a.Service = verification.New(cascade, v,
		verification.WithPolicy(cfg.Matching.Policy),
		verification.WithAuditor(publisher),
		verification.WithLogger(logger),
		verification.WithMetrics(metrics),
	)

	logger.InfoContext(ctx, "verification stack ready",
		"policy", cfg.Matching.Policy.String(),
		"threshold", int(cfg.Matching.Threshold),
		"model", cfg.Verifier.Model,
		"verdict_cache", cfg.Redis.URL != "",
		"audit_store", a.AuditBackend,
	)
	return a, nil
}

// buildVerifier stacks cache -> breaker -> client. The cache sits outside
// the breaker so cached verdicts are served while the circuit is open.
func (a *App) buildVerifier(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *vmetrics.Metrics) (verifier.Verifier, error) {
	opts := []anthropic.Option{
		anthropic.WithMaxTokens(cfg.Verifier.MaxTokens),
		anthropic.WithTimeout(cfg.Verifier.Timeout),
	}
	if cfg.Verifier.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.Verifier.BaseURL))
	}
	var v verifier.Verifier = anthropic.New(cfg.Verifier.APIKey, cfg.Verifier.Model, opts...)

	breaker := circuit.New("semantic_verifier",
		circuit.WithFailureThreshold(cfg.Verifier.BreakerFailures),
		circuit.WithCooldown(cfg.Verifier.BreakerCooldown),
	)
	v = verifier.WithBreaker(v, breaker, logger, metrics)

	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("verdict cache: %w", err)
	}
	if rc != nil {
		a.redis = rc
		a.closers = append(a.closers, rc.Close)
		a.Checks["redis"] = rc.Health
		v = cache.New(v, rc.Client,
			cache.WithTTL(cfg.Redis.VerdictTTL),
			cache.WithLogger(logger),
			cache.WithObserver(metrics),
		)
	}
	return v, nil
}

// buildAuditStore prefers Kafka, then Postgres, then memory.
func (a *App) buildAuditStore(ctx context.Context, cfg config.Audit, logger *slog.Logger) (audit.Store, error) {
	switch {
	case len(cfg.KafkaBrokers) > 0:
		store, err := kafkastore.New(cfg.KafkaBrokers, cfg.Topic)
		if err != nil {
			return nil, fmt.Errorf("audit stream: %w", err)
		}
		a.closers = append(a.closers, func() error { store.Close(); return nil })
		if err := store.EnsureTopic(ctx, 3, 1); err != nil {
			// Managed clusters often forbid topic creation; producing still works.
			logger.WarnContext(ctx, "could not ensure audit topic", "topic", store.Topic(), "error", err)
		}
		a.AuditBackend = "kafka"
		return store, nil

	case cfg.DatabaseURL != "":
		db, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("audit database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.Checks["postgres"] = db.PingContext
		store := pgstore.New(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("audit schema: %w", err)
		}
		a.AuditBackend = "postgres"
		return store, nil

	default:
		logger.WarnContext(ctx, "no audit backend configured; compliance events are kept in memory only")
		a.AuditBackend = "memory"
		return memory.NewInMemoryStore(), nil
	}
}

// RateLimiter returns per-caller throttling for the API, or nil when
// disabled. Counts live in Redis when it is configured so replicas share
// them; otherwise in memory, swept until ctx ends.
func (a *App) RateLimiter(ctx context.Context, cfg config.RateLimit, logger *slog.Logger) *ratelimit.Middleware {
	if cfg.PerMinute <= 0 {
		logger.InfoContext(ctx, "rate limiting disabled")
		return nil
	}
	var store ratelimit.Store
	if a.redis != nil {
		store = ratelimit.NewRedisStore(a.redis.Client)
	} else {
		mem := ratelimit.NewMemoryStore()
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					mem.Sweep(time.Minute)
				}
			}
		}()
		store = mem
	}
	return ratelimit.NewMiddleware(store, cfg.PerMinute, time.Minute, logger)
}

// Close releases backends in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
