package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"nameguard/internal/app"
	httpapi "nameguard/internal/http"
	jwttoken "nameguard/internal/jwt_token"
	"nameguard/internal/platform/config"
	"nameguard/internal/platform/httpserver"
	"nameguard/internal/platform/logger"
	platformmetrics "nameguard/internal/platform/metrics"
	vhandler "nameguard/internal/verification/handler"
	authmw "nameguard/pkg/platform/middleware/auth"
)

// Set by the linker.
var version = "dev"

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nameguard: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.Close(); err != nil {
			log.Warn("closing backends", "error", err)
		}
	}()

	var validator authmw.JWTValidator
	if cfg.Server.JWTSigningKey != "" {
		validator = jwttoken.NewValidator(jwttoken.NewJWTService(cfg.Server.JWTSigningKey, jwttoken.Issuer, jwttoken.Audience))
	} else {
		log.Warn("JWT_SIGNING_KEY not set; verification API is unauthenticated")
	}

	checks := map[string]httpapi.HealthCheck{}
	for name, check := range stack.Checks {
		checks[name] = check
	}

	metrics := platformmetrics.New()
	metrics.SetBuildInfo(version, cfg.Matching.Policy.String())

	deps := httpapi.Deps{
		Logger:    log,
		Metrics:   metrics,
		Validator: validator,
		Checks:    checks,
		API:       []httpapi.Registrar{vhandler.New(stack.Service, log)},
	}
	if limiter := stack.RateLimiter(ctx, cfg.RateLimit, log); limiter != nil {
		deps.RateLimit = limiter.PerCaller
	}
	router := httpapi.NewRouter(deps)
	srv := httpserver.New(cfg.Server.Addr, otelhttp.NewHandler(router, "nameguard"), cfg.Verifier.Timeout)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting nameguard", "addr", cfg.Server.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
