// Package httpapi assembles the public HTTP surface.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	platformmetrics "nameguard/internal/platform/metrics"
	"nameguard/pkg/platform/httputil"
	authmw "nameguard/pkg/platform/middleware/auth"
	"nameguard/pkg/platform/middleware/metadata"
	"nameguard/pkg/platform/middleware/request"
	"nameguard/pkg/platform/middleware/requesttime"
)

// Registrar mounts a group of endpoints.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps are the pieces NewRouter wires together.
type Deps struct {
	Logger  *slog.Logger
	Metrics *platformmetrics.Metrics
	// Validator enables bearer-token auth on API routes when non-nil.
	Validator authmw.JWTValidator
	// RateLimit wraps API routes after auth when non-nil.
	RateLimit func(http.Handler) http.Handler
	// Checks are run by /readyz, keyed by dependency name.
	Checks map[string]HealthCheck
	API    []Registrar
}

// NewRouter wires all public endpoints. Health and metrics endpoints are
// never behind auth.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(metadata.AccessLog(d.Logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Instrument)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(d.Checks, d.Logger))
	r.Handle("/metrics", platformmetrics.Handler())

	r.Group(func(api chi.Router) {
		if d.Validator != nil {
			api.Use(authmw.RequireAuth(d.Validator, d.Logger))
		}
		if d.RateLimit != nil {
			api.Use(d.RateLimit)
		}
		for _, reg := range d.API {
			reg.Register(api)
		}
	})
	return r
}

func readiness(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "readiness check failed", "dependency", name, "error", err)
				body[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			body[name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
