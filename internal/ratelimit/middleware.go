package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"nameguard/pkg/platform/httputil"
	"nameguard/pkg/platform/middleware/metadata"
	"nameguard/pkg/requestcontext"
)

// ExceededResponse is the 429 body.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// Middleware applies one limit to every request it wraps.
type Middleware struct {
	store  Store
	limit  int
	window time.Duration
	logger *slog.Logger
}

// NewMiddleware allows limit requests per window for each caller.
func NewMiddleware(store Store, limit int, window time.Duration, logger *slog.Logger) *Middleware {
	return &Middleware{store: store, limit: limit, window: window, logger: logger}
}

// PerCaller keys the window by the authenticated caller, or by client IP when
// auth is disabled. Store failures let the request through.
func (m *Middleware) PerCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := "ip:" + metadata.ClientIPFromRequest(r)
		if caller := requestcontext.Caller(ctx); caller != "" {
			key = "caller:" + caller
		}

		result, err := m.store.Allow(ctx, key, m.limit, m.window)
		if err != nil {
			m.logger.ErrorContext(ctx, "rate limit check failed", "key", key, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		addHeaders(w, result)
		if !result.Allowed {
			m.logger.WarnContext(ctx, "rate limit exceeded", "key", key, "retry_after", result.RetryAfter)
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, &ExceededResponse{
				Error:      "rate_limit_exceeded",
				Message:    "Too many verification requests. Please try again later.",
				RetryAfter: result.RetryAfter,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func addHeaders(w http.ResponseWriter, result *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
