// Package ratelimit throttles API callers with a sliding window. Each
// verification can cost a paid upstream call, so the limit is per caller
// rather than global.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Result is the outcome of one rate limit check.
type Result struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	// RetryAfter is in whole seconds and only set when not allowed.
	RetryAfter int `json:"retry_after,omitempty"`
}

// Store records requests and decides whether one more fits in the window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

func newResult(allowed bool, limit, count int, oldest time.Time, window time.Duration, now time.Time) *Result {
	resetAt := oldest.Add(window)
	r := &Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   resetAt,
	}
	if !allowed {
		r.RetryAfter = max(int(math.Ceil(resetAt.Sub(now).Seconds())), 1)
	}
	return r
}
