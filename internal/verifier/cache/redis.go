// Package cache memoizes semantic verifier replies in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"nameguard/internal/verifier"
)

const (
	// Redis key prefix for cached verifier replies
	replyKeyPrefix = "nameguard:verdict:"

	DefaultTTL = 10 * time.Minute
)

// Observer receives cache hit/miss notifications.
type Observer interface {
	IncrementCacheLookup(hit bool)
}

// Verifier is a read-through cache in front of another Verifier. Only
// successful replies are stored. Redis errors are logged and bypassed so an
// unavailable cache never fails a verification.
type Verifier struct {
	next     verifier.Verifier
	client   *redis.Client
	ttl      time.Duration
	logger   *slog.Logger
	observer Observer
}

// Option configures a cache Verifier.
type Option func(*Verifier)

// WithTTL sets how long a reply stays cached.
func WithTTL(ttl time.Duration) Option {
	return func(v *Verifier) {
		if ttl > 0 {
			v.ttl = ttl
		}
	}
}

// WithLogger sets the logger for bypassed cache errors.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// WithObserver sets the hit/miss observer.
func WithObserver(o Observer) Option {
	return func(v *Verifier) {
		v.observer = o
	}
}

// New wraps next with a Redis-backed reply cache.
func New(next verifier.Verifier, client *redis.Client, opts ...Option) *Verifier {
	v := &Verifier{
		next:   next,
		client: client,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Verify returns the cached reply for req when present, otherwise calls the
// wrapped verifier and stores its reply.
func (v *Verifier) Verify(ctx context.Context, req verifier.Request) (string, error) {
	key := Key(req)

	reply, err := v.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		v.observe(true)
		return reply, nil
	case errors.Is(err, redis.Nil):
		v.observe(false)
	default:
		v.observe(false)
		v.warn(ctx, "verdict cache read failed", err)
	}

	reply, err = v.next.Verify(ctx, req)
	if err != nil {
		return "", err
	}

	if err := v.client.Set(ctx, key, reply, v.ttl).Err(); err != nil {
		v.warn(ctx, "verdict cache write failed", err)
	}
	return reply, nil
}

// Key derives the cache key for a request. Names are hashed so raw PII never
// lands in Redis key space.
func Key(req verifier.Request) string {
	h := sha256.New()
	for _, part := range []string{
		string(req.Prompt),
		req.Target,
		req.Candidate,
		strconv.FormatBool(req.PhoneticHint),
	} {
		h.Write([]byte(strconv.Itoa(len(part))))
		h.Write([]byte{':'})
		h.Write([]byte(part))
	}
	return replyKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (v *Verifier) observe(hit bool) {
	if v.observer != nil {
		v.observer.IncrementCacheLookup(hit)
	}
}

func (v *Verifier) warn(ctx context.Context, msg string, err error) {
	if v.logger != nil {
		v.logger.WarnContext(ctx, msg, "error", err)
	}
}
