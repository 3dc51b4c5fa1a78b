// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"nameguard/internal/matching"
	"nameguard/internal/verification"
	pstrings "nameguard/pkg/platform/strings"
)

const (
	EnvAddr          = "NAMEGUARD_ADDR"
	EnvThreshold     = "MATCH_THRESHOLD"
	EnvPolicy        = "VERIFICATION_POLICY"
	EnvJWTSigningKey = "JWT_SIGNING_KEY"

	EnvAPIKey           = "ANTHROPIC_API_KEY"
	EnvModel            = "ANTHROPIC_MODEL"
	EnvModelAlias       = "CLAUDE_SONNET"
	EnvBaseURL          = "ANTHROPIC_BASE_URL"
	EnvMaxTokens        = "VERIFIER_MAX_TOKENS"
	EnvVerifierTimeout  = "VERIFIER_TIMEOUT"
	EnvBreakerFailures  = "VERIFIER_BREAKER_FAILURES"
	EnvBreakerCooldown  = "VERIFIER_BREAKER_COOLDOWN"
	EnvRedisURL         = "REDIS_URL"
	EnvVerdictCacheTTL  = "VERDICT_CACHE_TTL"
	EnvDatabaseURL      = "DATABASE_URL"
	EnvKafkaBrokers     = "KAFKA_BROKERS"
	EnvAuditTopic       = "AUDIT_TOPIC"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFormat        = "LOG_FORMAT"
	EnvShutdownTimeout  = "SHUTDOWN_TIMEOUT"
	EnvScreeningWorkers = "SCREENING_WORKERS"
	EnvRateLimit        = "RATE_LIMIT_PER_MINUTE"
)

const (
	DefaultAddr             = ":8080"
	DefaultMaxTokens        = 1024
	DefaultVerifierTimeout  = 30 * time.Second
	DefaultBreakerFailures  = 5
	DefaultBreakerCooldown  = 30 * time.Second
	DefaultVerdictCacheTTL  = 10 * time.Minute
	DefaultAuditTopic       = "nameguard.audit.compliance"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultShutdownTimeout  = 15 * time.Second
	DefaultScreeningWorkers = 4
	DefaultRateLimit        = 60
)

// Config is the full service configuration. It is loaded once in main and
// passed down by value.
type Config struct {
	Server    Server
	Matching  Matching
	Verifier  Verifier
	Redis     RedisConfig
	Audit     Audit
	Log       Log
	Screening Screening
	RateLimit RateLimit
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
	// JWTSigningKey enables bearer-token auth on the API when set.
	JWTSigningKey   string
	ShutdownTimeout time.Duration
}

// Matching configures the decision cascade.
type Matching struct {
	Threshold matching.Threshold
	Policy    verification.Policy
}

// Verifier configures the semantic verifier client and its circuit breaker.
type Verifier struct {
	APIKey          string
	Model           string
	BaseURL         string
	MaxTokens       int
	Timeout         time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
}

// RedisConfig configures the optional verdict cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	VerdictTTL   time.Duration
}

// Audit selects the compliance audit store: Kafka when brokers are set,
// otherwise Postgres when a database URL is set, otherwise in memory.
type Audit struct {
	DatabaseURL  string
	KafkaBrokers []string
	Topic        string
}

// Log configures the slog handler.
type Log struct {
	Level  string
	Format string
}

// Screening configures batch runs.
type Screening struct {
	Workers int
}

// RateLimit caps verify requests per caller per minute. Zero disables it.
type RateLimit struct {
	PerMinute int
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup and validates it. Every invalid
// variable is reported, not only the first.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	e := env{lookup: lookup}

	policy, err := verification.ParsePolicy(e.str(EnvPolicy, ""))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", EnvPolicy, err))
	}

	model := e.str(EnvModel, "")
	if model == "" {
		model = e.str(EnvModelAlias, "")
	}

	cfg := &Config{
		Server: Server{
			Addr:            e.str(EnvAddr, DefaultAddr),
			JWTSigningKey:   e.str(EnvJWTSigningKey, ""),
			ShutdownTimeout: e.duration(EnvShutdownTimeout, DefaultShutdownTimeout),
		},
		Matching: Matching{
			Threshold: matching.Threshold(e.integer(EnvThreshold, int(matching.DefaultThreshold))),
			Policy:    policy,
		},
		Verifier: Verifier{
			APIKey:          e.str(EnvAPIKey, ""),
			Model:           model,
			BaseURL:         e.str(EnvBaseURL, ""),
			MaxTokens:       e.integer(EnvMaxTokens, DefaultMaxTokens),
			Timeout:         e.duration(EnvVerifierTimeout, DefaultVerifierTimeout),
			BreakerFailures: e.integer(EnvBreakerFailures, DefaultBreakerFailures),
			BreakerCooldown: e.duration(EnvBreakerCooldown, DefaultBreakerCooldown),
		},
		Redis: RedisConfig{
			URL:          e.str(EnvRedisURL, ""),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			VerdictTTL:   e.duration(EnvVerdictCacheTTL, DefaultVerdictCacheTTL),
		},
		Audit: Audit{
			DatabaseURL:  e.str(EnvDatabaseURL, ""),
			KafkaBrokers: pstrings.SplitList(e.str(EnvKafkaBrokers, "")),
			Topic:        e.str(EnvAuditTopic, DefaultAuditTopic),
		},
		Log: Log{
			Level:  strings.ToLower(e.str(EnvLogLevel, DefaultLogLevel)),
			Format: strings.ToLower(e.str(EnvLogFormat, DefaultLogFormat)),
		},
		Screening: Screening{
			Workers: e.integer(EnvScreeningWorkers, DefaultScreeningWorkers),
		},
		RateLimit: RateLimit{
			PerMinute: e.integer(EnvRateLimit, DefaultRateLimit),
		},
	}

	errs := append(e.errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	if !c.Matching.Threshold.Valid() {
		errs = append(errs, fmt.Errorf("%s must be between 0 and 100, got %d", EnvThreshold, c.Matching.Threshold))
	}
	if c.Verifier.APIKey == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvAPIKey))
	}
	if c.Verifier.Model == "" {
		errs = append(errs, fmt.Errorf("%s (or %s) is required", EnvModel, EnvModelAlias))
	}
	if c.Verifier.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvMaxTokens))
	}
	if c.Verifier.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvVerifierTimeout))
	}
	if c.Verifier.BreakerFailures <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvBreakerFailures))
	}
	if c.Screening.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvScreeningWorkers))
	}
	if c.RateLimit.PerMinute < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", EnvRateLimit))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("%s must be json or text, got %q", EnvLogFormat, c.Log.Format))
	}
	return errs
}

// env reads typed variables and collects parse errors.
type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) integer(key string, def int) int {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not an integer", key, raw))
		return def
	}
	return n
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a duration", key, raw))
		return def
	}
	return d
}
