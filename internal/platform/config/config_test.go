package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nameguard/internal/matching"
	"nameguard/internal/verification"
)

func lookupFrom(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func required() map[string]string {
	return map[string]string{
		EnvAPIKey: "sk-test",
		EnvModel:  "claude-test",
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(required()))
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, matching.DefaultThreshold, cfg.Matching.Threshold)
	assert.Equal(t, verification.PolicyCascade, cfg.Matching.Policy)
	assert.Equal(t, DefaultMaxTokens, cfg.Verifier.MaxTokens)
	assert.Equal(t, DefaultVerifierTimeout, cfg.Verifier.Timeout)
	assert.Equal(t, DefaultVerdictCacheTTL, cfg.Redis.VerdictTTL)
	assert.Empty(t, cfg.Redis.URL)
	assert.Nil(t, cfg.Audit.KafkaBrokers)
	assert.Equal(t, DefaultAuditTopic, cfg.Audit.Topic)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultRateLimit, cfg.RateLimit.PerMinute)
}

func TestFromLookup_Overrides(t *testing.T) {
	vars := required()
	vars[EnvThreshold] = "90"
	vars[EnvPolicy] = "verifier_only"
	vars[EnvVerifierTimeout] = "5s"
	vars[EnvKafkaBrokers] = "k1:9092, k2:9092,k1:9092"
	vars[EnvLogFormat] = "TEXT"
	vars[EnvLogLevel] = "DEBUG"
	vars[EnvRateLimit] = "0"

	cfg, err := FromLookup(lookupFrom(vars))
	require.NoError(t, err)
	assert.Equal(t, matching.Threshold(90), cfg.Matching.Threshold)
	assert.Equal(t, verification.PolicyVerifierOnly, cfg.Matching.Policy)
	assert.Equal(t, 5*time.Second, cfg.Verifier.Timeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Audit.KafkaBrokers)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Zero(t, cfg.RateLimit.PerMinute)
}

func TestFromLookup_ModelAlias(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		EnvAPIKey:     "sk-test",
		EnvModelAlias: "claude-sonnet",
	}))
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet", cfg.Verifier.Model)
}

func TestFromLookup_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantMsg string
	}{
		{"missing api key", map[string]string{EnvModel: "m"}, EnvAPIKey},
		{"missing model", map[string]string{EnvAPIKey: "k"}, EnvModel},
		{"threshold above range", merge(required(), EnvThreshold, "101"), EnvThreshold},
		{"threshold below range", merge(required(), EnvThreshold, "-1"), EnvThreshold},
		{"threshold not a number", merge(required(), EnvThreshold, "high"), EnvThreshold},
		{"bad policy", merge(required(), EnvPolicy, "3"), EnvPolicy},
		{"bad duration", merge(required(), EnvVerifierTimeout, "soon"), EnvVerifierTimeout},
		{"bad log format", merge(required(), EnvLogFormat, "xml"), EnvLogFormat},
		{"negative rate limit", merge(required(), EnvRateLimit, "-5"), EnvRateLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromLookup(lookupFrom(tt.vars))
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestFromLookup_ReportsEveryProblem(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{EnvThreshold: "200"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvThreshold)
	assert.Contains(t, err.Error(), EnvAPIKey)
	assert.Contains(t, err.Error(), EnvModel)
}

func merge(vars map[string]string, key, value string) map[string]string {
	vars[key] = value
	return vars
}
