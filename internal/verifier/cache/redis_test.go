package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nameguard/internal/verifier"
)

type lookups struct {
	hits, misses int
}

func (l *lookups) IncrementCacheLookup(hit bool) {
	if hit {
		l.hits++
		return
	}
	l.misses++
}

func TestKey(t *testing.T) {
	base := verifier.Request{Target: "Ali Hassan", Candidate: "Hassan Ali", Prompt: verifier.PromptElaborated}

	assert.Equal(t, Key(base), Key(base), "key is deterministic")
	assert.Contains(t, Key(base), replyKeyPrefix)
	assert.NotContains(t, Key(base), "Hassan", "names must not appear in the key")

	hinted := base
	hinted.PhoneticHint = true
	minimal := base
	minimal.Prompt = verifier.PromptMinimal
	swapped := base
	swapped.Target, swapped.Candidate = base.Candidate, base.Target
	// Length prefixes keep ("ab", "c") and ("a", "bc") apart.
	shifted := verifier.Request{Target: "Ali Hassa", Candidate: "nHassan Ali", Prompt: verifier.PromptElaborated}

	keys := map[string]bool{}
	for _, r := range []verifier.Request{base, hinted, minimal, swapped, shifted} {
		keys[Key(r)] = true
	}
	assert.Len(t, keys, 5)
}

func TestVerify_BypassesUnavailableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	calls := 0
	backend := verifier.Func(func(context.Context, verifier.Request) (string, error) {
		calls++
		return `{"match": false, "confidence": 10, "explanation": "no"}`, nil
	})
	obs := &lookups{}
	v := New(backend, client, WithObserver(obs))

	reply, err := v.Verify(context.Background(), verifier.Request{Target: "a", Candidate: "b", Prompt: verifier.PromptMinimal})
	require.NoError(t, err)
	assert.Contains(t, reply, `"match": false`)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, obs.misses)
}

func TestVerify_BackendErrorPropagates(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	boom := errors.New("boom")
	v := New(verifier.Func(func(context.Context, verifier.Request) (string, error) {
		return "", boom
	}), client)

	_, err := v.Verify(context.Background(), verifier.Request{Prompt: verifier.PromptMinimal})
	assert.ErrorIs(t, err, boom)
}
