//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"nameguard/internal/verifier"
	"nameguard/internal/verifier/cache"
	"nameguard/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestSecondCallIsServedFromCache() {
	ctx := context.Background()
	calls := 0
	backend := verifier.Func(func(context.Context, verifier.Request) (string, error) {
		calls++
		return `{"match": true, "confidence": 93, "explanation": "variant"}`, nil
	})
	v := cache.New(backend, s.redis.Client, cache.WithTTL(time.Minute))
	req := verifier.Request{Target: "Stephen", Candidate: "Steven", Prompt: verifier.PromptElaborated}

	first, err := v.Verify(ctx, req)
	s.Require().NoError(err)
	second, err := v.Verify(ctx, req)
	s.Require().NoError(err)

	s.Equal(first, second)
	s.Equal(1, calls)

	ttl, err := s.redis.Client.TTL(ctx, cache.Key(req)).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, time.Minute)
}

func (s *RedisCacheSuite) TestHintChangesKey() {
	ctx := context.Background()
	calls := 0
	backend := verifier.Func(func(context.Context, verifier.Request) (string, error) {
		calls++
		return `{"match": false, "confidence": 5, "explanation": "different"}`, nil
	})
	v := cache.New(backend, s.redis.Client)

	req := verifier.Request{Target: "Rashid", Candidate: "Rashidi", Prompt: verifier.PromptElaborated}
	_, err := v.Verify(ctx, req)
	s.Require().NoError(err)

	req.PhoneticHint = true
	_, err = v.Verify(ctx, req)
	s.Require().NoError(err)

	s.Equal(2, calls)
}
