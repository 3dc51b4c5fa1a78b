package ratelimit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseHeader(key string) string
}

// RegisterSteps registers per-caller throttling step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I send verification requests until throttled, at most (\d+)$`, steps.sendUntilThrottled)
	ctx.Step(`^the response should be rate limited$`, steps.responseShouldBeRateLimited)
	ctx.Step(`^the response should advertise a retry delay$`, steps.responseShouldAdvertiseRetry)
}

type ratelimitSteps struct {
	tc TestContext
}

// sendUntilThrottled uses an exact-match pair so no request reaches the
// paid verifier.
func (s *ratelimitSteps) sendUntilThrottled(ctx context.Context, limit int) error {
	for range limit + 1 {
		if err := s.tc.POST("/v1/names/verify", map[string]string{
			"target_name":    "Maria Garcia",
			"candidate_name": "maria garcia",
		}); err != nil {
			return err
		}
		if s.tc.GetLastResponseStatus() == 429 {
			return nil
		}
	}
	return fmt.Errorf("not throttled after %d requests", limit+1)
}

func (s *ratelimitSteps) responseShouldBeRateLimited(ctx context.Context) error {
	if got := s.tc.GetLastResponseStatus(); got != 429 {
		return fmt.Errorf("expected status 429, got %d", got)
	}
	v, err := s.tc.GetResponseField("error")
	if err != nil {
		return err
	}
	if v != "rate_limit_exceeded" {
		return fmt.Errorf("expected error rate_limit_exceeded, got %v", v)
	}
	return nil
}

func (s *ratelimitSteps) responseShouldAdvertiseRetry(ctx context.Context) error {
	retry, err := strconv.Atoi(s.tc.GetLastResponseHeader("Retry-After"))
	if err != nil || retry <= 0 {
		return fmt.Errorf("missing or invalid Retry-After header: %q", s.tc.GetLastResponseHeader("Retry-After"))
	}
	if s.tc.GetLastResponseHeader("X-RateLimit-Remaining") != "0" {
		return fmt.Errorf("expected X-RateLimit-Remaining=0")
	}
	return nil
}
