package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestFeatures runs the Gherkin scenarios against a live server at
// NAMEGUARD_E2E_URL, authenticating with NAMEGUARD_E2E_TOKEN if set.
func TestFeatures(t *testing.T) {
	baseURL := os.Getenv("NAMEGUARD_E2E_URL")
	if baseURL == "" {
		t.Skip("NAMEGUARD_E2E_URL not set")
	}
	tc := NewTestContext(baseURL, os.Getenv("NAMEGUARD_E2E_TOKEN"))

	suite := godog.TestSuite{
		Name: "nameguard",
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				tc.Reset()
				return ctx, nil
			})
			RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Tags:     os.Getenv("NAMEGUARD_E2E_TAGS"),
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("e2e scenarios failed")
	}
}
