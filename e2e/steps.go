package e2e

import (
	"github.com/cucumber/godog"

	"nameguard/e2e/steps/common"
	"nameguard/e2e/steps/ratelimit"
	"nameguard/e2e/steps/verify"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (service health, generic assertions)
	common.RegisterSteps(ctx, tc)

	// Register verification-specific steps
	verify.RegisterSteps(ctx, tc)

	// Register throttling steps
	ratelimit.RegisterSteps(ctx, tc)
}
