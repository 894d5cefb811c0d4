package e2e

import (
	"github.com/cucumber/godog"

	"gonogo/e2e/steps/common"
	"gonogo/e2e/steps/jobs"
	"gonogo/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (background, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	ratelimit.RegisterSteps(ctx, tc)
	jobs.RegisterSteps(ctx, tc)
}
