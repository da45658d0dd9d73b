package e2e

import (
	"github.com/cucumber/godog"

	"registro/e2e/steps/auth"
	"registro/e2e/steps/common"
	"registro/e2e/steps/ratelimit"
	"registro/e2e/steps/signup"
)

// RegisterSteps wires all step definition packages onto one scenario context.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	auth.RegisterSteps(ctx, tc)
	signup.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
