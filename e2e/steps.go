package e2e

import (
	"github.com/cucumber/godog"

	"rwaledger/e2e/steps/auth"
	"rwaledger/e2e/steps/common"
	"rwaledger/e2e/steps/ledger"
	"rwaledger/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register token issuance and revocation steps
	auth.RegisterSteps(ctx, tc)

	// Register identity, compliance and transfer steps
	ledger.RegisterSteps(ctx, tc)

	ratelimit.RegisterSteps(ctx, tc)
}
