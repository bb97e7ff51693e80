package ratelimit

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	GetLastResponseStatus() int
}

// RegisterSteps registers per-caller throttling steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I send (\d+) requests to "([^"]*)"$`, steps.sendRequests)
	ctx.Step(`^at least one response should have status (\d+)$`, steps.atLeastOneStatus)
	ctx.Step(`^the first response should have status (\d+)$`, steps.firstStatus)
}

type ratelimitSteps struct {
	tc       TestContext
	statuses []int
}

func (s *ratelimitSteps) sendRequests(ctx context.Context, n int, path string) error {
	s.statuses = s.statuses[:0]
	for range n {
		if err := s.tc.GET(path); err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *ratelimitSteps) atLeastOneStatus(ctx context.Context, status int) error {
	for _, got := range s.statuses {
		if got == status {
			return nil
		}
	}
	return fmt.Errorf("no response had status %d: %v", status, s.statuses)
}

func (s *ratelimitSteps) firstStatus(ctx context.Context, status int) error {
	if len(s.statuses) == 0 {
		return fmt.Errorf("no requests sent")
	}
	if s.statuses[0] != status {
		return fmt.Errorf("expected first status %d, got %d", status, s.statuses[0])
	}
	return nil
}
