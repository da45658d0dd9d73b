package ratelimit

import (
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the main test context these steps need.
type TestContext interface {
	POST(path string, body any) error
	LastStatus() int
}

// RegisterSteps registers rate-limit step definitions. These scenarios need a
// deployment with Redis configured; without it every request is allowed.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I request a prefill for DPI "([^"]*)" (\d+) times$`, steps.requestPrefillNTimes)
	ctx.Step(`^the last response should be rate limited$`, steps.lastShouldBeRateLimited)
	ctx.Step(`^at least one response should be rate limited$`, steps.someShouldBeRateLimited)
}

type ratelimitSteps struct {
	tc TestContext

	statuses []int
}

func (s *ratelimitSteps) requestPrefillNTimes(dpi string, count int) error {
	s.statuses = s.statuses[:0]
	for i := 0; i < count; i++ {
		if err := s.tc.POST("/api/v1/prefill", map[string]string{"dpi": dpi}); err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.LastStatus())
	}
	return nil
}

func (s *ratelimitSteps) lastShouldBeRateLimited() error {
	if len(s.statuses) == 0 {
		return fmt.Errorf("no requests recorded")
	}
	if last := s.statuses[len(s.statuses)-1]; last != 429 {
		return fmt.Errorf("last status was %d, expected 429 (statuses: %v)", last, s.statuses)
	}
	return nil
}

func (s *ratelimitSteps) someShouldBeRateLimited() error {
	for _, status := range s.statuses {
		if status == 429 {
			return nil
		}
	}
	return fmt.Errorf("no request was rate limited (statuses: %v)", s.statuses)
}
