package ratelimit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	UseAPIKey(key string)
	GetLastResponseStatus() int
	GetLastResponseHeader(name string) string
}

// RegisterSteps registers per-caller admission control steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I send (\d+) size standard lookups for NAICS "([^"]*)"$`, steps.sendLookups)
	ctx.Step(`^the remaining budget should decrease by one per request until exhausted$`, steps.remainingShouldDecrease)
	ctx.Step(`^at least one lookup should be rejected with (\d+)$`, steps.someLookupRejected)
	ctx.Step(`^every rejected lookup should carry a Retry-After header$`, steps.rejectedCarryRetryAfter)
	ctx.Step(`^a lookup with API key "([^"]*)" should be admitted$`, steps.otherCallerAdmitted)
}

type attempt struct {
	status     int
	remaining  int
	retryAfter string
}

type ratelimitSteps struct {
	tc       TestContext
	naics    string
	attempts []attempt
}

func (s *ratelimitSteps) sendLookups(ctx context.Context, n int, naics string) error {
	s.naics = naics
	s.attempts = s.attempts[:0]
	for range n {
		if err := s.tc.GET("/v1/naics/" + naics + "/size-standard"); err != nil {
			return err
		}
		remaining, _ := strconv.Atoi(s.tc.GetLastResponseHeader("X-RateLimit-Remaining"))
		s.attempts = append(s.attempts, attempt{
			status:     s.tc.GetLastResponseStatus(),
			remaining:  remaining,
			retryAfter: s.tc.GetLastResponseHeader("Retry-After"),
		})
	}
	return nil
}

func (s *ratelimitSteps) remainingShouldDecrease(ctx context.Context) error {
	for i := 1; i < len(s.attempts); i++ {
		prev, cur := s.attempts[i-1], s.attempts[i]
		if prev.remaining == 0 {
			if cur.remaining != 0 {
				return fmt.Errorf("attempt %d: budget grew back to %d within the window", i, cur.remaining)
			}
			continue
		}
		if cur.remaining != prev.remaining-1 {
			return fmt.Errorf("attempt %d: remaining went %d -> %d", i, prev.remaining, cur.remaining)
		}
	}
	return nil
}

func (s *ratelimitSteps) someLookupRejected(ctx context.Context, status int) error {
	for _, a := range s.attempts {
		if a.status == status {
			return nil
		}
	}
	return fmt.Errorf("no lookup out of %d returned %d", len(s.attempts), status)
}

func (s *ratelimitSteps) rejectedCarryRetryAfter(ctx context.Context) error {
	for i, a := range s.attempts {
		if a.status == 429 && a.retryAfter == "" {
			return fmt.Errorf("attempt %d was rejected without Retry-After", i)
		}
	}
	return nil
}

func (s *ratelimitSteps) otherCallerAdmitted(ctx context.Context, key string) error {
	s.tc.UseAPIKey(key)
	if err := s.tc.GET("/v1/naics/" + s.naics + "/size-standard"); err != nil {
		return err
	}
	if got := s.tc.GetLastResponseStatus(); got == 429 {
		return fmt.Errorf("a different caller shared the exhausted budget")
	}
	return nil
}
