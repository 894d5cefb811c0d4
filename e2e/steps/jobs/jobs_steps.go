package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/tidwall/gjson"
)

const jobWaitTimeout = 60 * time.Second

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	GetResponseField(path string) (gjson.Result, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetLastResponseHeader(name string) string
}

// RegisterSteps registers bulk job steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &jobSteps{tc: tc}

	ctx.Step(`^I submit a bulk check for UEIs "([^"]*)" with NAICS "([^"]*)"$`, steps.submitBulk)
	ctx.Step(`^the job should be accepted$`, steps.jobAccepted)
	ctx.Step(`^I wait for the job to finish$`, steps.waitForJob)
	ctx.Step(`^the job status should be "([^"]*)"$`, steps.jobStatusShouldBe)
	ctx.Step(`^the job should report (\d+) completed and (\d+) errored$`, steps.jobCounts)
	ctx.Step(`^the job results should list (\d+) items in submission order$`, steps.resultsInOrder)
	ctx.Step(`^the job audit trail should list (\d+) records$`, steps.auditTrail)
}

type jobSteps struct {
	tc       TestContext
	location string
	job      gjson.Result
}

func (s *jobSteps) submitBulk(ctx context.Context, ueis, naics string) error {
	var items []map[string]any
	for _, uei := range strings.Split(ueis, ",") {
		items = append(items, map[string]any{
			"identifier": map[string]string{"uei": strings.TrimSpace(uei)},
			"naics":      naics,
		})
	}
	if err := s.tc.POST("/v1/eligibility/bulk", map[string]any{"items": items}); err != nil {
		return err
	}
	s.location = s.tc.GetLastResponseHeader("Location")
	return nil
}

func (s *jobSteps) jobAccepted(ctx context.Context) error {
	if got := s.tc.GetLastResponseStatus(); got != 202 {
		return fmt.Errorf("expected 202, got %d: %s", got, s.tc.GetLastResponseBody())
	}
	if s.location == "" {
		return fmt.Errorf("accepted job has no Location header")
	}
	return nil
}

func (s *jobSteps) waitForJob(ctx context.Context) error {
	deadline := time.Now().Add(jobWaitTimeout)
	for time.Now().Before(deadline) {
		if err := s.tc.GET(s.location); err != nil {
			return err
		}
		status, err := s.tc.GetResponseField("status")
		if err != nil {
			return err
		}
		if status.String() == "completed" || status.String() == "failed" {
			s.job = gjson.ParseBytes(s.tc.GetLastResponseBody())
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("job %s did not finish within %s", s.location, jobWaitTimeout)
}

func (s *jobSteps) jobStatusShouldBe(ctx context.Context, want string) error {
	if got := s.job.Get("status").String(); got != want {
		return fmt.Errorf("expected job status %q, got %q", want, got)
	}
	return nil
}

func (s *jobSteps) jobCounts(ctx context.Context, completed, errored int) error {
	gotCompleted, gotErrored := int(s.job.Get("completed").Int()), int(s.job.Get("errored").Int())
	if gotCompleted != completed || gotErrored != errored {
		return fmt.Errorf("expected %d completed / %d errored, got %d / %d", completed, errored, gotCompleted, gotErrored)
	}
	return nil
}

func (s *jobSteps) resultsInOrder(ctx context.Context, n int) error {
	if err := s.tc.GET(s.location + "/results"); err != nil {
		return err
	}
	items, err := s.tc.GetResponseField("items")
	if err != nil {
		return err
	}
	list := items.Array()
	if len(list) != n {
		return fmt.Errorf("expected %d items, got %d", n, len(list))
	}
	for i, item := range list {
		if idx := int(item.Get("index").Int()); idx != i {
			return fmt.Errorf("item %d reported index %d", i, idx)
		}
		if item.Get("status").String() == "pending" {
			return fmt.Errorf("item %d still pending on a finished job", i)
		}
	}
	return nil
}

func (s *jobSteps) auditTrail(ctx context.Context, n int) error {
	if err := s.tc.GET(s.location + "/audit"); err != nil {
		return err
	}
	records, err := s.tc.GetResponseField("records")
	if err != nil {
		return err
	}
	if got := len(records.Array()); got != n {
		return fmt.Errorf("expected %d audit records, got %d", n, got)
	}
	return nil
}
