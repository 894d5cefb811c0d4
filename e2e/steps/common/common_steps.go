package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
	"github.com/tidwall/gjson"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	SetHeader(name, value string)
	UseAPIKey(key string)
	UseConfiguredAPIKey()
	UseAdminToken()
	GetResponseField(path string) (gjson.Result, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetLastResponseHeader(name string) string
}

// RegisterSteps registers background, request and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	// Background
	ctx.Step(`^the service is running$`, steps.serviceIsRunning)
	ctx.Step(`^I use the configured API key$`, steps.useConfiguredAPIKey)
	ctx.Step(`^I use the API key "([^"]*)"$`, steps.useAPIKey)
	ctx.Step(`^I use the admin token$`, steps.useAdminToken)
	ctx.Step(`^I send header "([^"]*)" with value "([^"]*)"$`, steps.sendHeader)

	// Requests
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I POST to "([^"]*)" with body:$`, steps.postWithBody)

	// Assertions
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.fieldShouldEqual)
	ctx.Step(`^the response error should be "([^"]*)"$`, steps.errorShouldBe)
	ctx.Step(`^the response header "([^"]*)" should be present$`, steps.headerShouldBePresent)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serviceIsRunning(ctx context.Context) error {
	if err := s.tc.GET("/v1/health"); err != nil {
		return err
	}
	if got := s.tc.GetLastResponseStatus(); got != 200 {
		return fmt.Errorf("health returned %d: %s", got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) useConfiguredAPIKey(ctx context.Context) error {
	s.tc.UseConfiguredAPIKey()
	return nil
}

func (s *commonSteps) useAPIKey(ctx context.Context, key string) error {
	s.tc.UseAPIKey(key)
	return nil
}

func (s *commonSteps) useAdminToken(ctx context.Context) error {
	s.tc.UseAdminToken()
	return nil
}

func (s *commonSteps) sendHeader(ctx context.Context, name, value string) error {
	s.tc.SetHeader(name, value)
	return nil
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) postWithBody(ctx context.Context, path string, body *godog.DocString) error {
	return s.tc.POST(path, strings.TrimSpace(body.Content))
}

func (s *commonSteps) statusShouldBe(ctx context.Context, want int) error {
	if got := s.tc.GetLastResponseStatus(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) fieldShouldEqual(ctx context.Context, path, want string) error {
	res, err := s.tc.GetResponseField(path)
	if err != nil {
		return err
	}
	if res.String() != want {
		return fmt.Errorf("expected %s=%q, got %q", path, want, res.String())
	}
	return nil
}

func (s *commonSteps) errorShouldBe(ctx context.Context, code string) error {
	return s.fieldShouldEqual(ctx, "error", code)
}

func (s *commonSteps) headerShouldBePresent(ctx context.Context, name string) error {
	if s.tc.GetLastResponseHeader(name) == "" {
		return fmt.Errorf("response header %s missing", name)
	}
	return nil
}
