package common

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the main test context these steps need.
type TestContext interface {
	GET(path string) error
	POST(path string, body any) error
	LastStatus() int
	LastBody() []byte
	ResponseField(path string) (any, error)
}

// RegisterSteps registers the generic request and assertion steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the API is available$`, steps.apiIsAvailable)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I POST to "([^"]*)" with:$`, steps.postWithDoc)
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
	ctx.Step(`^the error code should be "([^"]*)"$`, steps.errorCodeShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) apiIsAvailable() error {
	if err := s.tc.GET("/health"); err != nil {
		return err
	}
	if s.tc.LastStatus() != 200 {
		return fmt.Errorf("health check returned %d", s.tc.LastStatus())
	}
	return nil
}

func (s *commonSteps) get(path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) postWithDoc(path string, doc *godog.DocString) error {
	var body map[string]any
	if err := json.Unmarshal([]byte(doc.Content), &body); err != nil {
		return fmt.Errorf("scenario body is not JSON: %w", err)
	}
	return s.tc.POST(path, body)
}

func (s *commonSteps) statusShouldBe(expected int) error {
	if s.tc.LastStatus() != expected {
		return fmt.Errorf("expected status %d, got %d (body: %s)",
			expected, s.tc.LastStatus(), truncate(s.tc.LastBody()))
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(path, expected string) error {
	value, err := s.tc.ResponseField(path)
	if err != nil {
		return err
	}
	actual := fmt.Sprintf("%v", value)
	if actual != expected {
		return fmt.Errorf("field %q is %q, expected %q", path, actual, expected)
	}
	return nil
}

func (s *commonSteps) errorCodeShouldBe(code string) error {
	return s.fieldShouldBe("error", code)
}

func truncate(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		return text[:200] + "..."
	}
	return text
}
