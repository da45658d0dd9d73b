package auth

import (
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the main test context these steps need.
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	LastStatus() int
	ResponseField(path string) (any, error)
}

// RegisterSteps registers session step definitions. The reviewer account is
// expected to exist already (seeded with the createadmin command).
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I log in as admin "([^"]*)" with password "([^"]*)"$`, steps.login)
	ctx.Step(`^I log out$`, steps.logout)
	ctx.Step(`^I should be identified as an admin$`, steps.identifiedAsAdmin)
	ctx.Step(`^I should not have a session$`, steps.noSession)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) login(email, password string) error {
	return s.tc.POST("/api/v1/admin/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (s *authSteps) logout() error {
	return s.tc.POST("/api/v1/admin/logout", map[string]string{})
}

func (s *authSteps) identifiedAsAdmin() error {
	if err := s.tc.GET("/api/v1/admin/me"); err != nil {
		return err
	}
	value, err := s.tc.ResponseField("user.role")
	if err != nil {
		return err
	}
	if value != "ADMIN" {
		return fmt.Errorf("session role is %v, expected ADMIN", value)
	}
	return nil
}

func (s *authSteps) noSession() error {
	if err := s.tc.GET("/api/v1/admin/me"); err != nil {
		return err
	}
	if s.tc.LastStatus() != 401 {
		return fmt.Errorf("expected 401 without a session, got %d", s.tc.LastStatus())
	}
	return nil
}
