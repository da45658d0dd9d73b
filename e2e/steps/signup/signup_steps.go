package signup

import (
	"fmt"
	"os"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the main test context these steps need.
type TestContext interface {
	PostMultipart(path string, fields map[string]string, pdfFields []string) error
	LastStatus() int
	ResponseField(path string) (any, error)
}

// RegisterSteps registers signup step definitions. Submissions go through the
// real multipart endpoint with small in-memory PDFs attached.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &signupSteps{tc: tc}

	ctx.Step(`^I submit a valid signup for DPI "([^"]*)" and email "([^"]*)"$`, steps.submitValid)
	ctx.Step(`^I submit a signup for DPI "([^"]*)" without the field "([^"]*)"$`, steps.submitWithout)
	ctx.Step(`^the signup should be accepted with status "([^"]*)"$`, steps.acceptedWithStatus)
	ctx.Step(`^the signup should be rejected for missing "([^"]*)"$`, steps.rejectedMissing)
}

type signupSteps struct {
	tc TestContext
}

// baseForm is a complete, valid submission. The entidad must exist in the
// target environment's catalogs; E2E_ENTIDAD overrides the default.
func baseForm(dpi, email string) map[string]string {
	entidad := os.Getenv("E2E_ENTIDAD")
	if entidad == "" {
		entidad = "MINISTERIO DE SALUD PUBLICA Y ASISTENCIA SOCIAL"
	}
	return map[string]string{
		"dpi":                     dpi,
		"email":                   email,
		"password":                "ClaveLarga123!",
		"primerNombre":            "Ana",
		"primerApellido":          "García",
		"sexo":                    "FEMENINO",
		"edad":                    "30",
		"etnia":                   "LADINOS",
		"nit":                     "1234567",
		"telefono":                "55512345",
		"pais":                    "Guatemala",
		"ciudad":                  "Guatemala",
		"departamento_residencia": "GUATEMALA",
		"municipio_residencia":    "GUATEMALA",
		"entidad":                 entidad,
		"renglon":                 "GRUPO_029",
	}
}

func (s *signupSteps) submitValid(dpi, email string) error {
	return s.tc.PostMultipart("/api/v1/signup", baseForm(dpi, email), []string{"pdf_dpi"})
}

func (s *signupSteps) submitWithout(dpi, field string) error {
	form := baseForm(dpi, "sin-"+field+"@example.com")
	delete(form, field)
	return s.tc.PostMultipart("/api/v1/signup", form, nil)
}

func (s *signupSteps) acceptedWithStatus(status string) error {
	if s.tc.LastStatus() != 201 {
		return fmt.Errorf("expected 201, got %d", s.tc.LastStatus())
	}
	value, err := s.tc.ResponseField("data.status")
	if err != nil {
		return err
	}
	if value != status {
		return fmt.Errorf("solicitud status is %v, expected %s", value, status)
	}
	return nil
}

func (s *signupSteps) rejectedMissing(field string) error {
	if s.tc.LastStatus() != 400 {
		return fmt.Errorf("expected 400, got %d", s.tc.LastStatus())
	}
	missing, err := s.tc.ResponseField("missing")
	if err != nil {
		return err
	}
	list, ok := missing.([]any)
	if !ok {
		return fmt.Errorf("missing is %T, expected a list", missing)
	}
	for _, item := range list {
		if item == field {
			return nil
		}
	}
	return fmt.Errorf("%q not reported in missing fields %v", field, list)
}
