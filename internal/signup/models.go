// Package signup implements the one-shot applicant intake pipeline: field
// validation, PDF persistence and the single transaction that creates or
// reuses the account, upserts the application by national ID and records the
// uploaded files.
package signup

import (
	"time"

	"registro/internal/catalog"
)

// Input is the signup form after validation. The Sexo, Etnia and Renglon
// fields carry the mapped enum values resolved during validation; the rest
// are the raw form strings.
type Input struct {
	DPI      string
	Email    string
	Password string

	PrimerNombre    string
	SegundoNombre   string
	PrimerApellido  string
	SegundoApellido string

	Sexo  catalog.Sexo
	Edad  int
	Etnia catalog.Etnia

	NIT      string
	Telefono string
	Pais     string
	Ciudad   string

	DepartamentoResidencia string
	MunicipioResidencia    string

	Entidad     string
	Institucion string
	Dependencia string
	Renglon     catalog.Renglon
	Profesion   string
	Puesto      string
	Sector      string

	Colegio         string
	NumeroColegiado string

	CorreoInstitucional string
	CorreoPersonal      string

	// Status is the client-declared fast path: "APROBADA" when the applicant
	// was verified against the prefill authority, empty otherwise.
	Status string
}

// Application is the persisted solicitud row.
type Application struct {
	ID          string
	DPI         string
	ApplicantID string

	PrimerNombre    string
	SegundoNombre   string
	PrimerApellido  string
	SegundoApellido string

	Sexo  string
	Edad  int
	Etnia string

	NIT      string
	Telefono string
	Pais     string
	Ciudad   string

	DepartamentoName string
	MunicipioName    string

	EntidadName     string
	InstitucionName string
	DependenciaName string
	Renglon         string
	Profesion       string
	Puesto          string
	Sector          string

	Colegio     string
	ColegiadoNo string

	CorreoInstitucional string
	CorreoPersonal      string

	Status      string
	SubmittedAt time.Time
	ApprovedAt  *time.Time
}

// FileRecord is one stored document row.
type FileRecord struct {
	ID        string
	Path      string
	MimeType  string
	SizeBytes int64
}

// FileLinks holds the public paths of the documents actually stored,
// nil for absent parts.
type FileLinks struct {
	DPI                    *string `json:"dpi"`
	Contrato               *string `json:"contrato"`
	CertificadoProfesional *string `json:"certificadoProfesional"`
}

// Result is the intake outcome returned to the client.
type Result struct {
	SolicitudID string    `json:"solicitudId"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Files       FileLinks `json:"files"`
}
