// Package application implements the admin review workflow: listing
// submissions, moving them through the status lifecycle and kicking off
// best-effort LMS provisioning on approval.
package application

import "time"

// Internal status lifecycle, as stored.
const (
	StatusPendiente             = "PENDIENTE"
	StatusEnRevision            = "EN_REVISION"
	StatusAprobada              = "APROBADA"
	StatusRechazada             = "RECHAZADA"
	StatusRevalidacionPendiente = "REVALIDACION_PENDIENTE"
)

// External statuses, as spoken to clients.
const (
	ExternalPending  = "pending"
	ExternalInReview = "in_review"
	ExternalApproved = "approved"
	ExternalRejected = "rejected"
)

// externalStatus maps a stored status to the client vocabulary. The
// revalidation state is presented as in_review; clients never see it.
func externalStatus(internal string) string {
	switch internal {
	case StatusEnRevision, StatusRevalidacionPendiente:
		return ExternalInReview
	case StatusAprobada:
		return ExternalApproved
	case StatusRechazada:
		return ExternalRejected
	default:
		return ExternalPending
	}
}

// internalStatus maps a requested external status to storage. Only the three
// review verbs are accepted.
func internalStatus(external string) (string, bool) {
	switch external {
	case ExternalApproved:
		return StatusAprobada, true
	case ExternalRejected:
		return StatusRechazada, true
	case ExternalInReview:
		return StatusEnRevision, true
	}
	return "", false
}

// FileInfo is one stored document attached to an application.
type FileInfo struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// Row is one solicitud as loaded for listing or review, applicant email
// included.
type Row struct {
	ID  string
	DPI string

	PrimerNombre    string
	SegundoNombre   string
	PrimerApellido  string
	SegundoApellido string

	Sexo  string
	Edad  int
	Etnia string

	NIT      string
	Telefono string

	DepartamentoName string
	MunicipioName    string

	EntidadName     string
	InstitucionName string
	DependenciaName string
	Renglon         string
	Sector          string

	Colegio     string
	ColegiadoNo string

	CorreoInstitucional string
	CorreoPersonal      string
	ApplicantEmail      string

	Status      string
	SubmittedAt time.Time

	Files []FileInfo
}

// ContactEmail resolves the address used for LMS provisioning and listings:
// institutional first, then personal, then the account's login email.
func (r Row) ContactEmail() string {
	switch {
	case r.CorreoInstitucional != "":
		return r.CorreoInstitucional
	case r.CorreoPersonal != "":
		return r.CorreoPersonal
	default:
		return r.ApplicantEmail
	}
}

// ListItem is the listing projection served to the admin UI.
type ListItem struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	PrimerNombre    string     `json:"primerNombre"`
	SegundoNombre   string     `json:"segundoNombre,omitempty"`
	PrimerApellido  string     `json:"primerApellido"`
	SegundoApellido string     `json:"segundoApellido,omitempty"`
	DPI             string     `json:"dpi"`
	Entidad         string     `json:"entidad"`
	Institucion     string     `json:"institucion"`
	Renglon         string     `json:"renglon"`
	Status          string     `json:"status"`
	SubmittedAt     time.Time  `json:"submittedAt"`
	Etnia           string     `json:"etnia,omitempty"`
	Dependencia     string     `json:"dependencia,omitempty"`
	Colegio         string     `json:"colegio,omitempty"`
	Telefono        string     `json:"telefono,omitempty"`
	Direccion       string     `json:"direccion,omitempty"`
	Files           []FileInfo `json:"files"`
}

// StatusCounts is the metrics projection: totals per external status.
type StatusCounts struct {
	Pending  int `json:"pending"`
	InReview int `json:"in_review"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// MetricsReport summarizes the application pipeline.
type MetricsReport struct {
	TotalApplications    int          `json:"totalApplications"`
	ApplicationsByStatus StatusCounts `json:"applicationsByStatus"`
}

// UpdateResult is the outcome of a status transition.
type UpdateResult struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
