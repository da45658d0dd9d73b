package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"registro/internal/catalog"
	"registro/internal/moodle"
	"registro/internal/platform/metrics"
	"registro/internal/provision"
	"registro/pkg/apperr"
	"registro/pkg/sentinel"
)

// Store persists the review side of solicitudes.
type Store interface {
	FindByID(ctx context.Context, id string) (Row, error)
	SetStatus(ctx context.Context, id, status string, approvedAt, rejectedAt *time.Time) error
	AddNote(ctx context.Context, noteID, solicitudID, message string, at time.Time) error
	List(ctx context.Context) ([]Row, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// LMS is the slice of the provisioning client the workflow needs.
type LMS interface {
	CreateUser(ctx context.Context, user moodle.NewUser) (json.RawMessage, error)
}

// Enqueuer detaches provisioning from the request.
type Enqueuer interface {
	Enqueue(task provision.Task)
}

// Service drives the review workflow.
type Service struct {
	logger  *slog.Logger
	store   Store
	lms     LMS
	worker  Enqueuer
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(logger *slog.Logger, store Store, lms LMS, worker Enqueuer, m *metrics.Metrics) *Service {
	return &Service{
		logger:  logger,
		store:   store,
		lms:     lms,
		worker:  worker,
		metrics: m,
		now:     time.Now,
	}
}

// UpdateStatus moves an application to approved, rejected or in_review. On
// approval the LMS account creation is handed to the background worker; the
// caller's latency and outcome never depend on the LMS.
func (s *Service) UpdateStatus(ctx context.Context, id, external, note string) (*UpdateResult, error) {
	status, ok := internalStatus(external)
	if !ok {
		return nil, apperr.New(apperr.CodeBadRequest, "status must be 'approved', 'rejected' or 'in_review'")
	}

	row, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "Solicitud no encontrada")
		}
		return nil, fmt.Errorf("load solicitud: %w", err)
	}

	now := s.now()
	var approvedAt, rejectedAt *time.Time
	switch status {
	case StatusAprobada:
		approvedAt = &now
	case StatusRechazada:
		rejectedAt = &now
	}
	if err := s.store.SetStatus(ctx, id, status, approvedAt, rejectedAt); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	s.metrics.StatusTransitions.WithLabelValues(external).Inc()

	if trimmed := strings.TrimSpace(note); trimmed != "" {
		if err := s.store.AddNote(ctx, uuid.NewString(), id, trimmed, now); err != nil {
			return nil, fmt.Errorf("record review note: %w", err)
		}
	}

	if status == StatusAprobada {
		s.enqueueProvisioning(ctx, row)
	}

	var message string
	switch external {
	case ExternalApproved:
		message = "Solicitud aprobada y usuario creado en Moodle exitosamente"
	case ExternalRejected:
		message = "Solicitud rechazada exitosamente"
	default:
		message = "Solicitud actualizada exitosamente"
	}
	return &UpdateResult{ID: id, Status: external, Message: message}, nil
}

// enqueueProvisioning hands LMS user creation to the worker. Without any
// usable email the approval still stands; the gap is only logged.
func (s *Service) enqueueProvisioning(ctx context.Context, row Row) {
	email := row.ContactEmail()
	if email == "" {
		s.metrics.ProvisionOutcomes.WithLabelValues("skipped").Inc()
		s.logger.WarnContext(ctx, "no email available for LMS provisioning", "solicitud_id", row.ID)
		return
	}

	user := moodle.NewUser{
		Username:  row.DPI,
		FirstName: row.PrimerNombre,
		LastName:  strings.TrimSpace(row.PrimerApellido + " " + row.SegundoApellido),
		Email:     email,
		Profile: &moodle.Profile{
			DPI:          row.DPI,
			NIT:          row.NIT,
			Sexo:         row.Sexo,
			Edad:         row.Edad,
			Departamento: row.DepartamentoName,
			Municipio:    row.MunicipioName,
			Etnia:        row.Etnia,
			Telefono:     row.Telefono,
			Sector:       row.Sector,
			Institucion:  row.InstitucionName,
			Dependencia:  row.DependenciaName,
			Renglon:      row.Renglon,
			Colegio:      row.Colegio,
			ColegiadoNo:  row.ColegiadoNo,
		},
	}
	solicitudID := row.ID
	s.worker.Enqueue(provision.Task{
		Label: "moodle user " + row.DPI,
		Run: func(ctx context.Context) error {
			if _, err := s.lms.CreateUser(ctx, user); err != nil {
				s.metrics.ProvisionOutcomes.WithLabelValues("error").Inc()
				return fmt.Errorf("create LMS user for solicitud %s: %w", solicitudID, err)
			}
			s.metrics.ProvisionOutcomes.WithLabelValues("created").Inc()
			return nil
		},
	})
}

// List returns every application, most recent first, in the admin listing
// shape.
func (s *Service) List(ctx context.Context) ([]ListItem, error) {
	rows, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list solicitudes: %w", err)
	}

	items := make([]ListItem, 0, len(rows))
	for _, row := range rows {
		entidad := row.EntidadName
		if entidad == "" {
			entidad = "SOCIEDAD CIVIL"
		}
		institucion := row.InstitucionName
		if institucion == "" {
			institucion = "NO APLICA"
		}
		var direccion string
		if parts := nonEmpty(row.MunicipioName, row.DepartamentoName); len(parts) > 0 {
			direccion = strings.Join(parts, ", ")
		}
		files := row.Files
		if files == nil {
			files = []FileInfo{}
		}
		items = append(items, ListItem{
			ID:              row.ID,
			Email:           row.ContactEmail(),
			PrimerNombre:    row.PrimerNombre,
			SegundoNombre:   row.SegundoNombre,
			PrimerApellido:  row.PrimerApellido,
			SegundoApellido: row.SegundoApellido,
			DPI:             row.DPI,
			Entidad:         entidad,
			Institucion:     institucion,
			Renglon:         catalog.RenglonDisplay(catalog.Renglon(row.Renglon)),
			Status:          externalStatus(row.Status),
			SubmittedAt:     row.SubmittedAt,
			Etnia:           row.Etnia,
			Dependencia:     row.DependenciaName,
			Colegio:         row.Colegio,
			Telefono:        row.Telefono,
			Direccion:       direccion,
			Files:           files,
		})
	}
	return items, nil
}

// Metrics aggregates application counts per external status. Internal states
// sharing an external presentation are summed.
func (s *Service) Metrics(ctx context.Context) (*MetricsReport, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count solicitudes: %w", err)
	}

	report := &MetricsReport{}
	for status, n := range counts {
		report.TotalApplications += n
		switch externalStatus(status) {
		case ExternalInReview:
			report.ApplicationsByStatus.InReview += n
		case ExternalApproved:
			report.ApplicationsByStatus.Approved += n
		case ExternalRejected:
			report.ApplicationsByStatus.Rejected += n
		default:
			report.ApplicationsByStatus.Pending += n
		}
	}
	return report, nil
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
