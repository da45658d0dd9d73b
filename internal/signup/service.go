package signup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"registro/internal/auth"
	"registro/internal/catalog"
	"registro/internal/documents"
	"registro/internal/platform/metrics"
	"registro/pkg/apperr"
	"registro/pkg/dbtx"
	"registro/pkg/sentinel"
)

// Statuses the intake pipeline itself can assign. The full review lifecycle
// lives with the review workflow.
const (
	StatusPendiente = "PENDIENTE"
	StatusAprobada  = "APROBADA"
)

const colegioMaxLen = 64

// Parts are the optional PDF uploads of a submission, already normalized at
// the HTTP boundary.
type Parts struct {
	DPI                    *documents.UploadedPart
	Contrato               *documents.UploadedPart
	CertificadoProfesional *documents.UploadedPart
}

// Store persists the transactional tail of the pipeline. Every method runs
// against the queryer it is handed so the service controls the transaction.
type Store interface {
	FindUserIDByEmail(ctx context.Context, q dbtx.DBTX, email string) (string, error)
	CreateApplicant(ctx context.Context, q dbtx.DBTX, user auth.User) error
	UpsertApplication(ctx context.Context, q dbtx.DBTX, app Application) (string, error)
	InsertFiles(ctx context.Context, q dbtx.DBTX, solicitudID, uploaderID string, files []FileRecord) error
	Begin(ctx context.Context, fn func(ctx context.Context, q dbtx.DBTX) error) error
}

// Service runs the intake pipeline: documents, catalog resolution and the
// single transaction that makes a submission durable.
type Service struct {
	logger    *slog.Logger
	store     Store
	documents *documents.Store
	catalogs  *catalog.Cache
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(logger *slog.Logger, store Store, docs *documents.Store, catalogs *catalog.Cache, m *metrics.Metrics) *Service {
	return &Service{
		logger:    logger,
		store:     store,
		documents: docs,
		catalogs:  catalogs,
		metrics:   m,
		now:       time.Now,
	}
}

// Submit persists one validated submission. Validation has already run; the
// remaining gates are catalog resolution, document persistence and the
// transaction. Files written to disk before a transaction failure are left
// behind; the database is the atomicity boundary.
func (s *Service) Submit(ctx context.Context, in *Input, parts Parts) (*Result, error) {
	if _, err := s.catalogs.ResolveEntidad(in.Entidad); err != nil {
		return nil, catalogError(err)
	}
	if in.Institucion != "" {
		if _, err := s.catalogs.ResolveInstitucion(in.Institucion); err != nil {
			return nil, catalogError(err)
		}
	}

	dpiFile, err := s.savePdf(ctx, parts.DPI, in.DPI, documents.KindDPI)
	if err != nil {
		return nil, err
	}
	contratoFile, err := s.savePdf(ctx, parts.Contrato, in.DPI, documents.KindContrato)
	if err != nil {
		return nil, err
	}
	certFile, err := s.savePdf(ctx, parts.CertificadoProfesional, in.DPI, documents.KindCertificado)
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = StatusPendiente
	}

	now := s.now()
	app := Application{
		ID:               uuid.NewString(),
		DPI:              in.DPI,
		PrimerNombre:     in.PrimerNombre,
		SegundoNombre:    in.SegundoNombre,
		PrimerApellido:   in.PrimerApellido,
		SegundoApellido:  in.SegundoApellido,
		Sexo:             string(in.Sexo),
		Edad:             in.Edad,
		Etnia:            string(in.Etnia),
		NIT:              in.NIT,
		Telefono:         in.Telefono,
		Pais:             in.Pais,
		Ciudad:           in.Ciudad,
		DepartamentoName: in.DepartamentoResidencia,
		MunicipioName:    in.MunicipioResidencia,
		EntidadName:      in.Entidad,
		InstitucionName:  in.Institucion,
		DependenciaName:  in.Dependencia,
		Renglon:          string(in.Renglon),
		Profesion:        in.Profesion,
		Puesto:           in.Puesto,
		Sector:           in.Sector,
		Colegio:          truncate(in.Colegio, colegioMaxLen),
		ColegiadoNo:      in.NumeroColegiado,

		CorreoInstitucional: in.CorreoInstitucional,
		CorreoPersonal:      in.CorreoPersonal,

		Status:      status,
		SubmittedAt: now,
	}
	if app.InstitucionName == "" {
		app.InstitucionName = in.Entidad
	}
	if status == StatusAprobada {
		app.ApprovedAt = &now
	}

	var solicitudID string
	err = s.store.Begin(ctx, func(ctx context.Context, q dbtx.DBTX) error {
		userID, err := s.store.FindUserIDByEmail(ctx, q, in.Email)
		if errors.Is(err, sentinel.ErrNotFound) {
			hash, herr := auth.HashPassword(in.Password)
			if herr != nil {
				return fmt.Errorf("hash password: %w", herr)
			}
			user := auth.User{
				ID:           uuid.NewString(),
				Email:        in.Email,
				PasswordHash: hash,
				Role:         auth.RoleApplicant,
				IsActive:     true,
				CreatedAt:    now,
			}
			if err := s.store.CreateApplicant(ctx, q, user); err != nil {
				return err
			}
			userID = user.ID
		} else if err != nil {
			return err
		}
		app.ApplicantID = userID

		id, err := s.store.UpsertApplication(ctx, q, app)
		if err != nil {
			return err
		}
		solicitudID = id

		var files []FileRecord
		for _, f := range []*documents.SavedFile{dpiFile, contratoFile, certFile} {
			if f == nil {
				continue
			}
			files = append(files, FileRecord{
				ID:        uuid.NewString(),
				Path:      f.RelPath,
				MimeType:  f.MimeType,
				SizeBytes: f.SizeBytes,
			})
		}
		if len(files) > 0 {
			if err := s.store.InsertFiles(ctx, q, solicitudID, userID, files); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persist submission: %w", err)
	}

	s.metrics.SignupsAccepted.Inc()
	s.logger.InfoContext(ctx, "signup persisted",
		"solicitud_id", solicitudID,
		"status", status,
		"has_dpi", dpiFile != nil,
		"has_contrato", contratoFile != nil,
		"has_certificado", certFile != nil,
	)

	message := "Solicitud pendiente de revisión"
	if status == StatusAprobada {
		message = "Solicitud aprobada automáticamente"
	}
	return &Result{
		SolicitudID: solicitudID,
		Status:      status,
		Message:     message,
		Files: FileLinks{
			DPI:                    relPath(dpiFile),
			Contrato:               relPath(contratoFile),
			CertificadoProfesional: relPath(certFile),
		},
	}, nil
}

func (s *Service) savePdf(ctx context.Context, part *documents.UploadedPart, dpi string, kind documents.Kind) (*documents.SavedFile, error) {
	saved, err := s.documents.Save(ctx, part, dpi, kind)
	if err != nil {
		if errors.Is(err, documents.ErrInvalidFileType) {
			return nil, apperr.Wrap(apperr.CodeInvalidFileType, fmt.Sprintf("document %s must be a PDF", kind), err)
		}
		return nil, apperr.Wrap(apperr.CodeFileUpload, "could not store document", err)
	}
	return saved, nil
}

func catalogError(err error) error {
	var nf *catalog.NotFoundError
	if errors.As(err, &nf) {
		return apperr.Wrap(apperr.CodeCatalogNotFound, nf.Error(), err)
	}
	return err
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func relPath(f *documents.SavedFile) *string {
	if f == nil {
		return nil
	}
	return &f.RelPath
}
