package signup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"registro/internal/auth"
	"registro/pkg/dbtx"
	"registro/pkg/sentinel"
)

// PostgresStore persists submissions. All statements run against the queryer
// handed in so the service's transaction covers the whole sequence.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Begin runs fn inside a read-committed transaction.
func (s *PostgresStore) Begin(ctx context.Context, fn func(ctx context.Context, q dbtx.DBTX) error) error {
	return dbtx.WithTx(ctx, s.db, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, fn)
}

func (s *PostgresStore) FindUserIDByEmail(ctx context.Context, q dbtx.DBTX, email string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("find user by email: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) CreateApplicant(ctx context.Context, q dbtx.DBTX, user auth.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, role, is_active, must_reset_password, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Role, user.IsActive, user.MustResetPassword, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert applicant: %w", err)
	}
	return nil
}

// UpsertApplication inserts or replaces the solicitud keyed by DPI. On
// conflict the row is re-pointed at the submitting account and refreshed,
// except etnia which keeps its original value and approved_at which is only
// ever stamped, never cleared.
func (s *PostgresStore) UpsertApplication(ctx context.Context, q dbtx.DBTX, app Application) (string, error) {
	query := `
		INSERT INTO solicitudes (
			id, dpi, applicant_id,
			primer_nombre, segundo_nombre, primer_apellido, segundo_apellido,
			sexo, edad, etnia, nit, telefono, pais, ciudad,
			departamento_name, municipio_name,
			entidad_name, institucion_name, dependencia_name,
			renglon, profesion, puesto, sector,
			colegio, colegiado_no,
			correo_institucional, correo_personal,
			status, submitted_at, approved_at
		) VALUES (
			$1, $2, $3,
			$4, NULLIF($5, ''), $6, NULLIF($7, ''),
			$8, $9, NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''), NULLIF($13, ''), NULLIF($14, ''),
			NULLIF($15, ''), NULLIF($16, ''),
			$17, $18, NULLIF($19, ''),
			$20, NULLIF($21, ''), NULLIF($22, ''), NULLIF($23, ''),
			NULLIF($24, ''), NULLIF($25, ''),
			NULLIF($26, ''), NULLIF($27, ''),
			$28, $29, $30
		)
		ON CONFLICT (dpi) DO UPDATE SET
			applicant_id = EXCLUDED.applicant_id,
			primer_nombre = EXCLUDED.primer_nombre,
			segundo_nombre = EXCLUDED.segundo_nombre,
			primer_apellido = EXCLUDED.primer_apellido,
			segundo_apellido = EXCLUDED.segundo_apellido,
			sexo = EXCLUDED.sexo,
			edad = EXCLUDED.edad,
			nit = EXCLUDED.nit,
			telefono = EXCLUDED.telefono,
			pais = EXCLUDED.pais,
			ciudad = EXCLUDED.ciudad,
			departamento_name = EXCLUDED.departamento_name,
			municipio_name = EXCLUDED.municipio_name,
			entidad_name = EXCLUDED.entidad_name,
			institucion_name = EXCLUDED.institucion_name,
			dependencia_name = EXCLUDED.dependencia_name,
			renglon = EXCLUDED.renglon,
			profesion = EXCLUDED.profesion,
			puesto = EXCLUDED.puesto,
			sector = EXCLUDED.sector,
			colegio = EXCLUDED.colegio,
			colegiado_no = EXCLUDED.colegiado_no,
			correo_institucional = EXCLUDED.correo_institucional,
			correo_personal = EXCLUDED.correo_personal,
			status = EXCLUDED.status,
			submitted_at = EXCLUDED.submitted_at,
			approved_at = COALESCE(EXCLUDED.approved_at, solicitudes.approved_at)
		RETURNING id
	`
	var id string
	err := q.QueryRowContext(ctx, query,
		app.ID, app.DPI, app.ApplicantID,
		app.PrimerNombre, app.SegundoNombre, app.PrimerApellido, app.SegundoApellido,
		app.Sexo, app.Edad, app.Etnia, app.NIT, app.Telefono, app.Pais, app.Ciudad,
		app.DepartamentoName, app.MunicipioName,
		app.EntidadName, app.InstitucionName, app.DependenciaName,
		app.Renglon, app.Profesion, app.Puesto, app.Sector,
		app.Colegio, app.ColegiadoNo,
		app.CorreoInstitucional, app.CorreoPersonal,
		app.Status, app.SubmittedAt, app.ApprovedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert solicitud: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) InsertFiles(ctx context.Context, q dbtx.DBTX, solicitudID, uploaderID string, files []FileRecord) error {
	query := `
		INSERT INTO files (id, solicitud_id, uploaded_by_user_id, path, mime_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, f := range files {
		if _, err := q.ExecContext(ctx, query, f.ID, solicitudID, uploaderID, f.Path, f.MimeType, f.SizeBytes); err != nil {
			return fmt.Errorf("insert file record: %w", err)
		}
	}
	return nil
}
