package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"registro/pkg/sentinel"
)

// PostgresStore loads and updates solicitudes for review.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const rowColumns = `
	s.id, s.dpi,
	s.primer_nombre, COALESCE(s.segundo_nombre, ''), s.primer_apellido, COALESCE(s.segundo_apellido, ''),
	s.sexo, s.edad, COALESCE(s.etnia, ''),
	COALESCE(s.nit, ''), COALESCE(s.telefono, ''),
	COALESCE(s.departamento_name, ''), COALESCE(s.municipio_name, ''),
	s.entidad_name, s.institucion_name, COALESCE(s.dependencia_name, ''),
	s.renglon, COALESCE(s.sector, ''),
	COALESCE(s.colegio, ''), COALESCE(s.colegiado_no, ''),
	COALESCE(s.correo_institucional, ''), COALESCE(s.correo_personal, ''),
	u.email,
	s.status, s.submitted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(sc rowScanner) (Row, error) {
	var r Row
	err := sc.Scan(
		&r.ID, &r.DPI,
		&r.PrimerNombre, &r.SegundoNombre, &r.PrimerApellido, &r.SegundoApellido,
		&r.Sexo, &r.Edad, &r.Etnia,
		&r.NIT, &r.Telefono,
		&r.DepartamentoName, &r.MunicipioName,
		&r.EntidadName, &r.InstitucionName, &r.DependenciaName,
		&r.Renglon, &r.Sector,
		&r.Colegio, &r.ColegiadoNo,
		&r.CorreoInstitucional, &r.CorreoPersonal,
		&r.ApplicantEmail,
		&r.Status, &r.SubmittedAt,
	)
	return r, err
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (Row, error) {
	query := `SELECT ` + rowColumns + `
		FROM solicitudes s
		JOIN users u ON u.id = s.applicant_id
		WHERE s.id = $1`
	row, err := scanRow(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Row{}, sentinel.ErrNotFound
		}
		return Row{}, fmt.Errorf("find solicitud: %w", err)
	}
	return row, nil
}

// SetStatus writes the new status and stamps whichever decision timestamp
// applies. A nil timestamp leaves the stored value alone.
func (s *PostgresStore) SetStatus(ctx context.Context, id, status string, approvedAt, rejectedAt *time.Time) error {
	query := `
		UPDATE solicitudes SET
			status = $2,
			approved_at = COALESCE($3, approved_at),
			rejected_at = COALESCE($4, rejected_at)
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, id, status, approvedAt, rejectedAt)
	if err != nil {
		return fmt.Errorf("update solicitud status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AddNote(ctx context.Context, noteID, solicitudID, message string, at time.Time) error {
	query := `INSERT INTO review_notes (id, solicitud_id, message, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := s.db.ExecContext(ctx, query, noteID, solicitudID, message, at); err != nil {
		return fmt.Errorf("insert review note: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Row, error) {
	query := `SELECT ` + rowColumns + `
		FROM solicitudes s
		JOIN users u ON u.id = s.applicant_id
		ORDER BY s.submitted_at DESC, s.created_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list solicitudes: %w", err)
	}
	defer rows.Close()

	var out []Row
	index := map[string]int{}
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan solicitud: %w", err)
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate solicitudes: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	if err := s.attachFiles(ctx, out, index); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) attachFiles(ctx context.Context, rows []Row, index map[string]int) error {
	query := `
		SELECT solicitud_id, id, path, mime_type, size_bytes
		FROM files
		ORDER BY created_at
	`
	fileRows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}
	defer fileRows.Close()

	for fileRows.Next() {
		var solicitudID string
		var f FileInfo
		if err := fileRows.Scan(&solicitudID, &f.ID, &f.Path, &f.MimeType, &f.SizeBytes); err != nil {
			return fmt.Errorf("scan file: %w", err)
		}
		if i, ok := index[solicitudID]; ok {
			rows[i].Files = append(rows[i].Files, f)
		}
	}
	if err := fileRows.Err(); err != nil {
		return fmt.Errorf("iterate files: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM solicitudes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count solicitudes: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}
