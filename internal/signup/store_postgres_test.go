package signup

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registro/pkg/sentinel"
)

func TestFindUserIDByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM users").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := NewPostgresStore(db)
	_, err = store.FindUserIDByEmail(context.Background(), db, "nobody@example.com")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertApplicationReturnsExistingID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// The database keeps the original row's id on conflict; RETURNING hands
	// it back regardless of the id the insert proposed.
	mock.ExpectQuery("INSERT INTO solicitudes").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-id"))

	store := NewPostgresStore(db)
	app := Application{
		ID:           "proposed-id",
		DPI:          "1234567890123",
		ApplicantID:  "user-1",
		PrimerNombre: "Ana",
		Sexo:         "FEMENINO",
		Edad:         25,
		EntidadName:  "MINISTERIO DE SALUD",
		Renglon:      "GRUPO_029",
		Status:       StatusPendiente,
		SubmittedAt:  time.Now(),
	}
	id, err := store.UpsertApplication(context.Background(), db, app)
	require.NoError(t, err)
	assert.Equal(t, "existing-id", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertFilesOneStatementPerRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO files").
		WithArgs("f-1", "sol-1", "user-1", "/uploads/1234567890123/dpi/f.pdf", "application/pdf", int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO files").
		WithArgs("f-2", "sol-1", "user-1", "/uploads/1234567890123/contratos/g.pdf", "application/pdf", int64(20)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPostgresStore(db)
	err = store.InsertFiles(context.Background(), db, "sol-1", "user-1", []FileRecord{
		{ID: "f-1", Path: "/uploads/1234567890123/dpi/f.pdf", MimeType: "application/pdf", SizeBytes: 10},
		{ID: "f-2", Path: "/uploads/1234567890123/contratos/g.pdf", MimeType: "application/pdf", SizeBytes: 20},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
