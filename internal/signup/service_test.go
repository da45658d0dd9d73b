package signup

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registro/internal/auth"
	"registro/internal/catalog"
	"registro/internal/documents"
	"registro/internal/platform/metrics"
	"registro/pkg/apperr"
	"registro/pkg/dbtx"
	"registro/pkg/sentinel"
)

// Prometheus collectors register globally, so the test binary builds the set
// once and shares it.
var testMetrics = metrics.New()

type memStore struct {
	users       map[string]string // email -> id
	solicitudes map[string]Application
	files       []FileRecord
	txCount     int
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[string]string{},
		solicitudes: map[string]Application{},
	}
}

func (m *memStore) Begin(ctx context.Context, fn func(ctx context.Context, q dbtx.DBTX) error) error {
	m.txCount++
	return fn(ctx, nil)
}

func (m *memStore) FindUserIDByEmail(_ context.Context, _ dbtx.DBTX, email string) (string, error) {
	id, ok := m.users[email]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return id, nil
}

func (m *memStore) CreateApplicant(_ context.Context, _ dbtx.DBTX, user auth.User) error {
	m.users[user.Email] = user.ID
	return nil
}

func (m *memStore) UpsertApplication(_ context.Context, _ dbtx.DBTX, app Application) (string, error) {
	if existing, ok := m.solicitudes[app.DPI]; ok {
		app.ID = existing.ID
		app.Etnia = existing.Etnia
		if app.ApprovedAt == nil {
			app.ApprovedAt = existing.ApprovedAt
		}
	}
	m.solicitudes[app.DPI] = app
	return app.ID, nil
}

func (m *memStore) InsertFiles(_ context.Context, _ dbtx.DBTX, _, _ string, files []FileRecord) error {
	m.files = append(m.files, files...)
	return nil
}

type stubCatalogStore struct{}

func (stubCatalogStore) Entidades(context.Context) ([]catalog.NamedID, error) {
	return []catalog.NamedID{{ID: "ent-1", Name: "MINISTERIO DE SALUD"}}, nil
}

func (stubCatalogStore) Instituciones(context.Context) ([]catalog.NamedID, error) {
	return []catalog.NamedID{{ID: "inst-1", Name: "HOSPITAL ROOSEVELT"}}, nil
}

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()

	docs, err := documents.NewStore(t.TempDir())
	require.NoError(t, err)

	cache := catalog.NewCache(stubCatalogStore{})
	require.NoError(t, cache.Refresh(context.Background()))

	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), store, docs, cache, testMetrics)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return svc
}

func validInput() *Input {
	return &Input{
		DPI:                    "1234567890123",
		Email:                  "ana@example.com",
		Password:               "Str0ng!Pass",
		PrimerNombre:           "Ana",
		PrimerApellido:         "García",
		Sexo:                   catalog.SexoFemenino,
		Edad:                   25,
		Etnia:                  catalog.EtniaLadinos,
		NIT:                    "1234567",
		Telefono:               "55512345",
		Pais:                   "GUATEMALA",
		Ciudad:                 "GUATEMALA",
		DepartamentoResidencia: "GUATEMALA",
		MunicipioResidencia:    "MIXCO",
		Entidad:                "MINISTERIO DE SALUD",
		Renglon:                catalog.RenglonGrupo029,
	}
}

func pdfPart() *documents.UploadedPart {
	return &documents.UploadedPart{
		Filename: "doc.pdf",
		MimeType: "application/pdf",
		Data:     []byte("%PDF-1.4 test"),
	}
}

func TestSubmitFreshDPI(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	result, err := svc.Submit(context.Background(), validInput(), Parts{DPI: pdfPart()})
	require.NoError(t, err)

	assert.Equal(t, StatusPendiente, result.Status)
	assert.Equal(t, "Solicitud pendiente de revisión", result.Message)
	require.NotNil(t, result.Files.DPI)
	assert.Nil(t, result.Files.Contrato)
	assert.Nil(t, result.Files.CertificadoProfesional)

	require.Len(t, store.solicitudes, 1)
	app := store.solicitudes["1234567890123"]
	assert.Equal(t, result.SolicitudID, app.ID)
	assert.Equal(t, StatusPendiente, app.Status)
	assert.Nil(t, app.ApprovedAt)
	assert.Equal(t, "MINISTERIO DE SALUD", app.InstitucionName, "institution defaults to the entity")

	require.Len(t, store.users, 1)
	assert.Equal(t, store.users["ana@example.com"], app.ApplicantID)

	require.Len(t, store.files, 1, "one file row per part actually supplied")
	assert.Equal(t, *result.Files.DPI, store.files[0].Path)
	assert.Equal(t, int64(len("%PDF-1.4 test")), store.files[0].SizeBytes)
}

func TestSubmitResubmissionUpdatesInPlace(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	first, err := svc.Submit(context.Background(), validInput(), Parts{})
	require.NoError(t, err)

	in := validInput()
	in.Status = StatusAprobada
	in.Puesto = "ENFERMERA"
	second, err := svc.Submit(context.Background(), in, Parts{})
	require.NoError(t, err)

	assert.Equal(t, first.SolicitudID, second.SolicitudID, "same DPI updates the existing row")
	assert.Equal(t, "Solicitud aprobada automáticamente", second.Message)
	require.Len(t, store.solicitudes, 1)
	app := store.solicitudes["1234567890123"]
	assert.Equal(t, StatusAprobada, app.Status)
	require.NotNil(t, app.ApprovedAt)
	assert.Equal(t, "ENFERMERA", app.Puesto)

	assert.Len(t, store.users, 1, "existing account is reused, not duplicated")
}

func TestSubmitTruncatesColegio(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	in := validInput()
	for len(in.Colegio) < 100 {
		in.Colegio += "COLEGIO DE MEDICOS "
	}
	_, err := svc.Submit(context.Background(), in, Parts{})
	require.NoError(t, err)

	assert.Len(t, store.solicitudes["1234567890123"].Colegio, colegioMaxLen)
}

func TestSubmitTruncatesColegioOnRuneBoundary(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	// A multibyte rune straddling the byte limit must be dropped whole, not
	// cut into an invalid sequence the database would reject.
	in := validInput()
	in.Colegio = strings.Repeat("A", colegioMaxLen-1) + "ÑÑÑ"
	_, err := svc.Submit(context.Background(), in, Parts{})
	require.NoError(t, err)

	got := store.solicitudes["1234567890123"].Colegio
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("A", colegioMaxLen-1), got)
}

func TestSubmitUnknownEntidadFailsClosed(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	in := validInput()
	in.Entidad = "MINISTERIO INEXISTENTE"
	_, err := svc.Submit(context.Background(), in, Parts{DPI: pdfPart()})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeCatalogNotFound))
	assert.Contains(t, err.Error(), "MINISTERIO INEXISTENTE")
	assert.Zero(t, store.txCount, "no transaction runs for an unresolvable catalog value")
}

func TestSubmitUnknownInstitucionFailsClosed(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	in := validInput()
	in.Institucion = "HOSPITAL INEXISTENTE"
	_, err := svc.Submit(context.Background(), in, Parts{})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeCatalogNotFound))
}

func TestSubmitRejectsNonPDF(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	part := &documents.UploadedPart{
		Filename: "photo.png",
		MimeType: "image/png",
		Data:     []byte{0x89, 0x50, 0x4E, 0x47},
	}
	_, err := svc.Submit(context.Background(), validInput(), Parts{Contrato: part})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidFileType))
	assert.Zero(t, store.txCount, "submission aborts before the transaction")
}
