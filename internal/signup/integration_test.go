//go:build integration

package signup

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registro/internal/catalog"
	"registro/internal/documents"
	"registro/internal/platform/database"
	"registro/pkg/testutil/containers"
)

func TestSubmitAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)
	require.NoError(t, database.Migrate(ctx, pg.DB))

	_, err := pg.DB.ExecContext(ctx,
		`INSERT INTO entidades (id, name) VALUES ($1, $2)`,
		uuid.NewString(), "MINISTERIO DE SALUD")
	require.NoError(t, err)

	docs, err := documents.NewStore(t.TempDir())
	require.NoError(t, err)

	cache := catalog.NewCache(catalog.NewPostgresStore(pg.DB))
	require.NoError(t, cache.Refresh(ctx))

	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)),
		NewPostgresStore(pg.DB), docs, cache, testMetrics)

	first, err := svc.Submit(ctx, validInput(), Parts{DPI: pdfPart()})
	require.NoError(t, err)

	in := validInput()
	in.Status = StatusAprobada
	second, err := svc.Submit(ctx, in, Parts{})
	require.NoError(t, err)
	assert.Equal(t, first.SolicitudID, second.SolicitudID)

	var count int
	require.NoError(t, pg.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM solicitudes WHERE dpi = $1`, "1234567890123").Scan(&count))
	assert.Equal(t, 1, count, "resubmission updates the row, never duplicates it")

	var status string
	var approvedAt *time.Time
	require.NoError(t, pg.DB.QueryRowContext(ctx,
		`SELECT status, approved_at FROM solicitudes WHERE dpi = $1`, "1234567890123").
		Scan(&status, &approvedAt))
	assert.Equal(t, StatusAprobada, status)
	assert.NotNil(t, approvedAt)

	var fileCount int
	require.NoError(t, pg.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM files`).Scan(&fileCount))
	assert.Equal(t, 1, fileCount)

	var userCount int
	require.NoError(t, pg.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM users WHERE email = $1`, "ana@example.com").Scan(&userCount))
	assert.Equal(t, 1, userCount)
}
