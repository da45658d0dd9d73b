// Package httptransport assembles the HTTP router. It wires feature handlers
// under the API prefix and keeps transport concerns (middleware, health,
// metrics, static files) out of the feature packages.
package httptransport

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"registro/internal/application"
	"registro/internal/auth"
	"registro/internal/moodle"
	"registro/internal/platform/middleware"
	"registro/internal/platform/redis"
	"registro/internal/prefill"
	"registro/internal/signup"
	"registro/internal/transport/http/shared"
)

const apiPrefix = "/api/v1"

// Deps carries everything the router mounts.
type Deps struct {
	Logger       *slog.Logger
	DB           *sql.DB
	Redis        *redis.Client
	Auth         *auth.Handler
	Signup       *signup.Handler
	Prefill      *prefill.Handler
	Applications *application.Handler
	Moodle       *moodle.Handler
	UploadsDir   string
}

// NewRouter builds the full route tree.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))

	r.Route(apiPrefix, func(api chi.Router) {
		d.Auth.Register(api)
		d.Signup.Register(api)
		d.Prefill.Register(api)
		d.Applications.Register(api)
		d.Moodle.Register(api)
	})

	r.Get("/health", handleHealth)
	r.Get("/health/db", handleHealthDB(d.DB, d.Redis))
	r.Handle("/metrics", promhttp.Handler())

	// Uploaded PDFs are served read-only for the review UI.
	fileServer := http.FileServer(http.Dir(d.UploadsDir))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	shared.OK(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHealthDB reports dependency health. Redis is optional; when absent it
// is reported as disabled rather than failing the check.
func handleHealthDB(db *sql.DB, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := map[string]string{"database": "ok", "redis": "disabled"}
		if err := db.PingContext(ctx); err != nil {
			status["database"] = "unreachable"
			shared.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "data": status})
			return
		}
		if rdb != nil {
			status["redis"] = "ok"
			if err := rdb.Health(ctx); err != nil {
				status["redis"] = "unreachable"
			}
		}
		shared.OK(w, http.StatusOK, status)
	}
}
