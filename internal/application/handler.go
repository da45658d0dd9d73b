package application

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"registro/internal/platform/middleware"
	"registro/internal/transport/http/shared"
	"registro/pkg/apperr"
)

// Handler is the admin review HTTP surface.
type Handler struct {
	logger *slog.Logger
	svc    *Service
	admin  func(http.Handler) http.Handler
}

func NewHandler(logger *slog.Logger, svc *Service, admin func(http.Handler) http.Handler) *Handler {
	return &Handler{logger: logger, svc: svc, admin: admin}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/applications", func(r chi.Router) {
		r.Use(h.admin)

		r.Get("/", h.handleList)
		r.Get("/metrics", h.handleMetrics)
		// PATCH is the documented verb; POST stays for clients that cannot
		// send PATCH.
		r.Patch("/{id}/status", h.handleUpdateStatus)
		r.Post("/{id}/status", h.handleUpdateStatus)
	})
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, apperr.Wrap(apperr.CodeBadRequest, "invalid JSON body", err))
		return
	}

	result, err := h.svc.UpdateStatus(r.Context(), id, body.Status, body.Note)
	if err != nil {
		h.logger.WarnContext(r.Context(), "status update failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"solicitud_id", id,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "application status updated",
		"request_id", middleware.GetRequestID(r.Context()),
		"solicitud_id", id,
		"status", result.Status,
	)
	shared.OK(w, http.StatusOK, result)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list applications failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	shared.OK(w, http.StatusOK, items)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Metrics(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "application metrics failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	shared.OK(w, http.StatusOK, report)
}
