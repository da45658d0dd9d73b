package prefill

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"registro/internal/platform/metrics"
	"registro/internal/platform/middleware"
	"registro/internal/transport/http/shared"
	"registro/pkg/apperr"
)

// Lookuper is the client surface the handler needs, narrowed for tests.
type Lookuper interface {
	LookupByDPI(ctx context.Context, dpi string) ([]byte, error)
}

// Handler exposes the public prefill endpoint.
type Handler struct {
	logger  *slog.Logger
	client  Lookuper
	metrics *metrics.Metrics
	limiter *middleware.RedisLimiter
}

func NewHandler(logger *slog.Logger, client Lookuper, m *metrics.Metrics, limiter *middleware.RedisLimiter) *Handler {
	return &Handler{logger: logger, client: client, metrics: m, limiter: limiter}
}

func (h *Handler) Register(r chi.Router) {
	r.With(middleware.RateLimit(h.limiter, "prefill", 10, time.Minute)).
		Post("/prefill", h.handlePrefill)
}

// handlePrefill answers with the prefill envelope: {success:true, data:...} on
// anything answerable, {success:false, error:...} on upstream trouble. A DPI
// the registry does not know is still a success with empty fields.
func (h *Handler) handlePrefill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body struct {
		DPI string `json:"dpi"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, apperr.Wrap(apperr.CodeBadRequest, "invalid JSON body", err))
		return
	}
	if len(body.DPI) != 13 {
		shared.WriteError(w, apperr.New(apperr.CodeBadRequest, "DPI debe tener 13 dígitos"))
		return
	}

	raw, err := h.client.LookupByDPI(ctx, body.DPI)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound {
			h.metrics.PrefillLookups.WithLabelValues("miss").Inc()
			h.writeSuccess(w, emptyPerson(body.DPI))
			return
		}
		h.writeFailure(ctx, w, err)
		return
	}

	person, err := normalize(raw, body.DPI)
	if err != nil {
		h.writeFailure(ctx, w, err)
		return
	}

	if person.Message == messageNotFound {
		h.metrics.PrefillLookups.WithLabelValues("miss").Inc()
	} else {
		h.metrics.PrefillLookups.WithLabelValues("hit").Inc()
	}
	h.writeSuccess(w, person)
}

func (h *Handler) writeSuccess(w http.ResponseWriter, person *Person) {
	shared.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "data": person})
}

func (h *Handler) writeFailure(ctx context.Context, w http.ResponseWriter, err error) {
	h.metrics.PrefillLookups.WithLabelValues("error").Inc()
	failure := classify(err)
	h.logger.ErrorContext(ctx, "prefill lookup failed",
		"error", err,
		"error_type", failure.Type,
		"request_id", middleware.GetRequestID(ctx),
	)
	shared.WriteJSON(w, failure.Status, map[string]any{"success": false, "error": failure})
}
