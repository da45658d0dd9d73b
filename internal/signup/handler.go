package signup

import (
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"registro/internal/documents"
	"registro/internal/platform/metrics"
	"registro/internal/platform/middleware"
	"registro/internal/transport/http/shared"
	"registro/pkg/apperr"
)

const maxUploadMemory = 32 << 20

// Handler exposes the one-shot signup endpoint.
type Handler struct {
	logger  *slog.Logger
	svc     *Service
	metrics *metrics.Metrics
	limiter *middleware.RedisLimiter
}

func NewHandler(logger *slog.Logger, svc *Service, m *metrics.Metrics, limiter *middleware.RedisLimiter) *Handler {
	return &Handler{logger: logger, svc: svc, metrics: m, limiter: limiter}
}

func (h *Handler) Register(r chi.Router) {
	r.With(middleware.RateLimit(h.limiter, "signup", 10, time.Minute)).
		Post("/signup", h.handleSignup)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.metrics.SignupsReceived.Inc()

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.metrics.SignupsRejected.Inc()
		shared.WriteError(w, apperr.Wrap(apperr.CodeBadRequest, "expected multipart form data", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	in, err := Validate(r.MultipartForm.Value)
	if err != nil {
		h.metrics.SignupsRejected.Inc()
		h.logger.WarnContext(ctx, "signup rejected by validation",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	parts := Parts{}
	for _, slot := range []struct {
		field string
		dst   **documents.UploadedPart
	}{
		{"pdf_dpi", &parts.DPI},
		{"pdf_contrato", &parts.Contrato},
		{"pdf_certificado_profesional", &parts.CertificadoProfesional},
	} {
		part, err := h.readPart(r.MultipartForm.File[slot.field])
		if err != nil {
			h.metrics.SignupsRejected.Inc()
			shared.WriteError(w, apperr.Wrap(apperr.CodeFileUpload, "could not read uploaded file", err))
			return
		}
		*slot.dst = part
	}

	result, err := h.svc.Submit(ctx, in, parts)
	if err != nil {
		h.metrics.SignupsRejected.Inc()
		h.logger.ErrorContext(ctx, "signup failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.OK(w, http.StatusCreated, result)
}

// readPart buffers the first header of a file slot into the normalized
// UploadedPart shape. A slot may carry zero, one or several headers; only the
// first counts, matching how the form is produced.
func (h *Handler) readPart(headers []*multipart.FileHeader) (*documents.UploadedPart, error) {
	if len(headers) == 0 {
		return nil, nil
	}
	fh := headers[0]
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &documents.UploadedPart{
		Filename: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}
