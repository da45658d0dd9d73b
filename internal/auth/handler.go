package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"registro/internal/platform/middleware"
	"registro/internal/transport/http/shared"
	"registro/pkg/apperr"
)

type contextKeyUser struct{}

// CurrentUser retrieves the authenticated account placed in the context by
// RequireAdmin.
func CurrentUser(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(contextKeyUser{}).(User)
	return user, ok
}

// Handler is the session/auth HTTP surface.
type Handler struct {
	logger       *slog.Logger
	svc          *Service
	limiter      *middleware.RedisLimiter
	cookieName   string
	secureCookie bool
}

func NewHandler(svc *Service, logger *slog.Logger, limiter *middleware.RedisLimiter, cookieName string, secureCookie bool) *Handler {
	return &Handler{
		logger:       logger,
		svc:          svc,
		limiter:      limiter,
		cookieName:   cookieName,
		secureCookie: secureCookie,
	}
}

// Register mounts the auth routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/login", h.handleAdminLogin)
	r.Post("/admin/logout", h.handleAdminLogout)
	r.Get("/admin/me", h.handleAdminMe)
	r.With(h.RequireAdmin).Post("/admin/users", h.handleCreateUser)
	r.Get("/me", h.handleMe)
}

// RequireAdmin guards a route with an admin session. All failure modes yield
// the same 401 so the reason is not leaked.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.svc.IdentifyAdmin(r.Context(), h.sessionToken(r))
		if err != nil {
			h.logger.WarnContext(r.Context(), "admin access denied",
				"request_id", middleware.GetRequestID(r.Context()),
				"path", r.URL.Path,
			)
			shared.WriteError(w, apperr.New(apperr.CodeUnauthorized, "unauthorized"))
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyUser{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionToken reads the session cookie, accepting both deployment-mode names
// so sessions survive an environment switch.
func (h *Handler) sessionToken(r *http.Request) string {
	for _, name := range []string{h.cookieName, "sid", "__Host-sid"} {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.limiter.Allow("login:"+clientIP(r), 5, time.Minute) {
		shared.WriteError(w, apperr.New(apperr.CodeRateLimited, "too many login attempts"))
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, apperr.New(apperr.CodeBadRequest, "invalid request body"))
		return
	}

	session, user, err := h.svc.AdminLogin(ctx, req.Email, req.Password, r.UserAgent(), clientIP(r))
	if err != nil {
		if apperr.Is(err, apperr.CodeBadCredentials) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "admin login failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, apperr.New(apperr.CodeInternal, "login failed"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
	})
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":                true,
		"mustResetPassword": user.MustResetPassword,
	})
}

func (h *Handler) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	token := h.sessionToken(r)
	if token != "" {
		if err := h.svc.Logout(r.Context(), token); err != nil {
			h.logger.ErrorContext(r.Context(), "logout failed",
				"request_id", middleware.GetRequestID(r.Context()),
				"error", err.Error(),
			)
		}
		for _, name := range []string{"sid", "__Host-sid"} {
			http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
		}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleAdminMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.IdentifyAdmin(r.Context(), h.sessionToken(r))
	if err != nil {
		shared.WriteError(w, apperr.New(apperr.CodeUnauthorized, "unauthorized"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"user": map[string]any{"id": user.ID, "role": user.Role},
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Identify(r.Context(), h.sessionToken(r))
	if err != nil {
		shared.WriteError(w, apperr.New(apperr.CodeUnauthorized, "unauthorized"))
		return
	}

	name := user.FirstName
	if user.LastName != "" {
		if name != "" {
			name += " "
		}
		name += user.LastName
	}
	resp := map[string]any{"id": user.ID, "role": user.Role}
	if user.Email != "" {
		resp["email"] = user.Email
	}
	if name != "" {
		resp["name"] = name
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "user": resp})
}

type createUserRequest struct {
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Password string `json:"password"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, apperr.New(apperr.CodeBadRequest, "invalid request body"))
		return
	}

	user, err := h.svc.CreateUser(r.Context(), req.Email, req.Role, req.Password)
	if err != nil {
		if apperr.Is(err, apperr.CodeBadRequest) || apperr.Is(err, apperr.CodeConflict) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(r.Context(), "create user failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, apperr.New(apperr.CodeInternal, "create user failed"))
		return
	}

	shared.WriteJSON(w, http.StatusCreated, map[string]any{"id": user.ID, "role": user.Role})
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
