package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registro/pkg/testutil"
)

func newTestHandler(t *testing.T) (*Handler, *memSessionStore) {
	t.Helper()
	svc, _, sessions := adminFixture(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(svc, logger, nil, "sid", false), sessions
}

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func TestHandleAdminLoginSetsCookie(t *testing.T) {
	h, _ := newTestHandler(t)
	router := newTestRouter(h)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/login", loginRequest{
		Email:    "admin@registro.local",
		Password: "Sup3r$ecret",
	})
	rr := testutil.DoRequest(router, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var sid *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "sid" {
			sid = c
		}
	}
	require.NotNil(t, sid, "session cookie not set")
	assert.True(t, sid.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, sid.SameSite)
	assert.NotEmpty(t, sid.Value)
	assert.Greater(t, sid.MaxAge, 0)
}

func TestHandleAdminLoginBadCredentials(t *testing.T) {
	h, _ := newTestHandler(t)
	router := newTestRouter(h)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/login", loginRequest{
		Email:    "admin@registro.local",
		Password: "wrong",
	})
	rr := testutil.DoRequest(router, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "BAD_CREDENTIALS")
	assert.Empty(t, rr.Result().Cookies())
}

func TestHandleAdminMeRequiresSession(t *testing.T) {
	h, sessions := newTestHandler(t)
	router := newTestRouter(h)

	// No cookie.
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/me"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "UNAUTHORIZED")

	// Live admin session.
	require.NoError(t, sessions.Create(context.Background(), Session{
		Token:     "tok-admin",
		UserID:    "u-admin",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}))
	req := testutil.NewRequest(t, http.MethodGet, "/admin/me")
	req.AddCookie(&http.Cookie{Name: "sid", Value: "tok-admin"})
	rr = testutil.DoRequest(router, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "u-admin")
	assert.Contains(t, rr.Body.String(), "ADMIN")
}

func TestHandleLogoutRevokesAndClears(t *testing.T) {
	h, sessions := newTestHandler(t)
	router := newTestRouter(h)

	require.NoError(t, sessions.Create(context.Background(), Session{
		Token:     "tok-admin",
		UserID:    "u-admin",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	req := testutil.NewRequest(t, http.MethodPost, "/admin/logout")
	req.AddCookie(&http.Cookie{Name: "sid", Value: "tok-admin"})
	rr := testutil.DoRequest(router, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, sessions.revoked, "tok-admin")

	cleared := 0
	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared++
		}
	}
	assert.Equal(t, 2, cleared, "both cookie variants cleared")
}

func TestHandleCreateUserRequiresAdmin(t *testing.T) {
	h, sessions := newTestHandler(t)
	router := newTestRouter(h)

	body := createUserRequest{Email: "second@registro.local", Role: RoleAdmin, Password: "LongEnough123!"}

	// Without a session: 401.
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/admin/users", body))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// With an admin session: 201.
	require.NoError(t, sessions.Create(context.Background(), Session{
		Token:     "tok-admin",
		UserID:    "u-admin",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}))
	req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/users", body)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "tok-admin"})
	rr = testutil.DoRequest(router, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "ADMIN")
}

func TestHandleMeUnauthorizedIsUniform(t *testing.T) {
	h, sessions := newTestHandler(t)
	router := newTestRouter(h)

	require.NoError(t, sessions.Create(context.Background(), Session{
		Token:     "tok-expired",
		UserID:    "u-admin",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	bodies := map[string]func() *http.Request{
		"missing cookie": func() *http.Request {
			return testutil.NewRequest(t, http.MethodGet, "/me")
		},
		"expired session": func() *http.Request {
			req := testutil.NewRequest(t, http.MethodGet, "/me")
			req.AddCookie(&http.Cookie{Name: "sid", Value: "tok-expired"})
			return req
		},
		"unknown token": func() *http.Request {
			req := testutil.NewRequest(t, http.MethodGet, "/me")
			req.AddCookie(&http.Cookie{Name: "sid", Value: "nope"})
			return req
		},
	}

	var responses []string
	for name, build := range bodies {
		rr := testutil.DoRequest(router, build())
		assert.Equal(t, http.StatusUnauthorized, rr.Code, name)
		responses = append(responses, strings.TrimSpace(rr.Body.String()))
	}
	// Identical body for every failure mode.
	for _, body := range responses[1:] {
		assert.Equal(t, responses[0], body)
	}
}
