package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registro/pkg/apperr"
	"registro/pkg/sentinel"
)

type memUserStore struct {
	byEmail map[string]User
	created []User
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return User{}, sentinel.ErrNotFound
	}
	return u, nil
}

func (s *memUserStore) Create(_ context.Context, user User) error {
	if _, ok := s.byEmail[user.Email]; ok {
		return sentinel.ErrConflict
	}
	if s.byEmail == nil {
		s.byEmail = map[string]User{}
	}
	s.byEmail[user.Email] = user
	s.created = append(s.created, user)
	return nil
}

type memSessionStore struct {
	sessions map[string]Session
	users    map[string]User
	revoked  []string
}

func (s *memSessionStore) Create(_ context.Context, session Session) error {
	if s.sessions == nil {
		s.sessions = map[string]Session{}
	}
	s.sessions[session.Token] = session
	return nil
}

func (s *memSessionStore) FindByToken(_ context.Context, token string) (Session, User, error) {
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, User{}, sentinel.ErrNotFound
	}
	return session, s.users[session.UserID], nil
}

func (s *memSessionStore) Revoke(_ context.Context, token string, at time.Time) error {
	session, ok := s.sessions[token]
	if !ok {
		return sentinel.ErrNotFound
	}
	session.RevokedAt = &at
	s.sessions[token] = session
	s.revoked = append(s.revoked, token)
	return nil
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	hash, err := HashPassword(plain)
	require.NoError(t, err)
	return hash
}

func adminFixture(t *testing.T) (*Service, *memUserStore, *memSessionStore) {
	t.Helper()
	admin := User{
		ID:           "u-admin",
		Email:        "admin@registro.local",
		PasswordHash: mustHash(t, "Sup3r$ecret"),
		Role:         RoleAdmin,
		IsActive:     true,
	}
	users := &memUserStore{byEmail: map[string]User{admin.Email: admin}}
	sessions := &memSessionStore{users: map[string]User{admin.ID: admin}}
	return NewService(users, sessions, 8*time.Hour), users, sessions
}

func TestAdminLoginSuccess(t *testing.T) {
	svc, _, sessions := adminFixture(t)

	session, user, err := svc.AdminLogin(context.Background(), "Admin@Registro.Local ", "Sup3r$ecret", "Mozilla/5.0 (X11; Linux x86_64) Firefox/121.0", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "u-admin", user.ID)
	assert.NotEmpty(t, session.Token)
	assert.Contains(t, sessions.sessions, session.Token)
	assert.WithinDuration(t, time.Now().Add(8*time.Hour), session.ExpiresAt, time.Minute)
}

func TestAdminLoginUniformFailures(t *testing.T) {
	svc, users, _ := adminFixture(t)

	applicant := User{
		ID:           "u-app",
		Email:        "applicant@registro.local",
		PasswordHash: mustHash(t, "Sup3r$ecret"),
		Role:         RoleApplicant,
		IsActive:     true,
	}
	inactive := User{
		ID:           "u-off",
		Email:        "inactive@registro.local",
		PasswordHash: mustHash(t, "Sup3r$ecret"),
		Role:         RoleAdmin,
		IsActive:     false,
	}
	users.byEmail[applicant.Email] = applicant
	users.byEmail[inactive.Email] = inactive

	cases := map[string]struct{ email, password string }{
		"unknown email":  {"nobody@registro.local", "Sup3r$ecret"},
		"wrong password": {"admin@registro.local", "wrong"},
		"not an admin":   {"applicant@registro.local", "Sup3r$ecret"},
		"inactive":       {"inactive@registro.local", "Sup3r$ecret"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.AdminLogin(context.Background(), tc.email, tc.password, "", "")
			assert.True(t, apperr.Is(err, apperr.CodeBadCredentials))
		})
	}
}

func TestIdentifyExpiredAndRevoked(t *testing.T) {
	svc, _, sessions := adminFixture(t)

	session, _, err := svc.AdminLogin(context.Background(), "admin@registro.local", "Sup3r$ecret", "", "")
	require.NoError(t, err)

	user, err := svc.Identify(context.Background(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-admin", user.ID)

	// Expired session.
	expired := sessions.sessions[session.Token]
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	sessions.sessions[session.Token] = expired
	_, err = svc.Identify(context.Background(), session.Token)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))

	// Revoked session.
	expired.ExpiresAt = time.Now().Add(time.Hour)
	now := time.Now()
	expired.RevokedAt = &now
	sessions.sessions[session.Token] = expired
	_, err = svc.Identify(context.Background(), session.Token)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))

	// Unknown token.
	_, err = svc.Identify(context.Background(), "no-such-token")
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))

	// Empty token.
	_, err = svc.Identify(context.Background(), "")
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
}

func TestIdentifyAdminRejectsApplicant(t *testing.T) {
	svc, users, sessions := adminFixture(t)

	applicant := User{
		ID:       "u-app",
		Email:    "applicant@registro.local",
		Role:     RoleApplicant,
		IsActive: true,
	}
	users.byEmail[applicant.Email] = applicant
	sessions.users[applicant.ID] = applicant
	session := Session{
		Token:     "tok-app",
		UserID:    applicant.ID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, sessions.Create(context.Background(), session))

	_, err := svc.Identify(context.Background(), "tok-app")
	require.NoError(t, err)

	_, err = svc.IdentifyAdmin(context.Background(), "tok-app")
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
}

func TestLogoutIdempotent(t *testing.T) {
	svc, _, sessions := adminFixture(t)

	session, _, err := svc.AdminLogin(context.Background(), "admin@registro.local", "Sup3r$ecret", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), session.Token))
	assert.NotNil(t, sessions.sessions[session.Token].RevokedAt)

	// Unknown tokens and empty tokens are not errors.
	require.NoError(t, svc.Logout(context.Background(), "missing"))
	require.NoError(t, svc.Logout(context.Background(), ""))
}

func TestCreateUser(t *testing.T) {
	svc, users, _ := adminFixture(t)

	user, err := svc.CreateUser(context.Background(), "New.Admin@Registro.Local", RoleAdmin, "LongEnough123!")
	require.NoError(t, err)
	assert.Equal(t, "new.admin@registro.local", user.Email)
	assert.True(t, user.MustResetPassword)
	assert.True(t, user.IsActive)
	require.Len(t, users.created, 1)

	// Duplicate email maps to a conflict.
	_, err = svc.CreateUser(context.Background(), "new.admin@registro.local", RoleAdmin, "LongEnough123!")
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	// Short password rejected before hashing.
	_, err = svc.CreateUser(context.Background(), "a@b.co", RoleAdmin, "short")
	assert.True(t, apperr.Is(err, apperr.CodeBadRequest))

	// Unknown role rejected.
	_, err = svc.CreateUser(context.Background(), "a@b.co", Role("ROOT"), "LongEnough123!")
	assert.True(t, apperr.Is(err, apperr.CodeBadRequest))
}

func TestCheckPasswordStrength(t *testing.T) {
	require.NoError(t, CheckPasswordStrength("Aa1!aaaa"))

	for name, pw := range map[string]string{
		"too short": "Aa1!a",
		"no upper":  "aa1!aaaa",
		"no lower":  "AA1!AAAA",
		"no digit":  "Aaa!aaaa",
		"no symbol": "Aa1aaaaa",
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, CheckPasswordStrength(pw))
		})
	}
}

func TestParseUserAgent(t *testing.T) {
	assert.Equal(t, "Unknown Device", ParseUserAgent(""))
	label := ParseUserAgent("Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
	assert.Contains(t, label, "Firefox")
}
