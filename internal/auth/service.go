package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"registro/pkg/apperr"
	"registro/pkg/sentinel"
)

// UserStore persists accounts.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, user User) error
}

// SessionStore persists opaque session tokens.
type SessionStore interface {
	Create(ctx context.Context, session Session) error
	FindByToken(ctx context.Context, token string) (Session, User, error)
	Revoke(ctx context.Context, token string, at time.Time) error
}

// Service implements login, logout, identity lookup and admin user creation.
type Service struct {
	users      UserStore
	sessions   SessionStore
	sessionTTL time.Duration
	now        func() time.Time
}

func NewService(users UserStore, sessions SessionStore, sessionTTL time.Duration) *Service {
	return &Service{
		users:      users,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// AdminLogin verifies admin credentials and issues a session. All failure
// modes collapse into one BAD_CREDENTIALS error so callers cannot probe which
// condition failed.
func (s *Service) AdminLogin(ctx context.Context, email, password, userAgent, ip string) (Session, User, error) {
	badCredentials := apperr.New(apperr.CodeBadCredentials, "bad credentials")

	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Session{}, User{}, badCredentials
		}
		return Session{}, User{}, fmt.Errorf("find user: %w", err)
	}
	if user.PasswordHash == "" || user.Role != RoleAdmin || !user.IsActive {
		return Session{}, User{}, badCredentials
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return Session{}, User{}, badCredentials
	}

	now := s.now()
	session := Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		UserAgent: ParseUserAgent(userAgent),
		IP:        ip,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return Session{}, User{}, fmt.Errorf("create session: %w", err)
	}
	return session, user, nil
}

// Logout revokes the session. A missing session is not an error; logout is
// idempotent.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, token, s.now()); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Identify returns the account behind a live session token. Missing, expired,
// revoked and unknown tokens are uniformly UNAUTHORIZED.
func (s *Service) Identify(ctx context.Context, token string) (User, error) {
	unauthorized := apperr.New(apperr.CodeUnauthorized, "unauthorized")
	if token == "" {
		return User{}, unauthorized
	}
	session, user, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return User{}, unauthorized
		}
		return User{}, fmt.Errorf("find session: %w", err)
	}
	if !session.Live(s.now()) {
		return User{}, unauthorized
	}
	return user, nil
}

// IdentifyAdmin is Identify restricted to active administrators, again with a
// uniform failure.
func (s *Service) IdentifyAdmin(ctx context.Context, token string) (User, error) {
	user, err := s.Identify(ctx, token)
	if err != nil {
		return User{}, err
	}
	if user.Role != RoleAdmin || !user.IsActive {
		return User{}, apperr.New(apperr.CodeUnauthorized, "unauthorized")
	}
	return user, nil
}

// CreateUser registers an account with a forced password reset, for the admin
// user-management surface.
func (s *Service) CreateUser(ctx context.Context, email string, role Role, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, apperr.New(apperr.CodeBadRequest, "valid email is required")
	}
	if role != RoleAdmin && role != RoleApplicant {
		return User{}, apperr.New(apperr.CodeBadRequest, "role must be ADMIN or APPLICANT")
	}
	if len(password) < 10 {
		return User{}, apperr.New(apperr.CodeBadRequest, "password must be at least 10 characters")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:                uuid.NewString(),
		Email:             email,
		PasswordHash:      hash,
		Role:              role,
		IsActive:          true,
		MustResetPassword: true,
		CreatedAt:         s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return User{}, apperr.New(apperr.CodeConflict, "email already registered")
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
