package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"registro/pkg/sentinel"
)

// PostgresUserStore persists accounts. Pure I/O; credential checks belong in
// the service.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

const userColumns = `id, email, COALESCE(password_hash, ''), COALESCE(first_name, ''), COALESCE(last_name, ''), role, is_active, must_reset_password, created_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.IsActive, &u.MustResetPassword, &u.CreatedAt)
	return u, err
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, sentinel.ErrNotFound
		}
		return User{}, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

func (s *PostgresUserStore) Create(ctx context.Context, user User) error {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role, is_active, must_reset_password, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.Role, user.IsActive, user.MustResetPassword, user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// PostgresSessionStore persists opaque session tokens.
type PostgresSessionStore struct {
	db *sql.DB
}

func NewPostgresSessionStore(db *sql.DB) *PostgresSessionStore {
	return &PostgresSessionStore{db: db}
}

func (s *PostgresSessionStore) Create(ctx context.Context, session Session) error {
	query := `
		INSERT INTO sessions (token, user_id, user_agent, ip, created_at, expires_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		session.Token, session.UserID, session.UserAgent, session.IP,
		session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) FindByToken(ctx context.Context, token string) (Session, User, error) {
	query := `
		SELECT s.token, s.user_id, COALESCE(s.user_agent, ''), COALESCE(s.ip, ''),
		       s.created_at, s.expires_at, s.revoked_at,
		       u.id, u.email, COALESCE(u.password_hash, ''), COALESCE(u.first_name, ''), COALESCE(u.last_name, ''),
		       u.role, u.is_active, u.must_reset_password, u.created_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1
	`
	var (
		session   Session
		user      User
		revokedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&session.Token, &session.UserID, &session.UserAgent, &session.IP,
		&session.CreatedAt, &session.ExpiresAt, &revokedAt,
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.Role, &user.IsActive, &user.MustResetPassword, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, User{}, sentinel.ErrNotFound
		}
		return Session{}, User{}, fmt.Errorf("find session: %w", err)
	}
	if revokedAt.Valid {
		session.RevokedAt = &revokedAt.Time
	}
	return session, user, nil
}

func (s *PostgresSessionStore) Revoke(ctx context.Context, token string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET revoked_at = $2 WHERE token = $1 AND revoked_at IS NULL`, token, at)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
