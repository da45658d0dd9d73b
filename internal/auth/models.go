// Package auth owns accounts and sessions: password credentials, opaque
// session tokens carried in an HTTP-only cookie, and the admin-session guard
// used by the review and provisioning surfaces.
package auth

import "time"

// Role separates reviewers from applicants.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleApplicant Role = "APPLICANT"
)

// User is an account record. Applicant accounts are created lazily on first
// signup and never deleted by this workflow.
type User struct {
	ID                string
	Email             string
	PasswordHash      string
	FirstName         string
	LastName          string
	Role              Role
	IsActive          bool
	MustResetPassword bool
	CreatedAt         time.Time
}

// Session maps an opaque bearer token to a user. Revocation and expiry are
// the only mutations after creation.
type Session struct {
	Token     string
	UserID    string
	UserAgent string
	IP        string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Live reports whether the session is usable at the given instant.
func (s Session) Live(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
