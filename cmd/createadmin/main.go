// Command createadmin seeds a reviewer account. Credentials come from
// ADMIN_EMAIL and ADMIN_PASSWORD; the account is created with
// must_reset_password so the first login forces a new password.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"registro/internal/auth"
	"registro/internal/platform/database"
	"registro/pkg/sentinel"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	email := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}
	if err := auth.CheckPasswordStrength(password); err != nil {
		return err
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return errors.New("DATABASE_URL must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	users := auth.NewPostgresUserStore(db)
	user := auth.User{
		ID:                uuid.NewString(),
		Email:             email,
		PasswordHash:      hash,
		Role:              auth.RoleAdmin,
		IsActive:          true,
		MustResetPassword: true,
		CreatedAt:         time.Now().UTC(),
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			fmt.Printf("user %s already exists\n", email)
			return nil
		}
		return err
	}

	fmt.Printf("admin created: %s (%s)\n", user.ID, email)
	return nil
}
