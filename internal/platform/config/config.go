// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// Config captures everything the server needs from the environment.
type Config struct {
	Addr        string
	Env         string // development | test | production
	DatabaseURL string

	SessionTTL time.Duration

	UploadsDir string

	PrefillBaseURL  string
	PrefillUser     string
	PrefillPassword string

	MoodleBaseURL string
	MoodleToken   string

	RedisURL string
}

// Production reports whether the deployment mode hardens cookies and
// connection-string validation.
func (c Config) Production() bool { return c.Env == "production" }

// CookieName returns the session cookie name for the deployment mode. The
// __Host- prefix requires Secure + Path=/ and no Domain attribute.
func (c Config) CookieName() string {
	if c.Production() {
		return "__Host-sid"
	}
	return "sid"
}

var postgresURLRe = regexp.MustCompile(`(?i)^postgres(ql)?://`)

// FromEnv reads environment variables, deriving DATABASE_URL from its
// component parts when it is not set explicitly.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:            getenv("ADDR", ":"+getenv("PORT", "4000")),
		Env:             getenv("APP_ENV", "development"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SessionTTL:      8 * time.Hour,
		UploadsDir:      getenv("UPLOADS_DIR", filepath.Join(mustCwd(), "uploads")),
		PrefillBaseURL:  os.Getenv("PREFILL_API_URL"),
		PrefillUser:     os.Getenv("BASE_API_USER"),
		PrefillPassword: os.Getenv("BASE_API_PASSWORD"),
		MoodleBaseURL:   os.Getenv("MOODLE_SIGNUP_API_URL"),
		MoodleToken:     os.Getenv("MOODLE_SIGNUP_API_TOKEN"),
		RedisURL:        os.Getenv("REDIS_URL"),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = buildDatabaseURL()
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL not set and could not be built from POSTGRES_* vars")
	}
	if cfg.Production() && !postgresURLRe.MatchString(cfg.DatabaseURL) {
		return Config{}, fmt.Errorf("DATABASE_URL must start with postgres:// or postgresql://")
	}

	if cfg.PrefillBaseURL == "" || cfg.PrefillUser == "" || cfg.PrefillPassword == "" {
		return Config{}, fmt.Errorf("PREFILL_API_URL, BASE_API_USER and BASE_API_PASSWORD are required")
	}
	if cfg.MoodleBaseURL == "" || cfg.MoodleToken == "" {
		return Config{}, fmt.Errorf("MOODLE_SIGNUP_API_URL and MOODLE_SIGNUP_API_TOKEN are required")
	}

	return cfg, nil
}

// buildDatabaseURL assembles a connection URL from component variables when no
// explicit DATABASE_URL exists.
func buildDatabaseURL() string {
	user := os.Getenv("POSTGRES_USER")
	pass := os.Getenv("POSTGRES_PASSWORD")
	host := getenv("DB_HOST", getenv("DB_HOSTNAME", "localhost"))
	port := getenv("DB_PORT", "5432")
	db := getenv("POSTGRES_DB", os.Getenv("DB_NAME"))
	if user == "" || pass == "" || db == "" {
		return ""
	}
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, db)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustCwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
