// Package config holds the runtime configuration for the server.
//
// NO AMBIENT GLOBALS:
// Config is constructed exactly once in main and passed by value into every
// component that needs a piece of it. Nothing in this codebase reads an
// environment variable after startup — if a setting matters, it is a field
// here.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full configuration surface, sourced from env vars
// (optionally pre-loaded from a .env file).
type Config struct {
	Port      int
	DBPath    string
	BaseURL   string // external URL prefix used in verification links
	UploadDir string // root directory for stored files

	JWTSecret string
	TokenTTL  time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string

	// Optional ops account seeded at startup. There is no HTTP route that
	// creates ops users — they exist out-of-band.
	OpsEmail    string
	OpsPassword string
}

// Load reads configuration from the environment and performs minimal
// validation. A .env file in the working directory is loaded first if
// present; real environment variables win over .env entries.
func Load() (Config, error) {
	// godotenv.Load returns an error when the file doesn't exist — that's
	// the normal case in production, so it is ignored deliberately.
	_ = godotenv.Load()

	cfg := Config{
		Port:         8080,
		DBPath:       fallback(os.Getenv("DB_PATH"), "data/fileshare.db"),
		BaseURL:      fallback(os.Getenv("BASE_URL"), "http://localhost:8080"),
		UploadDir:    fallback(os.Getenv("UPLOAD_DIR"), "uploads"),
		JWTSecret:    strings.TrimSpace(os.Getenv("JWT_SECRET")),
		TokenTTL:     30 * time.Minute,
		SMTPHost:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
		SMTPPort:     587,
		SMTPUser:     strings.TrimSpace(os.Getenv("SMTP_USER")),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		OpsEmail:     strings.TrimSpace(os.Getenv("OPS_EMAIL")),
		OpsPassword:  os.Getenv("OPS_PASSWORD"),
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	if ttlStr := os.Getenv("TOKEN_TTL_MINUTES"); ttlStr != "" {
		minutes, err := strconv.Atoi(ttlStr)
		if err != nil || minutes <= 0 {
			return Config{}, fmt.Errorf("config: invalid TOKEN_TTL_MINUTES %q", ttlStr)
		}
		cfg.TokenTTL = time.Duration(minutes) * time.Minute
	}

	if smtpPortStr := os.Getenv("SMTP_PORT"); smtpPortStr != "" {
		port, err := strconv.Atoi(smtpPortStr)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid SMTP_PORT %q: %w", smtpPortStr, err)
		}
		cfg.SMTPPort = port
	}

	// The signing secret has no safe default — a well-known secret would
	// let anyone mint valid session tokens.
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("config: JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.Port)
}

// MailConfigured reports whether enough SMTP settings are present to
// actually deliver email. When false, the mail sender runs in log-only mode.
func (c Config) MailConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUser != ""
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}
