// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable the portal reads at startup.
type Config struct {
	// HTTP server.
	Port            string        `env:"PORT" envDefault:"8080"`
	BaseURL         string        `env:"BASE_URL" envDefault:"http://localhost:8080"`
	AllowedOrigin   string        `env:"CORS_ALLOWED_ORIGIN" envDefault:"*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// PostgreSQL.
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName     string `env:"DB_NAME" envDefault:"eventsportal"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Upper bound on any single store call so a stalled network call
	// cannot leave a request pending indefinitely.
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	// Sessions and identity.
	SessionSecret string        `env:"SESSION_SECRET" envDefault:"change-me-in-production"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	AdminDomain   string        `env:"ADMIN_EMAIL_DOMAIN" envDefault:"@poornima.edu.in"`

	// External OAuth provider used for sign-in.
	OAuthClientID     string   `env:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string   `env:"OAUTH_CLIENT_SECRET"`
	OAuthRedirectURI  string   `env:"OAUTH_REDIRECT_URI" envDefault:"http://localhost:8080/auth/callback"`
	OAuthAuthURL      string   `env:"OAUTH_AUTH_URL" envDefault:"https://accounts.google.com/o/oauth2/v2/auth"`
	OAuthTokenURL     string   `env:"OAUTH_TOKEN_URL" envDefault:"https://oauth2.googleapis.com/token"`
	OAuthUserInfoURL  string   `env:"OAUTH_USERINFO_URL" envDefault:"https://openidconnect.googleapis.com/v1/userinfo"`
	OAuthScopes       []string `env:"OAUTH_SCOPES" envSeparator:"," envDefault:"openid,email,profile"`

	// Asset storage.
	UploadDir string `env:"UPLOAD_DIR" envDefault:"./uploads"`

	// Timezone used when rendering registration dates in CSV exports.
	DisplayTimezone string `env:"DISPLAY_TIMEZONE" envDefault:"Asia/Kolkata"`
}

// Load parses configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// DSN builds a libpq-compatible connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// DisplayLocation resolves the configured export timezone, falling back to
// UTC when the name is unknown.
func (c Config) DisplayLocation() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
