// Package config loads runtime settings from the environment.
//
// A .env file in the working directory is read first (if present) so local
// development does not need exported variables; real environment variables
// always win because godotenv.Load never overrides them.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	StorageDisk = "disk"
	StorageS3   = "s3"

	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// Database
	DBDriver     string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBConnection string `env:"DB_CONNECTION" envDefault:"data/estate.db"`

	// Sessions
	JWTSecret     string        `env:"JWT_SECRET,required"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"false"`
	AuthRateLimit int           `env:"AUTH_RATE_LIMIT" envDefault:"10"` // per IP per 15 minutes, 0 disables

	// GitHub sign-in is registered only when both credentials are set
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `env:"GITHUB_CALLBACK_URL"`

	// Storage bucket
	StorageDriver        string `env:"STORAGE_DRIVER" envDefault:"disk"`
	StorageDir           string `env:"STORAGE_DIR" envDefault:"data/storage"`
	StoragePublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	S3Region             string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Bucket             string `env:"S3_BUCKET"`
	S3AccessKey          string `env:"S3_ACCESS_KEY"`
	S3SecretKey          string `env:"S3_SECRET_KEY"`
	S3Endpoint           string `env:"S3_ENDPOINT"` // MinIO, R2, Spaces...

	// Observability
	SentryDSN string `env:"SENTRY_DSN"`
}

// Load reads .env (optional) and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field rules the struct tags cannot express.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("config: JWT_SECRET must be at least 16 characters")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: SESSION_TTL must be positive")
	}

	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q (want sqlite or pgx)", c.DBDriver)
	}

	switch c.StorageDriver {
	case StorageDisk:
	case StorageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("config: S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return fmt.Errorf("config: unsupported STORAGE_DRIVER %q (want disk or s3)", c.StorageDriver)
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// GitHubEnabled reports whether OAuth credentials are configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// CallbackURL returns the OAuth callback, defaulting to localhost.
func (c *Config) CallbackURL() string {
	if c.GitHubCallbackURL != "" {
		return c.GitHubCallbackURL
	}
	return fmt.Sprintf("http://localhost:%d/auth/github/callback", c.Port)
}
