// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Upsert modes accepted by WEBHOOK_UPSERT_MODE.
const (
	UpsertModeCheck  = "check"
	UpsertModeAtomic = "atomic"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	AppPort    int    `env:"APP_PORT" envDefault:"8080"`
	ServerName string `env:"SERVER_NAME" envDefault:"userhook"`

	// Database (PostgreSQL). One connection by default; statements queue
	// in the pool beyond MaxConns.
	DatabaseURL string `env:"DATABASE_URL,required"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"1"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"0"`

	// Cache (Redis). Optional: webhook locking and rate limiting need it.
	RedisURL string `env:"REDIS_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Refresh period of the cached Date header
	ClockInterval time.Duration `env:"CLOCK_INTERVAL" envDefault:"1s"`

	// Webhook upserts
	WebhookUpsertMode  string        `env:"WEBHOOK_UPSERT_MODE" envDefault:"check"`
	WebhookLockEnabled bool          `env:"WEBHOOK_LOCK_ENABLED" envDefault:"false"`
	WebhookLockTTL     time.Duration `env:"WEBHOOK_LOCK_TTL" envDefault:"10s"`
	WebhookLockWait    time.Duration `env:"WEBHOOK_LOCK_WAIT" envDefault:"2s"`

	// Rate limiting
	RateLimitWebhookEnabled bool `env:"RATE_LIMIT_WEBHOOK_ENABLED" envDefault:"false"`
	RateLimitWebhookRPS     int  `env:"RATE_LIMIT_WEBHOOK_RPS" envDefault:"50"`
	RateLimitWebhookBurst   int  `env:"RATE_LIMIT_WEBHOOK_BURST" envDefault:"20"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Metrics exposes /metrics when true
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// HasRedis reports whether a Redis URL is configured.
func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate rejects values the application cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.AppPort <= 0 || c.AppPort > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be in 1..65535, got %d", c.AppPort))
	}
	if c.ServerName == "" {
		errs = append(errs, errors.New("SERVER_NAME must not be empty"))
	}
	if c.DBMaxConns < 1 {
		errs = append(errs, fmt.Errorf("DB_MAX_CONNS must be at least 1, got %d", c.DBMaxConns))
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS must be in 0..DB_MAX_CONNS, got %d", c.DBMinConns))
	}
	if c.ClockInterval <= 0 {
		errs = append(errs, fmt.Errorf("CLOCK_INTERVAL must be positive, got %s", c.ClockInterval))
	}
	if c.WebhookUpsertMode != UpsertModeCheck && c.WebhookUpsertMode != UpsertModeAtomic {
		errs = append(errs, fmt.Errorf("WEBHOOK_UPSERT_MODE must be %q or %q, got %q",
			UpsertModeCheck, UpsertModeAtomic, c.WebhookUpsertMode))
	}
	if c.WebhookLockEnabled {
		if !c.HasRedis() {
			errs = append(errs, errors.New("WEBHOOK_LOCK_ENABLED requires REDIS_URL"))
		}
		if c.WebhookLockTTL <= 0 || c.WebhookLockWait < 0 {
			errs = append(errs, errors.New("WEBHOOK_LOCK_TTL must be positive and WEBHOOK_LOCK_WAIT not negative"))
		}
	}
	if c.RateLimitWebhookEnabled {
		if !c.HasRedis() {
			errs = append(errs, errors.New("RATE_LIMIT_WEBHOOK_ENABLED requires REDIS_URL"))
		}
		if c.RateLimitWebhookRPS <= 0 || c.RateLimitWebhookBurst <= 0 {
			errs = append(errs, errors.New("RATE_LIMIT_WEBHOOK_RPS and RATE_LIMIT_WEBHOOK_BURST must be positive"))
		}
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be positive, got %d", c.MaxRequestBodySize))
	}

	return errors.Join(errs...)
}

// Load reads an optional .env file, parses environment variables and
// validates the result. Variables already set win over .env entries.
func Load() (*Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
