package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const defaultSessionSecret = "dev-secret-change-in-production-use-openssl-rand-hex-32"

// Generation modes
const (
	GenerationModeSync  = "sync"
	GenerationModeAsync = "async"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	Env  string `envconfig:"ENV" default:"development"`
	Port string `envconfig:"PORT" default:"8080"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	RedisURL    string `envconfig:"REDIS_URL"`

	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"20"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	DBSlowQuery       time.Duration `envconfig:"DB_SLOW_QUERY" default:"500ms"`

	SessionSecret string `envconfig:"SESSION_SECRET"`
	EncryptionKey string `envconfig:"ENCRYPTION_KEY"`

	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `envconfig:"GOOGLE_CALLBACK_URL" default:"http://localhost:8080/auth/google/callback"`

	N8NWebhookURL    string        `envconfig:"N8N_WEBHOOK_URL"`
	N8NWebhookSecret string        `envconfig:"N8N_WEBHOOK_SECRET"`
	StubMode         bool          `envconfig:"STUB_MODE" default:"true"`
	GenerationMode   string        `envconfig:"GENERATION_MODE" default:"sync"`
	FixtureLatency   time.Duration `envconfig:"FIXTURE_LATENCY" default:"3s"`

	StaleRequestAfter time.Duration `envconfig:"STALE_REQUEST_AFTER" default:"15m"`
	StaleScanSchedule string        `envconfig:"STALE_SCAN_SCHEDULE" default:"@every 5m"`

	LookupBaseURL  string        `envconfig:"LOOKUP_BASE_URL"`
	LogoHost       string        `envconfig:"LOGO_HOST" default:"logo.clearbit.com"`
	LookupDebounce time.Duration `envconfig:"LOOKUP_DEBOUNCE" default:"300ms"`
	LookupRPS      float64       `envconfig:"LOOKUP_RPS" default:"5"`
	LookupCacheTTL time.Duration `envconfig:"LOOKUP_CACHE_TTL" default:"10m"`

	CatalogPath string `envconfig:"CATALOG_PATH"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load reads configuration from the environment, after loading a .env file if one exists
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	// Warn if using default session secret (insecure for production)
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = defaultSessionSecret
		slog.Warn("Using default SESSION_SECRET. Generate a secure secret with: openssl rand -hex 32")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express
func (c *Config) Validate() error {
	switch c.GenerationMode {
	case GenerationModeSync:
	case GenerationModeAsync:
		if c.RedisURL == "" {
			return fmt.Errorf("GENERATION_MODE=async requires REDIS_URL")
		}
	default:
		return fmt.Errorf("invalid GENERATION_MODE %q: must be %q or %q", c.GenerationMode, GenerationModeSync, GenerationModeAsync)
	}

	if !c.StubMode && c.N8NWebhookURL == "" {
		return fmt.Errorf("N8N_WEBHOOK_URL is required when STUB_MODE=false")
	}

	if c.Env == "production" && c.SessionSecret == defaultSessionSecret {
		return fmt.Errorf("SESSION_SECRET must be set in production")
	}

	return nil
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
