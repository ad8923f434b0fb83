// Package config loads and validates environment variables at startup.
// Fail-fast: an invalid value is a startup error, not a runtime surprise.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env if present (silent no-op otherwise).
	_ = godotenv.Load()
}

// Config holds all runtime configuration for the monitor service.
type Config struct {
	Port       string `envconfig:"MONITOR_PORT" default:"8083"`
	ConfigPath string `envconfig:"CONFIG_PATH" default:"config.json"`

	// Optional backends. DATABASE_URL switches the profile store from the
	// JSON file to Postgres; REDIS_URL makes dedup state survive restarts.
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	RedisURL    string `envconfig:"REDIS_URL" default:""`

	// Notifier. Empty token falls back to the log notifier.
	TelegramToken string `envconfig:"TELEGRAM_TOKEN" default:""`

	// Marketplace country code, e.g. ".hu". Overrides the value carried in
	// config.json when set.
	CountryCode string `envconfig:"COUNTRY_CODE" default:""`

	// Polling and session pacing.
	PollInterval     time.Duration `envconfig:"POLL_INTERVAL" default:"5m"`
	PageSize         int           `envconfig:"PAGE_SIZE" default:"20"`
	RequestSpacing   time.Duration `envconfig:"REQUEST_SPACING" default:"2s"`
	RequestJitter    time.Duration `envconfig:"REQUEST_JITTER" default:"750ms"`
	BackoffBase      time.Duration `envconfig:"BACKOFF_BASE" default:"5s"`
	BackoffMax       time.Duration `envconfig:"BACKOFF_MAX" default:"5m"`
	FailureThreshold int           `envconfig:"FAILURE_THRESHOLD" default:"5"`
	ShutdownGrace    time.Duration `envconfig:"SHUTDOWN_GRACE" default:"15s"`
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.PollInterval < 10*time.Second {
		return nil, fmt.Errorf("POLL_INTERVAL must be at least 10s, got %s", cfg.PollInterval)
	}
	if cfg.PageSize < 1 || cfg.PageSize > 50 {
		return nil, fmt.Errorf("PAGE_SIZE must be between 1 and 50, got %d", cfg.PageSize)
	}
	if cfg.BackoffMax < cfg.BackoffBase {
		return nil, fmt.Errorf("BACKOFF_MAX (%s) must not be below BACKOFF_BASE (%s)",
			cfg.BackoffMax, cfg.BackoffBase)
	}

	return &cfg, nil
}
