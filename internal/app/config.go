package app

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the console, the worker and
// consolectl.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"45s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	BackendBaseURL string        `envconfig:"BACKEND_BASE_URL" default:"http://localhost:3001/api/v1"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"30s"`
	// AuthGrantWildcard gives every admin login the wildcard permission, for
	// backends that do not return permission lists yet.
	AuthGrantWildcard bool `envconfig:"AUTH_GRANT_WILDCARD" default:"true"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	DashboardRefreshInterval time.Duration `envconfig:"DASHBOARD_REFRESH_INTERVAL" default:"30s"`
	DashboardServiceToken    string        `envconfig:"DASHBOARD_SERVICE_TOKEN"`
	AnalyticsCacheTTL        time.Duration `envconfig:"ANALYTICS_CACHE_TTL" default:"5m"`

	AuditPGDSN string `envconfig:"AUDIT_PG_DSN"`

	GotenbergURL string `envconfig:"GOTENBERG_URL"`
}

// LoadConfig reads configuration from environment variables, after loading a
// .env file when one exists.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		return errors.New("session secret must be provided")
	}
	if c.CSRFSecret == "" {
		return errors.New("csrf secret must be provided")
	}
	if !strings.HasPrefix(c.BackendBaseURL, "http://") && !strings.HasPrefix(c.BackendBaseURL, "https://") {
		return fmt.Errorf("backend base url %q must be absolute", c.BackendBaseURL)
	}
	if c.IsProduction() && len(c.SessionSecret) < 32 {
		return errors.New("session secret must be at least 32 bytes in production")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Level parses LOG_LEVEL, falling back to info.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if c == nil || level.UnmarshalText([]byte(c.LogLevel)) != nil {
		return slog.LevelInfo
	}
	return level
}
