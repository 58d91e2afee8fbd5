package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/estateops/estatecrm/internal/validator"
	"github.com/joho/godotenv"
)

var (
	ErrMissingConfig    = errors.New("missing required configuration")
	ErrInvalidConfig    = errors.New("invalid configuration value")
	ErrValidationFailed = errors.New("configuration validation failed")
)

// Environment represents the deployment environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

const defaultTokenURI = "https://oauth2.googleapis.com/token"

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Google       GoogleConfig
	Database     DatabaseConfig
	Sync         SyncConfig
	Notify       NotifyConfig
	RateLimiting RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        int
	BaseURL     string
	Environment Environment
}

// GoogleConfig holds the shared Google Calendar identity configuration.
// The whole team pushes to and imports from one calendar owned by
// TeamAccountEmail; per-agent calendars are not supported.
type GoogleConfig struct {
	ClientID         string
	ClientSecret     string
	TokenURI         string
	CalendarID       string
	TeamAccountEmail string
	RedirectURL      string
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string
}

// SyncConfig holds push/import job configuration.
type SyncConfig struct {
	PushInterval   time.Duration
	ImportInterval time.Duration
	PushLimit      int
	DaysBack       int
	DaysForward    int
}

// NotifyConfig holds email alert configuration.
type NotifyConfig struct {
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	SMTPFrom         string
	SMTPTLS          bool
	AlertLeadMinutes int
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load loads configuration from environment variables.
// It attempts to load from .env file first, but continues if not found.
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load() //nolint:errcheck // Intentionally ignore - .env file is optional

	cfg := &Config{}

	// Server configuration
	port, err := getEnvInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%w: PORT: %w", ErrInvalidConfig, err)
	}
	cfg.Server.Port = port
	cfg.Server.BaseURL = getEnv("BASE_URL", fmt.Sprintf("http://localhost:%d", port))
	cfg.Server.Environment = Environment(strings.ToLower(getEnv("ENVIRONMENT", "production")))

	// Google configuration
	cfg.Google.ClientID = getEnvRequired("GOOGLE_CLIENT_ID")
	cfg.Google.ClientSecret = getEnvRequired("GOOGLE_CLIENT_SECRET")
	cfg.Google.TokenURI = getEnv("GOOGLE_TOKEN_URI", defaultTokenURI)
	cfg.Google.CalendarID = strings.TrimSpace(getEnvRequired("GOOGLE_CALENDAR_ID"))
	cfg.Google.TeamAccountEmail = strings.ToLower(strings.TrimSpace(getEnvRequired("GOOGLE_TEAM_ACCOUNT_EMAIL")))
	cfg.Google.RedirectURL = getEnv("GOOGLE_REDIRECT_URL", cfg.Server.BaseURL+"/auth/google/callback")

	// Database configuration
	cfg.Database.Path = getEnv("DATABASE_PATH", "./data/estatecrm.db")

	// Sync configuration
	pushInterval, err := getEnvInt("PUSH_INTERVAL", 300)
	if err != nil {
		return nil, fmt.Errorf("%w: PUSH_INTERVAL: %w", ErrInvalidConfig, err)
	}
	cfg.Sync.PushInterval = time.Duration(pushInterval) * time.Second

	importInterval, err := getEnvInt("IMPORT_INTERVAL", 600)
	if err != nil {
		return nil, fmt.Errorf("%w: IMPORT_INTERVAL: %w", ErrInvalidConfig, err)
	}
	cfg.Sync.ImportInterval = time.Duration(importInterval) * time.Second

	pushLimit, err := getEnvInt("PUSH_LIMIT", 50)
	if err != nil {
		return nil, fmt.Errorf("%w: PUSH_LIMIT: %w", ErrInvalidConfig, err)
	}
	if pushLimit < 1 {
		return nil, fmt.Errorf("%w: PUSH_LIMIT must be positive", ErrInvalidConfig)
	}
	cfg.Sync.PushLimit = pushLimit

	daysBack, err := getEnvInt("IMPORT_DAYS_BACK", 10)
	if err != nil {
		return nil, fmt.Errorf("%w: IMPORT_DAYS_BACK: %w", ErrInvalidConfig, err)
	}
	cfg.Sync.DaysBack = daysBack

	daysForward, err := getEnvInt("IMPORT_DAYS_FORWARD", 60)
	if err != nil {
		return nil, fmt.Errorf("%w: IMPORT_DAYS_FORWARD: %w", ErrInvalidConfig, err)
	}
	cfg.Sync.DaysForward = daysForward

	// Notification configuration (optional - alert jobs are no-ops without SMTP)
	cfg.Notify.SMTPHost = getEnv("SMTP_HOST", "")
	smtpPort, err := getEnvInt("SMTP_PORT", 587)
	if err != nil {
		return nil, fmt.Errorf("%w: SMTP_PORT: %w", ErrInvalidConfig, err)
	}
	cfg.Notify.SMTPPort = smtpPort
	cfg.Notify.SMTPUsername = getEnv("SMTP_USERNAME", "")
	cfg.Notify.SMTPPassword = getEnv("SMTP_PASSWORD", "")
	cfg.Notify.SMTPFrom = getEnv("SMTP_FROM", "")
	cfg.Notify.SMTPTLS = getEnvBool("SMTP_TLS", false)

	leadMinutes, err := getEnvInt("ALERT_LEAD_MINUTES", 60)
	if err != nil {
		return nil, fmt.Errorf("%w: ALERT_LEAD_MINUTES: %w", ErrInvalidConfig, err)
	}
	cfg.Notify.AlertLeadMinutes = leadMinutes

	// Rate limiting configuration
	rps, err := getEnvFloat("RATE_LIMIT_RPS", 10.0)
	if err != nil {
		return nil, fmt.Errorf("%w: RATE_LIMIT_RPS: %w", ErrInvalidConfig, err)
	}
	cfg.RateLimiting.RPS = rps

	burst, err := getEnvInt("RATE_LIMIT_BURST", 20)
	if err != nil {
		return nil, fmt.Errorf("%w: RATE_LIMIT_BURST: %w", ErrInvalidConfig, err)
	}
	cfg.RateLimiting.Burst = burst

	// Check for missing required configuration
	missing := cfg.getMissingRequired()
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	return cfg, nil
}

// getMissingRequired returns a list of missing required configuration values.
func (c *Config) getMissingRequired() []string {
	var missing []string

	if c.Google.ClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if c.Google.ClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}
	if c.Google.CalendarID == "" {
		missing = append(missing, "GOOGLE_CALENDAR_ID")
	}
	if c.Google.TeamAccountEmail == "" {
		missing = append(missing, "GOOGLE_TEAM_ACCOUNT_EMAIL")
	}

	return missing
}

// Validate validates URL formats and the team account email.
func (c *Config) Validate(ctx context.Context) error {
	v := validator.New()

	if err := v.ValidateURL(c.Server.BaseURL, c.IsProduction()); err != nil {
		return fmt.Errorf("%w: BASE_URL: %w", ErrValidationFailed, err)
	}

	if err := v.ValidateURL(c.Google.TokenURI, c.IsProduction()); err != nil {
		return fmt.Errorf("%w: GOOGLE_TOKEN_URI: %w", ErrValidationFailed, err)
	}

	if err := v.ValidateURL(c.Google.RedirectURL, c.IsProduction()); err != nil {
		return fmt.Errorf("%w: GOOGLE_REDIRECT_URL: %w", ErrValidationFailed, err)
	}

	if err := v.ValidateEmail(c.Google.TeamAccountEmail); err != nil {
		return fmt.Errorf("%w: GOOGLE_TEAM_ACCOUNT_EMAIL: %w", ErrValidationFailed, err)
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvRequired returns the value of an environment variable.
// Returns empty string if not set (caller should check for required values).
func getEnvRequired(key string) string {
	return os.Getenv(key)
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	return parsed, nil
}

// getEnvBool returns the boolean value of an environment variable or a default.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvFloat returns the float value of an environment variable or a default.
func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float: %w", err)
	}
	return parsed, nil
}
