package config

import (
	"errors"
	"testing"
	"time"
)

// setRequiredEnv sets the minimal environment needed for Load to succeed.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "client-secret")
	t.Setenv("GOOGLE_CALENDAR_ID", "team@example.com")
	t.Setenv("GOOGLE_TEAM_ACCOUNT_EMAIL", "Team@Example.com")
}

func clearOptionalEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "BASE_URL", "ENVIRONMENT", "GOOGLE_TOKEN_URI",
		"GOOGLE_REDIRECT_URL", "DATABASE_PATH", "PUSH_INTERVAL",
		"IMPORT_INTERVAL", "PUSH_LIMIT", "IMPORT_DAYS_BACK",
		"IMPORT_DAYS_FORWARD", "SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME",
		"SMTP_PASSWORD", "SMTP_FROM", "SMTP_TLS", "ALERT_LEAD_MINUTES",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearOptionalEnv(t)
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.BaseURL != "http://localhost:8080" {
		t.Errorf("unexpected base URL: %s", cfg.Server.BaseURL)
	}
	if cfg.Server.Environment != EnvProduction {
		t.Errorf("expected production environment, got %s", cfg.Server.Environment)
	}
	if cfg.Google.TeamAccountEmail != "team@example.com" {
		t.Errorf("team account email not normalized: %s", cfg.Google.TeamAccountEmail)
	}
	if cfg.Google.RedirectURL != "http://localhost:8080/auth/google/callback" {
		t.Errorf("unexpected redirect URL: %s", cfg.Google.RedirectURL)
	}
	if cfg.Sync.PushInterval != 300*time.Second {
		t.Errorf("expected push interval 300s, got %s", cfg.Sync.PushInterval)
	}
	if cfg.Sync.ImportInterval != 600*time.Second {
		t.Errorf("expected import interval 600s, got %s", cfg.Sync.ImportInterval)
	}
	if cfg.Sync.PushLimit != 50 {
		t.Errorf("expected push limit 50, got %d", cfg.Sync.PushLimit)
	}
	if cfg.Sync.DaysBack != 10 || cfg.Sync.DaysForward != 60 {
		t.Errorf("unexpected import window: back=%d forward=%d", cfg.Sync.DaysBack, cfg.Sync.DaysForward)
	}
	if cfg.Notify.SMTPPort != 587 {
		t.Errorf("expected SMTP port 587, got %d", cfg.Notify.SMTPPort)
	}
	if cfg.Notify.AlertLeadMinutes != 60 {
		t.Errorf("expected alert lead 60 minutes, got %d", cfg.Notify.AlertLeadMinutes)
	}
	if cfg.RateLimiting.RPS != 10.0 || cfg.RateLimiting.Burst != 20 {
		t.Errorf("unexpected rate limits: rps=%f burst=%d", cfg.RateLimiting.RPS, cfg.RateLimiting.Burst)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	clearOptionalEnv(t)
	setRequiredEnv(t)
	t.Setenv("GOOGLE_CLIENT_SECRET", "")
	t.Setenv("GOOGLE_CALENDAR_ID", "")

	_, err := Load()
	if !errors.Is(err, ErrMissingConfig) {
		t.Fatalf("expected ErrMissingConfig, got %v", err)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	t.Run("non-numeric port", func(t *testing.T) {
		clearOptionalEnv(t)
		setRequiredEnv(t)
		t.Setenv("PORT", "not-a-port")

		_, err := Load()
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("zero push limit", func(t *testing.T) {
		clearOptionalEnv(t)
		setRequiredEnv(t)
		t.Setenv("PUSH_LIMIT", "0")

		_, err := Load()
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestIsProduction(t *testing.T) {
	clearOptionalEnv(t)
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "Development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.IsProduction() {
		t.Error("development environment reported as production")
	}
}
