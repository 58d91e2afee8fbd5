package gcal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/estateops/estatecrm/internal/config"
	"github.com/estateops/estatecrm/internal/db"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "estatecrm-gcal-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	database, err := db.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func testGoogleConfig() config.GoogleConfig {
	return config.GoogleConfig{
		ClientID:         "client-id",
		ClientSecret:     "client-secret",
		TokenURI:         "https://oauth2.example.com/token",
		CalendarID:       "team-calendar@example.com",
		TeamAccountEmail: "team@example.com",
	}
}

func seedAccount(t *testing.T, database *db.DB, accessToken string, expiry time.Time, refreshToken string) *db.GoogleAccount {
	t.Helper()

	account := &db.GoogleAccount{
		Email:        "team@example.com",
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Scopes:       CalendarScope,
	}
	if !expiry.IsZero() {
		e := expiry.UTC()
		account.TokenExpiry = &e
	}
	if err := database.UpsertTeamAccount(account); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
	loaded, err := database.GetTeamAccount("team@example.com")
	if err != nil {
		t.Fatalf("failed to reload account: %v", err)
	}
	return loaded
}

func TestRefresherToken(t *testing.T) {
	ctx := context.Background()

	t.Run("missing configuration", func(t *testing.T) {
		database := setupTestDB(t)
		cfg := testGoogleConfig()
		cfg.CalendarID = ""

		refresher := NewRefresher(database, cfg)
		if _, err := refresher.Token(ctx); !errors.Is(err, ErrNoTeamAccount) {
			t.Errorf("expected ErrNoTeamAccount, got %v", err)
		}
	})

	t.Run("missing credential record", func(t *testing.T) {
		database := setupTestDB(t)
		refresher := NewRefresher(database, testGoogleConfig())
		if _, err := refresher.Token(ctx); !errors.Is(err, ErrNoTeamAccount) {
			t.Errorf("expected ErrNoTeamAccount, got %v", err)
		}
	})

	t.Run("valid token returned unchanged", func(t *testing.T) {
		database := setupTestDB(t)
		seedAccount(t, database, "still-good", time.Now().Add(time.Hour), "refresh-1")

		refresher := NewRefresher(database, testGoogleConfig())
		token, err := refresher.Token(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token.AccessToken != "still-good" {
			t.Errorf("expected stored token, got %q", token.AccessToken)
		}
	})

	t.Run("expired token without refresh token", func(t *testing.T) {
		database := setupTestDB(t)
		seedAccount(t, database, "expired", time.Now().Add(-time.Hour), "")

		refresher := NewRefresher(database, testGoogleConfig())
		if _, err := refresher.Token(ctx); !errors.Is(err, ErrNotRefreshable) {
			t.Errorf("expected ErrNotRefreshable, got %v", err)
		}
	})

	t.Run("expired token is refreshed and persisted", func(t *testing.T) {
		database := setupTestDB(t)

		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "bad form", http.StatusBadRequest)
				return
			}
			if r.FormValue("grant_type") != "refresh_token" || r.FormValue("refresh_token") != "refresh-1" {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"fresh-token","token_type":"Bearer","expires_in":3600}`))
		}))
		defer tokenServer.Close()

		account := seedAccount(t, database, "expired", time.Now().Add(-time.Hour), "refresh-1")
		if err := database.UpsertTeamAccount(&db.GoogleAccount{
			Email:        account.Email,
			AccessToken:  account.AccessToken,
			RefreshToken: account.RefreshToken,
			TokenURI:     tokenServer.URL,
			ClientID:     account.ClientID,
			ClientSecret: account.ClientSecret,
			TokenExpiry:  account.TokenExpiry,
		}); err != nil {
			t.Fatalf("failed to point account at test server: %v", err)
		}

		refresher := NewRefresher(database, testGoogleConfig())
		token, err := refresher.Token(ctx)
		if err != nil {
			t.Fatalf("refresh failed: %v", err)
		}
		if token.AccessToken != "fresh-token" {
			t.Errorf("expected refreshed token, got %q", token.AccessToken)
		}

		// The new access token must have been written back.
		reloaded, err := database.GetTeamAccount("team@example.com")
		if err != nil {
			t.Fatalf("failed to reload account: %v", err)
		}
		if reloaded.AccessToken != "fresh-token" {
			t.Errorf("expected persisted token, got %q", reloaded.AccessToken)
		}
		if reloaded.TokenExpiry == nil || !reloaded.TokenExpiry.After(time.Now()) {
			t.Errorf("expected future expiry, got %v", reloaded.TokenExpiry)
		}
		if reloaded.RefreshToken != "refresh-1" {
			t.Errorf("expected refresh token preserved, got %q", reloaded.RefreshToken)
		}
	})

	t.Run("token within expiry leeway is refreshed", func(t *testing.T) {
		database := setupTestDB(t)
		seedAccount(t, database, "nearly-dead", time.Now().Add(10*time.Second), "")

		refresher := NewRefresher(database, testGoogleConfig())
		// No refresh token seeded, so hitting the refresh path surfaces
		// ErrNotRefreshable, proving the leeway triggered a refresh.
		if _, err := refresher.Token(ctx); !errors.Is(err, ErrNotRefreshable) {
			t.Errorf("expected ErrNotRefreshable, got %v", err)
		}
	})
}
