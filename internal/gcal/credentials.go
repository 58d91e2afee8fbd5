package gcal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/estateops/estatecrm/internal/config"
	"github.com/estateops/estatecrm/internal/db"
	"golang.org/x/oauth2"
)

var (
	ErrNoTeamAccount  = errors.New("team google account is not configured")
	ErrNotRefreshable = errors.New("credentials are not refreshable")
)

// CalendarScope is the OAuth scope required for event read/write access.
const CalendarScope = "https://www.googleapis.com/auth/calendar"

// expiryLeeway treats tokens expiring within this window as already
// expired, so a token never dies mid-batch.
const expiryLeeway = time.Minute

// Refresher owns the shared team credential record and hands out valid
// access tokens, refreshing and persisting expired ones transparently.
// The mutex serializes refresh-and-persist so two concurrent jobs cannot
// both refresh and race each other writing the token row.
type Refresher struct {
	db     *db.DB
	google config.GoogleConfig

	mu sync.Mutex
}

// NewRefresher creates a refresher for the configured team identity.
func NewRefresher(database *db.DB, google config.GoogleConfig) *Refresher {
	return &Refresher{
		db:     database,
		google: google,
	}
}

// Token returns a valid access token for the team identity.
//
// Fails with ErrNoTeamAccount when the credential record or required
// configuration (calendar id, team account email) is missing, and with
// ErrNotRefreshable when the token is expired and refresh token, token
// endpoint, client id or client secret are absent. Refresh failures are
// never retried here: the caller's operation fails.
func (r *Refresher) Token(ctx context.Context) (*oauth2.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.google.CalendarID == "" || r.google.TeamAccountEmail == "" {
		return nil, fmt.Errorf("%w: GOOGLE_CALENDAR_ID and GOOGLE_TEAM_ACCOUNT_EMAIL are required", ErrNoTeamAccount)
	}

	account, err := r.db.GetTeamAccount(r.google.TeamAccountEmail)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%w: no credential record for %s (run the authorize flow)", ErrNoTeamAccount, r.google.TeamAccountEmail)
	}
	if err != nil {
		return nil, err
	}

	token := tokenFromAccount(account)
	if token.AccessToken != "" && !expired(token) {
		return token, nil
	}

	tokenURI := account.TokenURI
	if tokenURI == "" {
		tokenURI = r.google.TokenURI
	}
	clientID := account.ClientID
	if clientID == "" {
		clientID = r.google.ClientID
	}
	clientSecret := account.ClientSecret
	if clientSecret == "" {
		clientSecret = r.google.ClientSecret
	}

	if account.RefreshToken == "" || tokenURI == "" || clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: refresh token, token endpoint, client id and client secret are required", ErrNotRefreshable)
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: tokenURI,
		},
		Scopes: []string{CalendarScope},
	}

	refreshed, err := conf.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh failed: %w", ErrNotRefreshable, err)
	}

	// Persist the new access token and expiry back onto the existing
	// record (update, not replace).
	var expiry *time.Time
	if !refreshed.Expiry.IsZero() {
		t := refreshed.Expiry.UTC()
		expiry = &t
	}
	if err := r.db.UpdateTeamToken(account.ID, refreshed.AccessToken, expiry); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	log.Printf("Refreshed access token for %s (expires %v)", account.Email, refreshed.Expiry.UTC())
	return refreshed, nil
}

// TokenSource adapts the refresher to oauth2.TokenSource for the calendar
// service constructor.
func (r *Refresher) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &refresherSource{ctx: ctx, r: r}
}

type refresherSource struct {
	ctx context.Context
	r   *Refresher
}

func (s *refresherSource) Token() (*oauth2.Token, error) {
	return s.r.Token(s.ctx)
}

// tokenFromAccount builds an oauth2 token from the stored record, with
// the expiry normalized to UTC.
func tokenFromAccount(account *db.GoogleAccount) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
	}
	if account.TokenExpiry != nil {
		token.Expiry = account.TokenExpiry.UTC()
	}
	return token
}

func expired(token *oauth2.Token) bool {
	if token.Expiry.IsZero() {
		return false
	}
	return token.Expiry.Before(time.Now().Add(expiryLeeway))
}
