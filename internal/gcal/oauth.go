package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/estateops/estatecrm/internal/config"
	"github.com/estateops/estatecrm/internal/db"
	"golang.org/x/oauth2"
)

var ErrCodeExchange = errors.New("authorization code exchange failed")

const googleAuthURL = "https://accounts.google.com/o/oauth2/auth"

// OAuthFlow implements the interactive bootstrap that populates the team
// credential record once per shared identity. The sync engine itself only
// refreshes; it never runs this flow.
type OAuthFlow struct {
	db     *db.DB
	google config.GoogleConfig
	conf   *oauth2.Config
}

// NewOAuthFlow creates the bootstrap flow from the Google client config.
func NewOAuthFlow(database *db.DB, google config.GoogleConfig) *OAuthFlow {
	return &OAuthFlow{
		db:     database,
		google: google,
		conf: &oauth2.Config{
			ClientID:     google.ClientID,
			ClientSecret: google.ClientSecret,
			RedirectURL:  google.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  googleAuthURL,
				TokenURL: google.TokenURI,
			},
			Scopes: []string{CalendarScope},
		},
	}
}

// AuthCodeURL returns the URL to send the administrator to. Offline access
// with forced consent is required or Google will not return a refresh
// token for an already-authorized client.
func (f *OAuthFlow) AuthCodeURL(state string) string {
	return f.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades the authorization code for tokens and persists the team
// credential record. An existing refresh token is kept when the exchange
// does not return a new one.
func (f *OAuthFlow) Exchange(ctx context.Context, code string) (*db.GoogleAccount, error) {
	token, err := f.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCodeExchange, err)
	}

	account := &db.GoogleAccount{
		Email:        f.google.TeamAccountEmail,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenURI:     f.google.TokenURI,
		ClientID:     f.google.ClientID,
		ClientSecret: f.google.ClientSecret,
		Scopes:       CalendarScope,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		account.TokenExpiry = &expiry
	}

	if account.RefreshToken == "" {
		existing, err := f.db.GetTeamAccount(f.google.TeamAccountEmail)
		if err == nil {
			account.RefreshToken = existing.RefreshToken
		} else if !errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
	}

	if err := f.db.UpsertTeamAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// TokenExpiresIn reports how long the account's access token remains
// valid, for the authorize command's output.
func TokenExpiresIn(account *db.GoogleAccount) time.Duration {
	if account.TokenExpiry == nil {
		return 0
	}
	return time.Until(account.TokenExpiry.UTC())
}
