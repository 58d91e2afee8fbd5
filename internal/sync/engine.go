package sync

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"

	"github.com/estateops/estatecrm/internal/db"
	"github.com/estateops/estatecrm/internal/gcal"
)

// Calendar is the slice of the external calendar API the engine needs.
// *gcal.Client satisfies it; tests substitute a fake.
type Calendar interface {
	ListEventsBetween(ctx context.Context, from, to time.Time) ([]*calendar.Event, error)
	InsertEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error)
	PatchEvent(ctx context.Context, eventID string, event *calendar.Event) (*calendar.Event, error)
}

// CredentialSource yields a usable access token for the team account.
// *gcal.Refresher satisfies it.
type CredentialSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// Engine runs the bidirectional synchronization between local
// appointments and the team calendar.
type Engine struct {
	db    *db.DB
	cal   Calendar
	creds CredentialSource
	now   func() time.Time
}

// NewEngine creates a sync engine. creds may be nil, in which case the
// credential preflight is skipped and failures surface per item.
func NewEngine(database *db.DB, cal Calendar, creds CredentialSource) *Engine {
	return &Engine{
		db:    database,
		cal:   cal,
		creds: creds,
		now:   time.Now,
	}
}

// PushResult summarizes one outbound batch.
type PushResult struct {
	Checked int `json:"checked"`
	Pushed  int `json:"pushed"`
	Errors  int `json:"errors"`
}

// ImportResult summarizes one inbound run.
type ImportResult struct {
	Agent   string `json:"agent"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
}

// preflight fails fast when the team account is not configured at all.
// Token-refresh failures are left for the per-item path so a transient
// refresh problem does not hide which items were affected.
func (e *Engine) preflight(ctx context.Context) error {
	if e.creds == nil {
		return nil
	}
	if _, err := e.creds.Token(ctx); err != nil {
		if errors.Is(err, gcal.ErrNoTeamAccount) {
			return err
		}
	}
	return nil
}
