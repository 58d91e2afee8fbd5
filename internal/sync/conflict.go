package sync

import (
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/estateops/estatecrm/internal/db"
)

// ShouldPreferRemote decides whether an imported event may overwrite a
// local appointment that already tracks it. Local edits always win: an
// appointment in the local state is never touched by import. Otherwise
// the remote copy wins only when its last-modified timestamp is strictly
// newer than the local one. When either timestamp is missing or
// unparsable the local copy is kept.
func ShouldPreferRemote(event *calendar.Event, appt *db.Appointment) bool {
	if appt.SyncState == db.SyncStateLocal {
		return false
	}
	if event.Updated == "" || appt.UpdatedAt.IsZero() {
		return false
	}
	remote, err := time.Parse(time.RFC3339, event.Updated)
	if err != nil {
		return false
	}
	return remote.UTC().After(appt.UpdatedAt.UTC())
}
