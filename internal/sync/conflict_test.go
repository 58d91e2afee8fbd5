package sync

import (
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/estateops/estatecrm/internal/db"
)

func TestShouldPreferRemote(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		state     db.SyncState
		remote    string
		localUpd  time.Time
		preferRem bool
	}{
		{
			name:      "local state always wins",
			state:     db.SyncStateLocal,
			remote:    base.Add(time.Hour).Format(time.RFC3339),
			localUpd:  base,
			preferRem: false,
		},
		{
			name:      "remote strictly newer",
			state:     db.SyncStateSynced,
			remote:    base.Add(time.Minute).Format(time.RFC3339),
			localUpd:  base,
			preferRem: true,
		},
		{
			name:      "remote older",
			state:     db.SyncStateSynced,
			remote:    base.Add(-time.Minute).Format(time.RFC3339),
			localUpd:  base,
			preferRem: false,
		},
		{
			name:      "equal timestamps keep local",
			state:     db.SyncStateSynced,
			remote:    base.Format(time.RFC3339),
			localUpd:  base,
			preferRem: false,
		},
		{
			name:      "missing remote timestamp keeps local",
			state:     db.SyncStateSynced,
			remote:    "",
			localUpd:  base,
			preferRem: false,
		},
		{
			name:      "unparsable remote timestamp keeps local",
			state:     db.SyncStateSynced,
			remote:    "not-a-time",
			localUpd:  base,
			preferRem: false,
		},
		{
			name:      "missing local timestamp keeps local",
			state:     db.SyncStateSynced,
			remote:    base.Format(time.RFC3339),
			preferRem: false,
		},
		{
			name:      "error state behaves like synced",
			state:     db.SyncStateError,
			remote:    base.Add(time.Minute).Format(time.RFC3339),
			localUpd:  base,
			preferRem: true,
		},
		{
			name:      "fractional seconds parse",
			state:     db.SyncStateSynced,
			remote:    "2026-03-14T10:00:01.123Z",
			localUpd:  base,
			preferRem: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			event := &calendar.Event{Updated: tc.remote}
			appt := &db.Appointment{SyncState: tc.state, UpdatedAt: tc.localUpd}
			if got := ShouldPreferRemote(event, appt); got != tc.preferRem {
				t.Errorf("ShouldPreferRemote() = %v, want %v", got, tc.preferRem)
			}
		})
	}
}
