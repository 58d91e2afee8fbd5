package db

import (
	"time"
)

// SyncState expresses which side last authored an appointment's content.
type SyncState string

const (
	// SyncStateLocal marks an appointment edited locally and not yet pushed.
	// A local appointment is authoritative: import never overwrites it.
	SyncStateLocal SyncState = "local"
	// SyncStateSynced marks an appointment whose content matches the
	// external calendar event.
	SyncStateSynced SyncState = "synced"
	// SyncStateError marks an appointment whose last push failed.
	SyncStateError SyncState = "error"
)

// ValidSyncStates contains all valid sync state values.
var ValidSyncStates = map[SyncState]bool{
	SyncStateLocal:  true,
	SyncStateSynced: true,
	SyncStateError:  true,
}

// IsValid returns true if the sync state is a known valid value.
func (s SyncState) IsValid() bool {
	return ValidSyncStates[s]
}

// SaveSource identifies the write path saving an appointment. The
// change-tracking rule keys off this tag: user edits mark the record
// local (pending push), import saves do not.
type SaveSource string

const (
	SaveSourceUserEdit SaveSource = "user_edit"
	SaveSourceImport   SaveSource = "import"
)

// SyncDirection identifies which half of the engine produced a sync log.
type SyncDirection string

const (
	SyncDirectionPush   SyncDirection = "push"
	SyncDirectionImport SyncDirection = "import"
)

// SyncStatus represents the outcome of a sync run.
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusPartial SyncStatus = "partial" // Run completed with per-item errors
	SyncStatusError   SyncStatus = "error"   // Run failed due to critical error
)

// Agent represents a real-estate agent. Email is the upsert key on import
// and the recipient for alert emails; ColorID is the Google Calendar color
// ("1".."11") applied to the agent's events.
type Agent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	ColorID   string    `json:"color_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contact represents a prospective buyer or seller.
type Contact struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Property represents a listed property. Code is the unique business code
// used as the upsert key on import.
type Property struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Appointment represents a viewing or meeting. The sync fields are a fixed
// part of the schema: GoogleEventID joins the record to its external event,
// SyncState says which side is authoritative.
type Appointment struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Start         *time.Time `json:"start"`
	End           *time.Time `json:"end"`
	Location      string     `json:"location"`
	Notes         string     `json:"notes"`
	AgentID       *string    `json:"agent_id"`
	ContactID     *string    `json:"contact_id"`
	PropertyID    *string    `json:"property_id"`
	SyncState     SyncState  `json:"sync_state"`
	GoogleEventID string     `json:"google_event_id"`
	GoogleETag    string     `json:"google_etag"`
	LastSyncedAt  *time.Time `json:"last_synced_at"`
	SyncError     string     `json:"sync_error"`
	AlertedAt     *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TodoItem represents a to-do entry for an agent.
type TodoItem struct {
	ID        string     `json:"id"`
	AgentID   string     `json:"agent_id"`
	Title     string     `json:"title"`
	DueAt     *time.Time `json:"due_at"`
	IsDone    bool       `json:"is_done"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// GoogleAccount is the credential record for the shared team calendar
// identity. TokenExpiry is stored as UTC.
type GoogleAccount struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	AccessToken  string     `json:"-"` // Never include in JSON
	RefreshToken string     `json:"-"` // Never include in JSON
	TokenURI     string     `json:"token_uri"`
	ClientID     string     `json:"-"`
	ClientSecret string     `json:"-"`
	Scopes       string     `json:"scopes"`
	TokenExpiry  *time.Time `json:"token_expiry"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// SyncLog represents a log entry for a push or import run.
type SyncLog struct {
	ID           string        `json:"id"`
	Direction    SyncDirection `json:"direction"`
	Status       SyncStatus    `json:"status"`
	Message      string        `json:"message"`
	Details      string        `json:"details"`
	ItemsChecked int           `json:"items_checked"`
	ItemsCreated int           `json:"items_created"`
	ItemsUpdated int           `json:"items_updated"`
	ItemsSkipped int           `json:"items_skipped"`
	ItemsErrored int           `json:"items_errored"`
	Duration     time.Duration `json:"duration"`
	CreatedAt    time.Time     `json:"created_at"`
}
