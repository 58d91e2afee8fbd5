package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/estateops/estatecrm/internal/db"
)

// ImportForAgent pulls events from the team calendar inside the window
// [now-daysBack, now+daysForward] and mirrors the CRM-managed ones into
// local appointments. All local writes happen inside a single
// transaction: either the whole run lands or none of it does. Events
// without a metadata block belong to someone else and are skipped, as
// are tracked appointments the resolver decides to keep.
func (e *Engine) ImportForAgent(ctx context.Context, agent *db.Agent, daysBack, daysForward int) (*ImportResult, error) {
	result := &ImportResult{}
	if agent != nil {
		result.Agent = agent.Email
	}

	if err := e.preflight(ctx); err != nil {
		return result, err
	}

	now := e.now()
	from := now.AddDate(0, 0, -daysBack)
	to := now.AddDate(0, 0, daysForward)

	events, err := e.cal.ListEventsBetween(ctx, from, to)
	if err != nil {
		return result, fmt.Errorf("failed to list calendar events: %w", err)
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return result, err
	}
	defer tx.Rollback()

	for _, event := range events {
		meta, ok := DecodeDescription(event.Description)
		if !ok {
			result.Skipped++
			continue
		}
		if err := e.importEvent(tx, event, meta, now, result); err != nil {
			return &ImportResult{Agent: result.Agent}, fmt.Errorf("import aborted on event %s: %w", event.Id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return &ImportResult{Agent: result.Agent}, err
	}
	return result, nil
}

func (e *Engine) importEvent(tx *db.Tx, event *calendar.Event, meta EventMeta, now time.Time, result *ImportResult) error {
	if meta.AgentEmail == "" {
		log.Printf("Skipping event %s: metadata block has no agent email", event.Id)
		result.Skipped++
		return nil
	}

	start := parseEventTime(event.Start)
	end := parseEventTime(event.End)
	if start == nil && end == nil {
		log.Printf("Skipping event %s: no parseable start or end time", event.Id)
		result.Skipped++
		return nil
	}

	owner, err := tx.GetOrCreateAgentByEmail(meta.AgentEmail)
	if err != nil {
		return err
	}

	var propertyID *string
	if meta.PropertyCode != "" || meta.PropertyAddress != "" {
		property, err := tx.GetOrCreatePropertyByCode(meta.PropertyCode, meta.PropertyAddress)
		if err != nil {
			return err
		}
		propertyID = &property.ID
	}

	var contactID *string
	contact, err := tx.GetOrCreateContact(meta.ContactName, meta.ContactEmail, meta.ContactPhone)
	if err != nil {
		return err
	}
	if contact != nil {
		contactID = &contact.ID
	}

	title := event.Summary
	if title == "" {
		title = defaultEventTitle
	}

	existing, err := tx.GetAppointmentByEventID(event.Id)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			return err
		}
		existing = nil
	}

	if existing == nil {
		appt := &db.Appointment{
			Title:         title,
			Start:         start,
			End:           end,
			Location:      event.Location,
			AgentID:       &owner.ID,
			ContactID:     contactID,
			PropertyID:    propertyID,
			SyncState:     db.SyncStateSynced,
			GoogleEventID: event.Id,
			GoogleETag:    event.Etag,
			LastSyncedAt:  &now,
		}
		if err := tx.SaveAppointment(appt, db.SaveSourceImport); err != nil {
			return err
		}
		result.Created++
		return nil
	}

	if !ShouldPreferRemote(event, existing) {
		result.Skipped++
		return nil
	}

	existing.Title = title
	existing.Start = start
	existing.End = end
	existing.Location = event.Location
	existing.AgentID = &owner.ID
	existing.ContactID = contactID
	existing.PropertyID = propertyID
	existing.SyncState = db.SyncStateSynced
	existing.GoogleETag = event.Etag
	existing.LastSyncedAt = &now
	existing.SyncError = ""

	if err := tx.SaveAppointment(existing, db.SaveSourceImport); err != nil {
		return err
	}
	result.Updated++
	return nil
}

// parseEventTime converts a calendar event boundary to UTC. All-day
// events carry a bare date, which maps to midnight UTC.
func parseEventTime(edt *calendar.EventDateTime) *time.Time {
	if edt == nil {
		return nil
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return nil
		}
		t = t.UTC()
		return &t
	}
	if edt.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", edt.Date, time.UTC)
		if err != nil {
			return nil
		}
		return &t
	}
	return nil
}
