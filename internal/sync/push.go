package sync

import (
	"context"
	"errors"
	"log"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/estateops/estatecrm/internal/db"
)

var errMissingTimes = errors.New("appointment has no start or end time")

const defaultEventTitle = "Appointment"

// PushPending pushes up to limit appointments still in the local state to
// the team calendar, oldest first. Each item is handled independently: a
// failure marks that appointment with the error state and message, and
// the batch moves on. Only a missing team account aborts the whole batch.
func (e *Engine) PushPending(ctx context.Context, limit int) (*PushResult, error) {
	result := &PushResult{}

	if err := e.preflight(ctx); err != nil {
		return result, err
	}

	appts, err := e.db.ListPendingPush(limit)
	if err != nil {
		return result, err
	}

	for _, appt := range appts {
		result.Checked++
		if err := e.pushOne(ctx, appt); err != nil {
			result.Errors++
			log.Printf("Push failed for appointment %s: %v", appt.ID, err)
			if markErr := e.db.MarkSyncError(appt.ID, err.Error(), e.now()); markErr != nil {
				log.Printf("Failed to record sync error for appointment %s: %v", appt.ID, markErr)
			}
			continue
		}
		result.Pushed++
	}

	return result, nil
}

func (e *Engine) pushOne(ctx context.Context, appt *db.Appointment) error {
	if appt.Start == nil || appt.End == nil {
		return errMissingTimes
	}

	agent, err := e.loadAgent(appt.AgentID)
	if err != nil {
		return err
	}
	property, err := e.loadProperty(appt.PropertyID)
	if err != nil {
		return err
	}
	contact, err := e.loadContact(appt.ContactID)
	if err != nil {
		return err
	}

	title := appt.Title
	if title == "" {
		title = defaultEventTitle
	}

	body := &calendar.Event{
		Summary:     title,
		Description: EncodeDescription(appt, agent, property, contact),
		Location:    appt.Location,
		Start:       &calendar.EventDateTime{DateTime: appt.Start.UTC().Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: appt.End.UTC().Format(time.RFC3339)},
	}
	if agent != nil && agent.ColorID != "" {
		body.ColorId = agent.ColorID
	}

	var event *calendar.Event
	if appt.GoogleEventID != "" {
		event, err = e.cal.PatchEvent(ctx, appt.GoogleEventID, body)
	} else {
		event, err = e.cal.InsertEvent(ctx, body)
	}
	if err != nil {
		return err
	}

	eventID := event.Id
	if eventID == "" {
		eventID = appt.GoogleEventID
	}
	return e.db.MarkSynced(appt.ID, eventID, event.Etag, e.now())
}

// Reference rows may have been deleted since the appointment was saved;
// a dangling id is treated the same as no reference at all.
func (e *Engine) loadAgent(id *string) (*db.Agent, error) {
	if id == nil {
		return nil, nil
	}
	agent, err := e.db.GetAgentByID(*id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	return agent, err
}

func (e *Engine) loadProperty(id *string) (*db.Property, error) {
	if id == nil {
		return nil, nil
	}
	property, err := e.db.GetPropertyByID(*id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	return property, err
}

func (e *Engine) loadContact(id *string) (*db.Contact, error) {
	if id == nil {
		return nil, nil
	}
	contact, err := e.db.GetContactByID(*id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	return contact, err
}
