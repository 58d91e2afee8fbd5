package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

var ErrMissingCalendarID = errors.New("calendar id is required")

// Client wraps the Google Calendar API for one shared team calendar.
type Client struct {
	svc        *calendar.Service
	calendarID string
}

// NewClient creates a calendar client authenticated by the given token
// source. Extra options are appended so tests can point the service at a
// local server.
func NewClient(ctx context.Context, ts oauth2.TokenSource, calendarID string, opts ...option.ClientOption) (*Client, error) {
	if calendarID == "" {
		return nil, ErrMissingCalendarID
	}

	allOpts := append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	svc, err := calendar.NewService(ctx, allOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &Client{
		svc:        svc,
		calendarID: calendarID,
	}, nil
}

// ListEventsBetween returns all events whose time range intersects
// [from, to], in start order. Recurring events are expanded into
// individual instances.
func (c *Client) ListEventsBetween(ctx context.Context, from, to time.Time) ([]*calendar.Event, error) {
	var events []*calendar.Event

	call := c.svc.Events.List(c.calendarID).
		TimeMin(from.UTC().Format(time.RFC3339)).
		TimeMax(to.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250)

	err := call.Pages(ctx, func(page *calendar.Events) error {
		events = append(events, page.Items...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return events, nil
}

// InsertEvent creates a new event on the team calendar.
func (c *Client) InsertEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error) {
	created, err := c.svc.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}
	return created, nil
}

// PatchEvent updates an existing event. Patch semantics: only the supplied
// fields are touched on the external side.
func (c *Client) PatchEvent(ctx context.Context, eventID string, event *calendar.Event) (*calendar.Event, error) {
	patched, err := c.svc.Events.Patch(c.calendarID, eventID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to patch event %s: %w", eventID, err)
	}
	return patched, nil
}
