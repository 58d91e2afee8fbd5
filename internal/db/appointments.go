package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const appointmentColumns = `id, title, start_at, end_at, location, notes,
	agent_id, contact_id, property_id, sync_state, google_event_id, google_etag,
	last_synced_at, sync_error, alerted_at, created_at, updated_at`

// SaveAppointment inserts or updates an appointment. The source tag drives
// the change-tracking rule: a user edit marks the record local (pending
// push) and clears last_synced_at unless it is already local; an import
// save writes the sync fields exactly as given and never re-marks the
// record dirty.
func (db *DB) SaveAppointment(appt *Appointment, source SaveSource) error {
	return saveAppointment(db.conn, appt, source)
}

// SaveAppointment is the transactional variant used by import.
func (t *Tx) SaveAppointment(appt *Appointment, source SaveSource) error {
	return saveAppointment(t.tx, appt, source)
}

func saveAppointment(q queryable, appt *Appointment, source SaveSource) error {
	now := time.Now().UTC()

	if source == SaveSourceUserEdit && appt.SyncState != SyncStateLocal {
		appt.SyncState = SyncStateLocal
		appt.LastSyncedAt = nil
	}
	if appt.SyncState == "" {
		appt.SyncState = SyncStateLocal
	}

	if appt.ID == "" {
		appt.ID = uuid.New().String()
		appt.CreatedAt = now
		appt.UpdatedAt = now

		query := `INSERT INTO appointments (` + appointmentColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := q.Exec(query,
			appt.ID, appt.Title, appt.Start, appt.End, appt.Location, appt.Notes,
			appt.AgentID, appt.ContactID, appt.PropertyID,
			appt.SyncState, appt.GoogleEventID, appt.GoogleETag,
			appt.LastSyncedAt, appt.SyncError, appt.AlertedAt,
			appt.CreatedAt, appt.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}
		return nil
	}

	appt.UpdatedAt = now

	query := `UPDATE appointments SET title = ?, start_at = ?, end_at = ?, location = ?, notes = ?,
		agent_id = ?, contact_id = ?, property_id = ?,
		sync_state = ?, google_event_id = ?, google_etag = ?,
		last_synced_at = ?, sync_error = ?, updated_at = ?
		WHERE id = ?`
	result, err := q.Exec(query,
		appt.Title, appt.Start, appt.End, appt.Location, appt.Notes,
		appt.AgentID, appt.ContactID, appt.PropertyID,
		appt.SyncState, appt.GoogleEventID, appt.GoogleETag,
		appt.LastSyncedAt, appt.SyncError, appt.UpdatedAt,
		appt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return requireAffected(result)
}

// GetAppointmentByID returns an appointment by its ID.
func (db *DB) GetAppointmentByID(id string) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = ?`
	return scanAppointmentRow(db.conn.QueryRow(query, id))
}

// GetAppointmentByEventID returns the appointment joined to the given
// external event id, or ErrNotFound.
func (db *DB) GetAppointmentByEventID(eventID string) (*Appointment, error) {
	return getAppointmentByEventID(db.conn, eventID)
}

// GetAppointmentByEventID is the transactional variant used by import:
// inside the write transaction the matched row stays ours until commit.
func (t *Tx) GetAppointmentByEventID(eventID string) (*Appointment, error) {
	return getAppointmentByEventID(t.tx, eventID)
}

func getAppointmentByEventID(q queryable, eventID string) (*Appointment, error) {
	if eventID == "" {
		return nil, ErrNotFound
	}
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE google_event_id = ?`
	return scanAppointmentRow(q.QueryRow(query, eventID))
}

// ListAppointments returns appointments intersecting the given window,
// most recent first. Zero times disable the bound.
func (db *DB) ListAppointments(from, to time.Time) ([]*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	var args []any
	switch {
	case !from.IsZero() && !to.IsZero():
		query += ` WHERE start_at >= ? AND start_at <= ?`
		args = append(args, from.UTC(), to.UTC())
	case !from.IsZero():
		query += ` WHERE start_at >= ?`
		args = append(args, from.UTC())
	case !to.IsZero():
		query += ` WHERE start_at <= ?`
		args = append(args, to.UTC())
	}
	query += ` ORDER BY start_at DESC`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListPendingPush returns appointments awaiting outbound push, ordered by
// id ascending so batches are deterministic, capped at limit.
func (db *DB) ListPendingPush(limit int) ([]*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE sync_state = ? ORDER BY id ASC LIMIT ?`

	rows, err := db.conn.Query(query, SyncStateLocal, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending appointments: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListUpcomingUnalerted returns appointments starting inside the lead
// window that have not yet been alerted.
func (db *DB) ListUpcomingUnalerted(from, to time.Time) ([]*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE start_at IS NOT NULL AND start_at >= ? AND start_at <= ? AND alerted_at IS NULL
		ORDER BY start_at ASC`

	rows, err := db.conn.Query(query, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming appointments: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// MarkSynced records a successful push: synced state, cleared error, the
// returned event id and revision tag, and the sync time.
func (db *DB) MarkSynced(id, eventID, etag string, at time.Time) error {
	query := `UPDATE appointments SET sync_state = ?, sync_error = '', google_event_id = ?, google_etag = ?, last_synced_at = ?
		WHERE id = ?`
	result, err := db.conn.Exec(query, SyncStateSynced, eventID, etag, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark appointment synced: %w", err)
	}
	return requireAffected(result)
}

// MarkSyncError records a failed push without touching the appointment's
// content fields.
func (db *DB) MarkSyncError(id, message string, at time.Time) error {
	query := `UPDATE appointments SET sync_state = ?, sync_error = ?, last_synced_at = ? WHERE id = ?`
	result, err := db.conn.Exec(query, SyncStateError, message, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark appointment errored: %w", err)
	}
	return requireAffected(result)
}

// MarkAlerted records that an upcoming-appointment alert was sent.
func (db *DB) MarkAlerted(id string, at time.Time) error {
	result, err := db.conn.Exec(`UPDATE appointments SET alerted_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark appointment alerted: %w", err)
	}
	return requireAffected(result)
}

// DeleteAppointment deletes an appointment.
func (db *DB) DeleteAppointment(id string) error {
	result, err := db.conn.Exec(`DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return requireAffected(result)
}

// scanAppointmentRow scans a single row into an Appointment struct.
func scanAppointmentRow(row *sql.Row) (*Appointment, error) {
	appt := &Appointment{}
	var start, end, lastSyncedAt, alertedAt sql.NullTime
	var agentID, contactID, propertyID sql.NullString

	err := row.Scan(
		&appt.ID, &appt.Title, &start, &end, &appt.Location, &appt.Notes,
		&agentID, &contactID, &propertyID,
		&appt.SyncState, &appt.GoogleEventID, &appt.GoogleETag,
		&lastSyncedAt, &appt.SyncError, &alertedAt,
		&appt.CreatedAt, &appt.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan appointment: %w", err)
	}

	applyAppointmentNulls(appt, start, end, lastSyncedAt, alertedAt, agentID, contactID, propertyID)
	return appt, nil
}

func scanAppointments(rows *sql.Rows) ([]*Appointment, error) {
	var appts []*Appointment
	for rows.Next() {
		appt := &Appointment{}
		var start, end, lastSyncedAt, alertedAt sql.NullTime
		var agentID, contactID, propertyID sql.NullString

		err := rows.Scan(
			&appt.ID, &appt.Title, &start, &end, &appt.Location, &appt.Notes,
			&agentID, &contactID, &propertyID,
			&appt.SyncState, &appt.GoogleEventID, &appt.GoogleETag,
			&lastSyncedAt, &appt.SyncError, &alertedAt,
			&appt.CreatedAt, &appt.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}

		applyAppointmentNulls(appt, start, end, lastSyncedAt, alertedAt, agentID, contactID, propertyID)
		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating appointments: %w", err)
	}
	return appts, nil
}

func applyAppointmentNulls(appt *Appointment, start, end, lastSyncedAt, alertedAt sql.NullTime, agentID, contactID, propertyID sql.NullString) {
	if start.Valid {
		t := start.Time.UTC()
		appt.Start = &t
	}
	if end.Valid {
		t := end.Time.UTC()
		appt.End = &t
	}
	if lastSyncedAt.Valid {
		t := lastSyncedAt.Time.UTC()
		appt.LastSyncedAt = &t
	}
	if alertedAt.Valid {
		t := alertedAt.Time.UTC()
		appt.AlertedAt = &t
	}
	if agentID.Valid {
		appt.AgentID = &agentID.String
	}
	if contactID.Valid {
		appt.ContactID = &contactID.String
	}
	if propertyID.Valid {
		appt.PropertyID = &propertyID.String
	}
}
