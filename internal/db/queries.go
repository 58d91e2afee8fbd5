package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Agents

// CreateAgent creates a new agent.
func (db *DB) CreateAgent(agent *Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.New().String()
	}
	agent.Email = strings.ToLower(strings.TrimSpace(agent.Email))
	agent.CreatedAt = time.Now().UTC()
	agent.UpdatedAt = agent.CreatedAt

	query := `INSERT INTO agents (id, name, email, color_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := db.conn.Exec(query, agent.ID, agent.Name, agent.Email, agent.ColorID, agent.CreatedAt, agent.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

// GetAgentByID returns an agent by its ID.
func (db *DB) GetAgentByID(id string) (*Agent, error) {
	return getAgent(db.conn, `SELECT id, name, email, color_id, created_at, updated_at FROM agents WHERE id = ?`, id)
}

// GetAgentByEmail returns an agent by email.
func (db *DB) GetAgentByEmail(email string) (*Agent, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return getAgent(db.conn, `SELECT id, name, email, color_id, created_at, updated_at FROM agents WHERE email = ?`, email)
}

func getAgent(q queryable, query string, arg any) (*Agent, error) {
	agent := &Agent{}
	err := q.QueryRow(query, arg).Scan(&agent.ID, &agent.Name, &agent.Email, &agent.ColorID, &agent.CreatedAt, &agent.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return agent, nil
}

// ListAgents returns all agents ordered by name.
func (db *DB) ListAgents() ([]*Agent, error) {
	rows, err := db.conn.Query(`SELECT id, name, email, color_id, created_at, updated_at FROM agents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}
	defer rows.Close()

	var agents []*Agent
	for rows.Next() {
		agent := &Agent{}
		if err := rows.Scan(&agent.ID, &agent.Name, &agent.Email, &agent.ColorID, &agent.CreatedAt, &agent.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agents: %w", err)
	}
	return agents, nil
}

// UpdateAgent updates an existing agent.
func (db *DB) UpdateAgent(agent *Agent) error {
	agent.Email = strings.ToLower(strings.TrimSpace(agent.Email))
	agent.UpdatedAt = time.Now().UTC()

	query := `UPDATE agents SET name = ?, email = ?, color_id = ?, updated_at = ? WHERE id = ?`
	result, err := db.conn.Exec(query, agent.Name, agent.Email, agent.ColorID, agent.UpdatedAt, agent.ID)
	if err != nil {
		return fmt.Errorf("failed to update agent: %w", err)
	}
	return requireAffected(result)
}

// DeleteAgent deletes an agent. Appointments referencing it keep existing
// with a nulled agent reference.
func (db *DB) DeleteAgent(id string) error {
	result, err := db.conn.Exec(`DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	return requireAffected(result)
}

// GetOrCreateAgentByEmail returns the agent with the given email, creating
// one if absent. The name of a created agent defaults to the local part of
// the email.
func (db *DB) GetOrCreateAgentByEmail(email string) (*Agent, error) {
	return getOrCreateAgentByEmail(db.conn, email)
}

// GetOrCreateAgentByEmail is the transactional variant used by import.
func (t *Tx) GetOrCreateAgentByEmail(email string) (*Agent, error) {
	return getOrCreateAgentByEmail(t.tx, email)
}

func getOrCreateAgentByEmail(q queryable, email string) (*Agent, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("agent email is required")
	}

	agent, err := getAgent(q, `SELECT id, name, email, color_id, created_at, updated_at FROM agents WHERE email = ?`, email)
	if err == nil {
		return agent, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	name := email
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}

	agent = &Agent{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	query := `INSERT INTO agents (id, name, email, color_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := q.Exec(query, agent.ID, agent.Name, agent.Email, agent.ColorID, agent.CreatedAt, agent.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	return agent, nil
}

// ---------------------------------------------------------------------------
// Contacts

// CreateContact creates a new contact.
func (db *DB) CreateContact(contact *Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	contact.Email = strings.ToLower(strings.TrimSpace(contact.Email))
	contact.CreatedAt = time.Now().UTC()
	contact.UpdatedAt = contact.CreatedAt

	query := `INSERT INTO contacts (id, full_name, email, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := db.conn.Exec(query, contact.ID, contact.FullName, contact.Email, contact.Phone, contact.CreatedAt, contact.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

// GetContactByID returns a contact by its ID.
func (db *DB) GetContactByID(id string) (*Contact, error) {
	return getContact(db.conn, `SELECT id, full_name, email, phone, created_at, updated_at FROM contacts WHERE id = ?`, id)
}

func getContact(q queryable, query string, args ...any) (*Contact, error) {
	contact := &Contact{}
	err := q.QueryRow(query, args...).Scan(&contact.ID, &contact.FullName, &contact.Email, &contact.Phone, &contact.CreatedAt, &contact.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return contact, nil
}

// ListContacts returns all contacts ordered by name.
func (db *DB) ListContacts() ([]*Contact, error) {
	rows, err := db.conn.Query(`SELECT id, full_name, email, phone, created_at, updated_at FROM contacts ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*Contact
	for rows.Next() {
		contact := &Contact{}
		if err := rows.Scan(&contact.ID, &contact.FullName, &contact.Email, &contact.Phone, &contact.CreatedAt, &contact.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}
	return contacts, nil
}

// UpdateContact updates an existing contact.
func (db *DB) UpdateContact(contact *Contact) error {
	contact.Email = strings.ToLower(strings.TrimSpace(contact.Email))
	contact.UpdatedAt = time.Now().UTC()

	query := `UPDATE contacts SET full_name = ?, email = ?, phone = ?, updated_at = ? WHERE id = ?`
	result, err := db.conn.Exec(query, contact.FullName, contact.Email, contact.Phone, contact.UpdatedAt, contact.ID)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	return requireAffected(result)
}

// DeleteContact deletes a contact.
func (db *DB) DeleteContact(id string) error {
	result, err := db.conn.Exec(`DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	return requireAffected(result)
}

// GetOrCreateContact resolves a contact by email when present, else by
// (name, phone). Newly-arriving non-empty fields are patched onto the
// stored record. Returns nil without error when all fields are empty.
func (db *DB) GetOrCreateContact(name, email, phone string) (*Contact, error) {
	return getOrCreateContact(db.conn, name, email, phone)
}

// GetOrCreateContact is the transactional variant used by import.
func (t *Tx) GetOrCreateContact(name, email, phone string) (*Contact, error) {
	return getOrCreateContact(t.tx, name, email, phone)
}

func getOrCreateContact(q queryable, name, email, phone string) (*Contact, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)

	if name == "" && email == "" && phone == "" {
		return nil, nil
	}

	var contact *Contact
	var err error
	if email != "" {
		contact, err = getContact(q, `SELECT id, full_name, email, phone, created_at, updated_at FROM contacts WHERE email = ? LIMIT 1`, email)
	} else {
		contact, err = getContact(q, `SELECT id, full_name, email, phone, created_at, updated_at FROM contacts WHERE full_name = ? AND phone = ? LIMIT 1`, name, phone)
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if errors.Is(err, ErrNotFound) {
		fullName := name
		if fullName == "" {
			if email != "" {
				fullName = email
			} else {
				fullName = "Contact"
			}
		}
		contact = &Contact{
			ID:        uuid.New().String(),
			FullName:  fullName,
			Email:     email,
			Phone:     phone,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		insert := `INSERT INTO contacts (id, full_name, email, phone, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
		if _, err := q.Exec(insert, contact.ID, contact.FullName, contact.Email, contact.Phone, contact.CreatedAt, contact.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to create contact: %w", err)
		}
		return contact, nil
	}

	// Patch in newly-arriving fields
	changed := false
	if name != "" && contact.FullName != name {
		contact.FullName = name
		changed = true
	}
	if email != "" && contact.Email != email {
		contact.Email = email
		changed = true
	}
	if phone != "" && contact.Phone != phone {
		contact.Phone = phone
		changed = true
	}
	if changed {
		contact.UpdatedAt = time.Now().UTC()
		update := `UPDATE contacts SET full_name = ?, email = ?, phone = ?, updated_at = ? WHERE id = ?`
		if _, err := q.Exec(update, contact.FullName, contact.Email, contact.Phone, contact.UpdatedAt, contact.ID); err != nil {
			return nil, fmt.Errorf("failed to update contact: %w", err)
		}
	}
	return contact, nil
}

// ---------------------------------------------------------------------------
// Properties

// CreateProperty creates a new property.
func (db *DB) CreateProperty(property *Property) error {
	if property.ID == "" {
		property.ID = uuid.New().String()
	}
	property.CreatedAt = time.Now().UTC()
	property.UpdatedAt = property.CreatedAt

	query := `INSERT INTO properties (id, code, address, city, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.conn.Exec(query, property.ID, property.Code, property.Address, property.City, property.Description, property.CreatedAt, property.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

// GetPropertyByID returns a property by its ID.
func (db *DB) GetPropertyByID(id string) (*Property, error) {
	return getProperty(db.conn, `SELECT id, code, address, city, description, created_at, updated_at FROM properties WHERE id = ?`, id)
}

// GetPropertyByCode returns a property by its business code.
func (db *DB) GetPropertyByCode(code string) (*Property, error) {
	return getProperty(db.conn, `SELECT id, code, address, city, description, created_at, updated_at FROM properties WHERE code = ?`, code)
}

func getProperty(q queryable, query string, arg any) (*Property, error) {
	property := &Property{}
	err := q.QueryRow(query, arg).Scan(&property.ID, &property.Code, &property.Address, &property.City, &property.Description, &property.CreatedAt, &property.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return property, nil
}

// ListProperties returns all properties ordered by code.
func (db *DB) ListProperties() ([]*Property, error) {
	rows, err := db.conn.Query(`SELECT id, code, address, city, description, created_at, updated_at FROM properties ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	var properties []*Property
	for rows.Next() {
		property := &Property{}
		if err := rows.Scan(&property.ID, &property.Code, &property.Address, &property.City, &property.Description, &property.CreatedAt, &property.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, property)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating properties: %w", err)
	}
	return properties, nil
}

// UpdateProperty updates an existing property.
func (db *DB) UpdateProperty(property *Property) error {
	property.UpdatedAt = time.Now().UTC()

	query := `UPDATE properties SET code = ?, address = ?, city = ?, description = ?, updated_at = ? WHERE id = ?`
	result, err := db.conn.Exec(query, property.Code, property.Address, property.City, property.Description, property.UpdatedAt, property.ID)
	if err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}
	return requireAffected(result)
}

// DeleteProperty deletes a property.
func (db *DB) DeleteProperty(id string) error {
	result, err := db.conn.Exec(`DELETE FROM properties WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	return requireAffected(result)
}

// GetOrCreatePropertyByCode resolves a property by business code, creating
// one if absent. A synthetic timestamp-based code is used when the code is
// empty. A differing non-empty address arriving from import is patched in.
func (db *DB) GetOrCreatePropertyByCode(code, address string) (*Property, error) {
	return getOrCreatePropertyByCode(db.conn, code, address)
}

// GetOrCreatePropertyByCode is the transactional variant used by import.
func (t *Tx) GetOrCreatePropertyByCode(code, address string) (*Property, error) {
	return getOrCreatePropertyByCode(t.tx, code, address)
}

func getOrCreatePropertyByCode(q queryable, code, address string) (*Property, error) {
	code = strings.TrimSpace(code)
	address = strings.TrimSpace(address)
	if code == "" {
		code = "IMM-" + time.Now().UTC().Format("20060102150405")
	}

	property, err := getProperty(q, `SELECT id, code, address, city, description, created_at, updated_at FROM properties WHERE code = ?`, code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if errors.Is(err, ErrNotFound) {
		addr := address
		if addr == "" {
			addr = code
		}
		property = &Property{
			ID:        uuid.New().String(),
			Code:      code,
			Address:   addr,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		insert := `INSERT INTO properties (id, code, address, city, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
		if _, err := q.Exec(insert, property.ID, property.Code, property.Address, property.City, property.Description, property.CreatedAt, property.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to create property: %w", err)
		}
		return property, nil
	}

	if address != "" && property.Address != address {
		property.Address = address
		property.UpdatedAt = time.Now().UTC()
		update := `UPDATE properties SET address = ?, updated_at = ? WHERE id = ?`
		if _, err := q.Exec(update, property.Address, property.UpdatedAt, property.ID); err != nil {
			return nil, fmt.Errorf("failed to update property: %w", err)
		}
	}
	return property, nil
}

// ---------------------------------------------------------------------------
// Todos

// CreateTodo creates a new to-do item.
func (db *DB) CreateTodo(todo *TodoItem) error {
	if todo.ID == "" {
		todo.ID = uuid.New().String()
	}
	todo.CreatedAt = time.Now().UTC()
	todo.UpdatedAt = todo.CreatedAt

	query := `INSERT INTO todos (id, agent_id, title, due_at, is_done, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.conn.Exec(query, todo.ID, todo.AgentID, todo.Title, todo.DueAt, todo.IsDone, todo.CreatedAt, todo.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create todo: %w", err)
	}
	return nil
}

// GetTodoByID returns a to-do item by its ID.
func (db *DB) GetTodoByID(id string) (*TodoItem, error) {
	todo := &TodoItem{}
	var dueAt sql.NullTime
	err := db.conn.QueryRow(`SELECT id, agent_id, title, due_at, is_done, created_at, updated_at FROM todos WHERE id = ?`, id).
		Scan(&todo.ID, &todo.AgentID, &todo.Title, &dueAt, &todo.IsDone, &todo.CreatedAt, &todo.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	if dueAt.Valid {
		todo.DueAt = &dueAt.Time
	}
	return todo, nil
}

// ListTodosByAgent returns an agent's to-dos, open items first.
func (db *DB) ListTodosByAgent(agentID string) ([]*TodoItem, error) {
	rows, err := db.conn.Query(`SELECT id, agent_id, title, due_at, is_done, created_at, updated_at
		FROM todos WHERE agent_id = ? ORDER BY is_done, due_at`, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()
	return scanTodos(rows)
}

// ListOpenTodosDueBy returns undone to-dos due on or before the cutoff,
// grouped by agent for the digest email.
func (db *DB) ListOpenTodosDueBy(cutoff time.Time) ([]*TodoItem, error) {
	rows, err := db.conn.Query(`SELECT id, agent_id, title, due_at, is_done, created_at, updated_at
		FROM todos WHERE is_done = 0 AND due_at IS NOT NULL AND due_at <= ? ORDER BY agent_id, due_at`, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()
	return scanTodos(rows)
}

func scanTodos(rows *sql.Rows) ([]*TodoItem, error) {
	var todos []*TodoItem
	for rows.Next() {
		todo := &TodoItem{}
		var dueAt sql.NullTime
		if err := rows.Scan(&todo.ID, &todo.AgentID, &todo.Title, &dueAt, &todo.IsDone, &todo.CreatedAt, &todo.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		if dueAt.Valid {
			todo.DueAt = &dueAt.Time
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todos: %w", err)
	}
	return todos, nil
}

// UpdateTodo updates an existing to-do item.
func (db *DB) UpdateTodo(todo *TodoItem) error {
	todo.UpdatedAt = time.Now().UTC()

	query := `UPDATE todos SET title = ?, due_at = ?, is_done = ?, updated_at = ? WHERE id = ?`
	result, err := db.conn.Exec(query, todo.Title, todo.DueAt, todo.IsDone, todo.UpdatedAt, todo.ID)
	if err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}
	return requireAffected(result)
}

// DeleteTodo deletes a to-do item.
func (db *DB) DeleteTodo(id string) error {
	result, err := db.conn.Exec(`DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	return requireAffected(result)
}

// ---------------------------------------------------------------------------
// Google account (team credential record)

// GetTeamAccount returns the credential record for the team identity.
func (db *DB) GetTeamAccount(email string) (*GoogleAccount, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	query := `SELECT id, email, access_token, refresh_token, token_uri, client_id, client_secret, scopes, token_expiry, created_at, updated_at
		FROM google_accounts WHERE email = ?`

	account := &GoogleAccount{}
	var expiry sql.NullTime
	err := db.conn.QueryRow(query, email).Scan(
		&account.ID, &account.Email, &account.AccessToken, &account.RefreshToken,
		&account.TokenURI, &account.ClientID, &account.ClientSecret, &account.Scopes,
		&expiry, &account.CreatedAt, &account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get google account: %w", err)
	}
	if expiry.Valid {
		t := expiry.Time.UTC()
		account.TokenExpiry = &t
	}
	return account, nil
}

// UpsertTeamAccount creates or replaces the full credential record. Used
// only by the interactive OAuth bootstrap.
func (db *DB) UpsertTeamAccount(account *GoogleAccount) error {
	now := time.Now().UTC()
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	if account.TokenExpiry != nil {
		t := account.TokenExpiry.UTC()
		account.TokenExpiry = &t
	}

	// Try to update first
	query := `UPDATE google_accounts SET access_token = ?, refresh_token = ?, token_uri = ?,
		client_id = ?, client_secret = ?, scopes = ?, token_expiry = ?, updated_at = ?
		WHERE email = ?`
	result, err := db.conn.Exec(query,
		account.AccessToken, account.RefreshToken, account.TokenURI,
		account.ClientID, account.ClientSecret, account.Scopes,
		account.TokenExpiry, now, account.Email,
	)
	if err != nil {
		return fmt.Errorf("failed to update google account: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		if account.ID == "" {
			account.ID = uuid.New().String()
		}
		account.CreatedAt = now
		account.UpdatedAt = now

		insert := `INSERT INTO google_accounts (id, email, access_token, refresh_token, token_uri, client_id, client_secret, scopes, token_expiry, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := db.conn.Exec(insert,
			account.ID, account.Email, account.AccessToken, account.RefreshToken,
			account.TokenURI, account.ClientID, account.ClientSecret, account.Scopes,
			account.TokenExpiry, account.CreatedAt, account.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert google account: %w", err)
		}
	}

	return nil
}

// UpdateTeamToken persists a refreshed access token and expiry on the
// existing credential record. Expiry is stored as UTC.
func (db *DB) UpdateTeamToken(id, accessToken string, expiry *time.Time) error {
	if expiry != nil {
		t := expiry.UTC()
		expiry = &t
	}

	query := `UPDATE google_accounts SET access_token = ?, token_expiry = ?, updated_at = ? WHERE id = ?`
	result, err := db.conn.Exec(query, accessToken, expiry, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}
	return requireAffected(result)
}

// ---------------------------------------------------------------------------
// Sync logs

// CreateSyncLog creates a new sync log entry.
func (db *DB) CreateSyncLog(entry *SyncLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.CreatedAt = time.Now().UTC()

	query := `INSERT INTO sync_logs (id, direction, status, message, details,
		items_checked, items_created, items_updated, items_skipped, items_errored, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.conn.Exec(query, entry.ID, entry.Direction, entry.Status, entry.Message, entry.Details,
		entry.ItemsChecked, entry.ItemsCreated, entry.ItemsUpdated, entry.ItemsSkipped, entry.ItemsErrored,
		entry.Duration.Milliseconds(), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create sync log: %w", err)
	}
	return nil
}

// GetSyncLogs returns the most recent sync logs.
func (db *DB) GetSyncLogs(limit int) ([]*SyncLog, error) {
	query := `SELECT id, direction, status, message, details,
		items_checked, items_created, items_updated, items_skipped, items_errored, duration_ms, created_at
		FROM sync_logs ORDER BY created_at DESC LIMIT ?`

	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync logs: %w", err)
	}
	defer rows.Close()

	var logs []*SyncLog
	for rows.Next() {
		entry := &SyncLog{}
		var message, details sql.NullString
		var durationMs int64
		err := rows.Scan(&entry.ID, &entry.Direction, &entry.Status, &message, &details,
			&entry.ItemsChecked, &entry.ItemsCreated, &entry.ItemsUpdated, &entry.ItemsSkipped, &entry.ItemsErrored,
			&durationMs, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync log: %w", err)
		}
		entry.Message = message.String
		entry.Details = details.String
		entry.Duration = time.Duration(durationMs) * time.Millisecond
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync logs: %w", err)
	}
	return logs, nil
}

// CleanOldSyncLogs deletes sync logs older than the given time.
func (db *DB) CleanOldSyncLogs(olderThan time.Time) (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM sync_logs WHERE created_at < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to clean old sync logs: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// ---------------------------------------------------------------------------
// Helpers

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
