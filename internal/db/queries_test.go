package db

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupTestDB creates a temporary test database.
func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "estatecrm-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tempDir, "test.db")
	db, err := New(dbPath)
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tempDir)
	}

	return db, cleanup
}

// createTestAgent creates a test agent and returns it.
func createTestAgent(t *testing.T, db *DB, email string) *Agent {
	t.Helper()

	agent := &Agent{
		Name:  "Test Agent",
		Email: email,
	}
	if err := db.CreateAgent(agent); err != nil {
		t.Fatalf("failed to create test agent: %v", err)
	}
	return agent
}

func TestGetOrCreateAgentByEmail(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	t.Run("creates agent with name from email local part", func(t *testing.T) {
		agent, err := db.GetOrCreateAgentByEmail("mario.rossi@example.com")
		if err != nil {
			t.Fatalf("failed to get or create agent: %v", err)
		}
		if agent.ID == "" {
			t.Error("expected agent to have an ID")
		}
		if agent.Name != "mario.rossi" {
			t.Errorf("expected name %q, got %q", "mario.rossi", agent.Name)
		}
	})

	t.Run("returns existing agent on repeat call", func(t *testing.T) {
		first, err := db.GetOrCreateAgentByEmail("anna@example.com")
		if err != nil {
			t.Fatalf("first call failed: %v", err)
		}
		second, err := db.GetOrCreateAgentByEmail("anna@example.com")
		if err != nil {
			t.Fatalf("second call failed: %v", err)
		}
		if first.ID != second.ID {
			t.Errorf("expected same agent, got %s and %s", first.ID, second.ID)
		}
	})

	t.Run("normalizes email to lowercase", func(t *testing.T) {
		first, err := db.GetOrCreateAgentByEmail("Luca@Example.COM")
		if err != nil {
			t.Fatalf("first call failed: %v", err)
		}
		second, err := db.GetOrCreateAgentByEmail("luca@example.com")
		if err != nil {
			t.Fatalf("second call failed: %v", err)
		}
		if first.ID != second.ID {
			t.Error("expected case-insensitive lookup to find the same agent")
		}
	})
}

func TestGetOrCreateContact(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	t.Run("matches by email first", func(t *testing.T) {
		first, err := db.GetOrCreateContact("Paolo Verdi", "paolo@example.com", "111")
		if err != nil {
			t.Fatalf("failed to create contact: %v", err)
		}
		// Different name and phone, same email: must match the same row.
		second, err := db.GetOrCreateContact("P. Verdi", "paolo@example.com", "222")
		if err != nil {
			t.Fatalf("failed to match contact: %v", err)
		}
		if first.ID != second.ID {
			t.Errorf("expected email match, got %s and %s", first.ID, second.ID)
		}
	})

	t.Run("falls back to name and phone without email", func(t *testing.T) {
		first, err := db.GetOrCreateContact("Carla Bianchi", "", "333-444")
		if err != nil {
			t.Fatalf("failed to create contact: %v", err)
		}
		second, err := db.GetOrCreateContact("Carla Bianchi", "", "333-444")
		if err != nil {
			t.Fatalf("failed to match contact: %v", err)
		}
		if first.ID != second.ID {
			t.Error("expected name+phone match to find the same contact")
		}
	})

	t.Run("patches newly arriving fields", func(t *testing.T) {
		created, err := db.GetOrCreateContact("Gino Neri", "gino@example.com", "")
		if err != nil {
			t.Fatalf("failed to create contact: %v", err)
		}
		if created.Phone != "" {
			t.Fatalf("expected empty phone, got %q", created.Phone)
		}

		// A later sighting carries the phone: the record is enriched.
		matched, err := db.GetOrCreateContact("Gino Neri", "gino@example.com", "555")
		if err != nil {
			t.Fatalf("failed to match contact: %v", err)
		}
		if matched.ID != created.ID {
			t.Fatal("expected the same contact")
		}

		reloaded, err := db.GetContactByID(created.ID)
		if err != nil {
			t.Fatalf("failed to reload contact: %v", err)
		}
		if reloaded.Phone != "555" {
			t.Errorf("expected patched phone, got %q", reloaded.Phone)
		}
	})

	t.Run("returns nil for empty input", func(t *testing.T) {
		contact, err := db.GetOrCreateContact("", "", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if contact != nil {
			t.Errorf("expected nil contact, got %+v", contact)
		}
	})
}

func TestGetOrCreatePropertyByCode(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	t.Run("creates property with given code", func(t *testing.T) {
		property, err := db.GetOrCreatePropertyByCode("AB-001", "Via Roma 1")
		if err != nil {
			t.Fatalf("failed to create property: %v", err)
		}
		if property.Code != "AB-001" {
			t.Errorf("expected code AB-001, got %q", property.Code)
		}
		if property.Address != "Via Roma 1" {
			t.Errorf("expected address, got %q", property.Address)
		}
	})

	t.Run("reuses property with same code", func(t *testing.T) {
		first, err := db.GetOrCreatePropertyByCode("AB-002", "Via Roma 2")
		if err != nil {
			t.Fatalf("failed to create property: %v", err)
		}
		second, err := db.GetOrCreatePropertyByCode("AB-002", "")
		if err != nil {
			t.Fatalf("failed to match property: %v", err)
		}
		if first.ID != second.ID {
			t.Error("expected code match to find the same property")
		}
	})

	t.Run("synthesizes code when missing", func(t *testing.T) {
		property, err := db.GetOrCreatePropertyByCode("", "Via Milano 5")
		if err != nil {
			t.Fatalf("failed to create property: %v", err)
		}
		if property.Code == "" {
			t.Fatal("expected a synthesized code")
		}
		if property.Code[:4] != "IMM-" {
			t.Errorf("expected IMM- prefix, got %q", property.Code)
		}
	})

	t.Run("updates changed address", func(t *testing.T) {
		created, err := db.GetOrCreatePropertyByCode("AB-003", "Old address")
		if err != nil {
			t.Fatalf("failed to create property: %v", err)
		}
		if _, err := db.GetOrCreatePropertyByCode("AB-003", "New address"); err != nil {
			t.Fatalf("failed to match property: %v", err)
		}

		reloaded, err := db.GetPropertyByID(created.ID)
		if err != nil {
			t.Fatalf("failed to reload property: %v", err)
		}
		if reloaded.Address != "New address" {
			t.Errorf("expected updated address, got %q", reloaded.Address)
		}
	})
}

func TestAgentCRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	agent := createTestAgent(t, db, "crud@example.com")

	t.Run("duplicate email rejected", func(t *testing.T) {
		dup := &Agent{Name: "Other", Email: "crud@example.com"}
		err := db.CreateAgent(dup)
		if !errors.Is(err, ErrDuplicate) {
			t.Errorf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("update and reload", func(t *testing.T) {
		agent.Name = "Renamed"
		agent.ColorID = "5"
		if err := db.UpdateAgent(agent); err != nil {
			t.Fatalf("failed to update agent: %v", err)
		}
		reloaded, err := db.GetAgentByID(agent.ID)
		if err != nil {
			t.Fatalf("failed to reload agent: %v", err)
		}
		if reloaded.Name != "Renamed" || reloaded.ColorID != "5" {
			t.Errorf("update not persisted: %+v", reloaded)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := db.DeleteAgent(agent.ID); err != nil {
			t.Fatalf("failed to delete agent: %v", err)
		}
		if _, err := db.GetAgentByID(agent.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestTeamAccount(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	account := &GoogleAccount{
		Email:        "team@example.com",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenURI:     "https://oauth2.example.com/token",
		ClientID:     "client",
		ClientSecret: "secret",
		TokenExpiry:  &expiry,
	}

	t.Run("upsert inserts then updates", func(t *testing.T) {
		if err := db.UpsertTeamAccount(account); err != nil {
			t.Fatalf("failed to insert account: %v", err)
		}

		account.AccessToken = "access-2"
		if err := db.UpsertTeamAccount(account); err != nil {
			t.Fatalf("failed to update account: %v", err)
		}

		loaded, err := db.GetTeamAccount("team@example.com")
		if err != nil {
			t.Fatalf("failed to load account: %v", err)
		}
		if loaded.AccessToken != "access-2" {
			t.Errorf("expected updated token, got %q", loaded.AccessToken)
		}
		if loaded.RefreshToken != "refresh-1" {
			t.Errorf("expected refresh token preserved, got %q", loaded.RefreshToken)
		}
	})

	t.Run("update token", func(t *testing.T) {
		loaded, err := db.GetTeamAccount("team@example.com")
		if err != nil {
			t.Fatalf("failed to load account: %v", err)
		}

		newExpiry := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
		if err := db.UpdateTeamToken(loaded.ID, "access-3", &newExpiry); err != nil {
			t.Fatalf("failed to update token: %v", err)
		}

		reloaded, err := db.GetTeamAccount("team@example.com")
		if err != nil {
			t.Fatalf("failed to reload account: %v", err)
		}
		if reloaded.AccessToken != "access-3" {
			t.Errorf("expected access-3, got %q", reloaded.AccessToken)
		}
		if reloaded.TokenExpiry == nil || !reloaded.TokenExpiry.Equal(newExpiry) {
			t.Errorf("expected expiry %v, got %v", newExpiry, reloaded.TokenExpiry)
		}
	})

	t.Run("missing account", func(t *testing.T) {
		if _, err := db.GetTeamAccount("nobody@example.com"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSyncLogs(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	for i := 0; i < 3; i++ {
		entry := &SyncLog{
			Direction:    SyncDirectionPush,
			Status:       SyncStatusSuccess,
			Message:      "ok",
			ItemsChecked: i,
			Duration:     time.Second,
		}
		if err := db.CreateSyncLog(entry); err != nil {
			t.Fatalf("failed to create sync log: %v", err)
		}
	}

	logs, err := db.GetSyncLogs(2)
	if err != nil {
		t.Fatalf("failed to get sync logs: %v", err)
	}
	if len(logs) != 2 {
		t.Errorf("expected 2 logs, got %d", len(logs))
	}

	deleted, err := db.CleanOldSyncLogs(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("failed to clean sync logs: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deleted, got %d", deleted)
	}
}

func TestTodos(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	agent := createTestAgent(t, db, "todos@example.com")

	due := time.Now().Add(2 * time.Hour).UTC()
	past := time.Now().Add(-time.Hour).UTC()

	open := &TodoItem{AgentID: agent.ID, Title: "Call notary", DueAt: &due}
	done := &TodoItem{AgentID: agent.ID, Title: "Done item", DueAt: &past, IsDone: true}
	noDue := &TodoItem{AgentID: agent.ID, Title: "Someday"}

	for _, todo := range []*TodoItem{open, done, noDue} {
		if err := db.CreateTodo(todo); err != nil {
			t.Fatalf("failed to create todo: %v", err)
		}
	}

	t.Run("list by agent", func(t *testing.T) {
		todos, err := db.ListTodosByAgent(agent.ID)
		if err != nil {
			t.Fatalf("failed to list todos: %v", err)
		}
		if len(todos) != 3 {
			t.Errorf("expected 3 todos, got %d", len(todos))
		}
	})

	t.Run("due-by excludes done and undated items", func(t *testing.T) {
		todos, err := db.ListOpenTodosDueBy(time.Now().Add(24 * time.Hour))
		if err != nil {
			t.Fatalf("failed to list due todos: %v", err)
		}
		if len(todos) != 1 {
			t.Fatalf("expected 1 todo, got %d", len(todos))
		}
		if todos[0].Title != "Call notary" {
			t.Errorf("expected the open dated item, got %q", todos[0].Title)
		}
	})
}
