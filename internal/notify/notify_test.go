package notify

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/estateops/estatecrm/internal/config"
	"github.com/estateops/estatecrm/internal/db"
)

func setupTestDB(t *testing.T) (*db.DB, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "estatecrm-notify-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	database, err := db.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("failed to create test database: %v", err)
	}

	return database, func() {
		database.Close()
		os.RemoveAll(tempDir)
	}
}

func TestIsEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.NotifyConfig
		want bool
	}{
		{"fully configured", config.NotifyConfig{SMTPHost: "smtp.example.com", SMTPFrom: "crm@example.com"}, true},
		{"missing host", config.NotifyConfig{SMTPFrom: "crm@example.com"}, false},
		{"missing from", config.NotifyConfig{SMTPHost: "smtp.example.com"}, false},
		{"empty", config.NotifyConfig{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.cfg).IsEnabled(); got != tt.want {
				t.Errorf("IsEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSendWithoutConfigIsNoOp(t *testing.T) {
	notifier := New(config.NotifyConfig{})

	start := time.Now().Add(time.Hour)
	appt := &db.Appointment{ID: "a1", Title: "Visite", Start: &start}
	agent := &db.Agent{Name: "Marie", Email: "marie@example.com"}

	if err := notifier.SendAppointmentAlert(agent, appt); err != nil {
		t.Errorf("disabled alert returned error: %v", err)
	}
	if err := notifier.SendTodoDigest(agent, []*db.TodoItem{{Title: "Call"}}); err != nil {
		t.Errorf("disabled digest returned error: %v", err)
	}
}

func TestSendTodoDigestEmptyList(t *testing.T) {
	notifier := New(config.NotifyConfig{SMTPHost: "smtp.example.com", SMTPFrom: "crm@example.com"})
	agent := &db.Agent{Name: "Marie", Email: "marie@example.com"}

	// Empty list never opens an SMTP connection.
	if err := notifier.SendTodoDigest(agent, nil); err != nil {
		t.Errorf("empty digest returned error: %v", err)
	}
}

func TestSanitizeForEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Visite appartement", "Visite appartement"},
		{"header injection", "Visite\r\nBcc: attacker@evil.com", "Visite Bcc: attacker@evil.com"},
		{"carriage returns stripped", "a\rb", "ab"},
		{"truncated", strings.Repeat("x", 250), strings.Repeat("x", 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeForEmail(tt.input); got != tt.want {
				t.Errorf("sanitizeForEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRunAppointmentAlertsDisabled(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()

	start := time.Now().Add(30 * time.Minute)
	end := start.Add(time.Hour)
	appt := &db.Appointment{Title: "Visite", Start: &start, End: &end}
	if err := database.SaveAppointment(appt, db.SaveSourceUserEdit); err != nil {
		t.Fatalf("failed to create appointment: %v", err)
	}

	alerter := NewAlerter(database, New(config.NotifyConfig{}), time.Hour)

	sent, err := alerter.RunAppointmentAlerts()
	if err != nil {
		t.Fatalf("RunAppointmentAlerts failed: %v", err)
	}
	if sent != 0 {
		t.Errorf("expected no alerts without SMTP config, got %d", sent)
	}

	// The appointment stays unalerted for when delivery is configured.
	reloaded, err := database.GetAppointmentByID(appt.ID)
	if err != nil {
		t.Fatalf("failed to reload appointment: %v", err)
	}
	if reloaded.AlertedAt != nil {
		t.Error("appointment should not be stamped when delivery is disabled")
	}
}

func TestRunAppointmentAlertsSkipsAgentless(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()

	start := time.Now().Add(30 * time.Minute)
	end := start.Add(time.Hour)
	appt := &db.Appointment{Title: "Visite", Start: &start, End: &end}
	if err := database.SaveAppointment(appt, db.SaveSourceUserEdit); err != nil {
		t.Fatalf("failed to create appointment: %v", err)
	}

	// SMTP looks configured but nothing is sent because the appointment
	// has no agent to notify.
	notifier := New(config.NotifyConfig{SMTPHost: "smtp.example.com", SMTPFrom: "crm@example.com"})
	alerter := NewAlerter(database, notifier, time.Hour)

	sent, err := alerter.RunAppointmentAlerts()
	if err != nil {
		t.Fatalf("RunAppointmentAlerts failed: %v", err)
	}
	if sent != 0 {
		t.Errorf("expected 0 alerts for agentless appointment, got %d", sent)
	}
}
