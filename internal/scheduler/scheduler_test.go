package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/estateops/estatecrm/internal/activity"
	"github.com/estateops/estatecrm/internal/config"
	"github.com/estateops/estatecrm/internal/db"
	"github.com/estateops/estatecrm/internal/notify"
	syncengine "github.com/estateops/estatecrm/internal/sync"
)

// stubCalendar is an empty calendar for exercising job plumbing.
type stubCalendar struct{}

func (stubCalendar) ListEventsBetween(ctx context.Context, from, to time.Time) ([]*calendar.Event, error) {
	return nil, nil
}

func (stubCalendar) InsertEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error) {
	return event, nil
}

func (stubCalendar) PatchEvent(ctx context.Context, eventID string, event *calendar.Event) (*calendar.Event, error) {
	return event, nil
}

func setupTestScheduler(t *testing.T) (*Scheduler, *db.DB, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "estatecrm-sched-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	database, err := db.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("failed to create test database: %v", err)
	}

	engine := syncengine.NewEngine(database, stubCalendar{}, nil)
	tracker := activity.NewTracker()
	alerter := notify.NewAlerter(database, notify.New(config.NotifyConfig{}), time.Hour)
	sched := New(database, engine, tracker, alerter, config.SyncConfig{
		PushInterval:   time.Hour,
		ImportInterval: time.Hour,
		PushLimit:      50,
		DaysBack:       10,
		DaysForward:    60,
	})

	cleanup := func() {
		sched.Stop()
		database.Close()
		os.RemoveAll(tempDir)
	}
	return sched, database, cleanup
}

func TestExecuteSkipsOverlappingRuns(t *testing.T) {
	sched, _, cleanup := setupTestScheduler(t)
	defer cleanup()

	var runs int
	var mu sync.Mutex
	blocker := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.execute("test-job", func() {
			mu.Lock()
			runs++
			mu.Unlock()
			close(started)
			<-blocker
		})
	}()

	<-started

	// Second run while the first holds the lock is dropped, not queued.
	sched.execute("test-job", func() {
		mu.Lock()
		runs++
		mu.Unlock()
	})

	close(blocker)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if runs != 1 {
		t.Errorf("expected 1 run, got %d", runs)
	}
}

func TestRunPushRecordsLog(t *testing.T) {
	sched, database, cleanup := setupTestScheduler(t)
	defer cleanup()

	// Nothing pending, so the run completes without touching the calendar.
	sched.runPush()

	logs, err := database.GetSyncLogs(10)
	if err != nil {
		t.Fatalf("failed to load sync logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 sync log, got %d", len(logs))
	}
	if logs[0].Direction != db.SyncDirectionPush {
		t.Errorf("unexpected direction: %s", logs[0].Direction)
	}
	if logs[0].Status != db.SyncStatusSuccess {
		t.Errorf("expected success status, got %s", logs[0].Status)
	}
	if logs[0].ItemsChecked != 0 {
		t.Errorf("expected 0 items checked, got %d", logs[0].ItemsChecked)
	}
}

func TestCleanupOldLogs(t *testing.T) {
	sched, database, cleanup := setupTestScheduler(t)
	defer cleanup()

	for i := 0; i < 3; i++ {
		entry := &db.SyncLog{Direction: db.SyncDirectionPush, Status: db.SyncStatusSuccess}
		if err := database.CreateSyncLog(entry); err != nil {
			t.Fatalf("failed to create sync log: %v", err)
		}
	}

	// Recent logs survive the retention sweep.
	sched.cleanupOldLogs()

	logs, err := database.GetSyncLogs(10)
	if err != nil {
		t.Fatalf("failed to load sync logs: %v", err)
	}
	if len(logs) != 3 {
		t.Errorf("expected 3 logs after cleanup, got %d", len(logs))
	}
}

func TestStartStop(t *testing.T) {
	sched, _, cleanup := setupTestScheduler(t)
	defer cleanup()

	if sched.GetJobCount() != 0 {
		t.Errorf("expected 0 jobs before start, got %d", sched.GetJobCount())
	}

	if err := sched.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if sched.GetJobCount() != 4 {
		t.Errorf("expected 4 jobs after start, got %d", sched.GetJobCount())
	}

	// Starting twice is a no-op.
	if err := sched.Start(); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	if sched.GetJobCount() != 4 {
		t.Errorf("expected 4 jobs after repeated start, got %d", sched.GetJobCount())
	}

	sched.Stop()
	if sched.GetJobCount() != 0 {
		t.Errorf("expected 0 jobs after stop, got %d", sched.GetJobCount())
	}
}
