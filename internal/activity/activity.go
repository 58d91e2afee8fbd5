package activity

import (
	"sync"
	"time"
)

// Run represents the current state of a sync run, keyed by direction.
type Run struct {
	Direction    string     `json:"direction"` // "push" or "import"
	Status       string     `json:"status"`    // "running", "completed", "partial", "error"
	ItemsChecked int        `json:"items_checked"`
	ItemsCreated int        `json:"items_created"`
	ItemsUpdated int        `json:"items_updated"`
	ItemsSkipped int        `json:"items_skipped"`
	ItemsErrored int        `json:"items_errored"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Duration     string     `json:"duration,omitempty"`
	Message      string     `json:"message,omitempty"`
	Errors       []string   `json:"errors,omitempty"`
}

// Tracker tracks sync runs across both directions.
type Tracker struct {
	mu        sync.RWMutex
	active    map[string]*Run // direction -> run
	recent    []*Run          // Recently completed runs
	maxRecent int
}

// NewTracker creates a new activity tracker.
func NewTracker() *Tracker {
	return &Tracker{
		active:    make(map[string]*Run),
		recent:    make([]*Run, 0),
		maxRecent: 20, // Keep last 20 completed runs
	}
}

// StartRun begins tracking a new sync run for the given direction.
func (t *Tracker) StartRun(direction string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active[direction] = &Run{
		Direction: direction,
		Status:    "running",
		StartedAt: time.Now(),
	}
}

// UpdateProgress updates the counters of a running sync.
func (t *Tracker) UpdateProgress(direction string, checked, created, updated, skipped, errored int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if run, exists := t.active[direction]; exists {
		run.ItemsChecked = checked
		run.ItemsCreated = created
		run.ItemsUpdated = updated
		run.ItemsSkipped = skipped
		run.ItemsErrored = errored
	}
}

// FinishRun marks a run as completed and moves it to recent.
func (t *Tracker) FinishRun(direction string, success bool, message string, errors []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	run, exists := t.active[direction]
	if !exists {
		return
	}

	now := time.Now()
	run.CompletedAt = &now
	run.Duration = now.Sub(run.StartedAt).Round(time.Millisecond).String()
	run.Message = message
	run.Errors = errors

	if success {
		if len(errors) > 0 || run.ItemsErrored > 0 {
			run.Status = "partial"
		} else {
			run.Status = "completed"
		}
	} else {
		run.Status = "error"
	}

	// Move to recent list
	t.recent = append([]*Run{run}, t.recent...)
	if len(t.recent) > t.maxRecent {
		t.recent = t.recent[:t.maxRecent]
	}

	// Remove from active
	delete(t.active, direction)
}

// GetActive returns all currently running syncs.
func (t *Tracker) GetActive() []*Run {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]*Run, 0, len(t.active))
	for _, run := range t.active {
		// Create a copy to avoid race conditions
		copy := *run
		copy.Duration = time.Since(run.StartedAt).Round(time.Millisecond).String()
		result = append(result, &copy)
	}
	return result
}

// GetRecent returns recently completed runs.
func (t *Tracker) GetRecent() []*Run {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]*Run, len(t.recent))
	for i, run := range t.recent {
		copy := *run
		result[i] = &copy
	}
	return result
}

// GetAll returns both active and recent runs.
func (t *Tracker) GetAll() map[string]interface{} {
	return map[string]interface{}{
		"active": t.GetActive(),
		"recent": t.GetRecent(),
	}
}

// IsRunning returns true if a sync in the given direction is in flight.
func (t *Tracker) IsRunning(direction string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.active[direction]
	return exists
}
