package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/estateops/estatecrm/internal/activity"
	"github.com/estateops/estatecrm/internal/config"
	"github.com/estateops/estatecrm/internal/db"
	"github.com/estateops/estatecrm/internal/notify"
	syncengine "github.com/estateops/estatecrm/internal/sync"
)

const (
	alertInterval    = 5 * time.Minute
	digestInterval   = 24 * time.Hour
	cleanupInterval  = 24 * time.Hour
	logRetentionDays = 30
	syncTimeout      = 10 * time.Minute // Maximum time for a single sync run
)

const (
	jobPush   = "push"
	jobImport = "import"
)

// Job represents a scheduled background job.
type Job struct {
	name     string
	interval time.Duration
	ticker   *time.Ticker
	stopCh   chan struct{}
	run      func()
}

// Scheduler manages the background push, import, alert, digest and
// cleanup jobs.
type Scheduler struct {
	db      *db.DB
	engine  *syncengine.Engine
	tracker *activity.Tracker
	alerter *notify.Alerter
	syncCfg config.SyncConfig

	mu       sync.RWMutex
	jobs     map[string]*Job
	runLocks map[string]*sync.Mutex // Per-job locks to prevent overlapping runs
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
}

// New creates a new scheduler.
func New(database *db.DB, engine *syncengine.Engine, tracker *activity.Tracker, alerter *notify.Alerter, syncCfg config.SyncConfig) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		db:       database,
		engine:   engine,
		tracker:  tracker,
		alerter:  alerter,
		syncCfg:  syncCfg,
		jobs:     make(map[string]*Job),
		runLocks: make(map[string]*sync.Mutex),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches all background jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.addJob(jobPush, s.syncCfg.PushInterval, s.runPush)
	s.addJob(jobImport, s.syncCfg.ImportInterval, s.runImport)
	s.addJob("alerts", alertInterval, s.runAlerts)
	s.addJob("digest", digestInterval, s.runDigest)

	// Start cleanup goroutine
	s.wg.Add(1)
	go s.cleanupRoutine()

	log.Printf("Scheduler started with %d jobs", s.GetJobCount())
	return nil
}

// Stop gracefully shuts down all jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	// Cancel context to stop all jobs
	s.cancel()

	// Stop all job tickers
	s.mu.Lock()
	for _, job := range s.jobs {
		close(job.stopCh)
		job.ticker.Stop()
	}
	s.jobs = make(map[string]*Job)
	s.mu.Unlock()

	// Wait for all goroutines to finish
	s.wg.Wait()
	log.Println("Scheduler stopped")
}

// TriggerPush manually triggers an outbound push run.
func (s *Scheduler) TriggerPush() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(jobPush, s.runPush)
	}()
}

// TriggerImport manually triggers an inbound import run.
func (s *Scheduler) TriggerImport() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(jobImport, s.runImport)
	}()
}

// GetJobCount returns the number of active jobs.
func (s *Scheduler) GetJobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// addJob registers and starts a recurring job.
func (s *Scheduler) addJob(name string, interval time.Duration, run func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.jobs[name]; exists {
		close(existing.stopCh)
		existing.ticker.Stop()
	}

	job := &Job{
		name:     name,
		interval: interval,
		ticker:   time.NewTicker(interval),
		stopCh:   make(chan struct{}),
		run:      run,
	}
	s.jobs[name] = job

	s.wg.Add(1)
	go s.runJob(job)

	log.Printf("Added %s job with interval %v", name, interval)
}

// runJob runs the job loop.
func (s *Scheduler) runJob(job *Job) {
	defer s.wg.Done()

	// Run immediately on start
	s.execute(job.name, job.run)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-job.stopCh:
			return
		case <-job.ticker.C:
			s.execute(job.name, job.run)
		}
	}
}

// getRunLock returns the mutex for a job, creating one if needed.
func (s *Scheduler) getRunLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lock, exists := s.runLocks[name]; exists {
		return lock
	}

	lock := &sync.Mutex{}
	s.runLocks[name] = lock
	return lock
}

// execute runs a job body under its lock. An already-running job is
// skipped rather than queued.
func (s *Scheduler) execute(name string, run func()) {
	lock := s.getRunLock(name)
	if !lock.TryLock() {
		log.Printf("Skipping %s job - previous run still in progress", name)
		return
	}
	defer lock.Unlock()

	run()
}

func (s *Scheduler) runPush() {
	ctx, cancel := context.WithTimeout(s.ctx, syncTimeout)
	defer cancel()

	s.tracker.StartRun(jobPush)
	started := time.Now()

	result, err := s.engine.PushPending(ctx, s.syncCfg.PushLimit)
	duration := time.Since(started)

	entry := &db.SyncLog{
		Direction:    db.SyncDirectionPush,
		ItemsChecked: result.Checked,
		ItemsCreated: result.Pushed,
		ItemsErrored: result.Errors,
		Duration:     duration,
	}

	switch {
	case err != nil:
		entry.Status = db.SyncStatusError
		entry.Message = err.Error()
		s.tracker.FinishRun(jobPush, false, err.Error(), nil)
		log.Printf("Push failed: %v", err)
	case result.Errors > 0:
		entry.Status = db.SyncStatusPartial
		entry.Message = fmt.Sprintf("pushed %d of %d, %d failed", result.Pushed, result.Checked, result.Errors)
		s.tracker.UpdateProgress(jobPush, result.Checked, result.Pushed, 0, 0, result.Errors)
		s.tracker.FinishRun(jobPush, true, entry.Message, nil)
		log.Printf("Push completed with errors: %s in %v", entry.Message, duration)
	default:
		entry.Status = db.SyncStatusSuccess
		entry.Message = fmt.Sprintf("pushed %d of %d", result.Pushed, result.Checked)
		s.tracker.UpdateProgress(jobPush, result.Checked, result.Pushed, 0, 0, 0)
		s.tracker.FinishRun(jobPush, true, entry.Message, nil)
		log.Printf("Push completed: %s in %v", entry.Message, duration)
	}

	if logErr := s.db.CreateSyncLog(entry); logErr != nil {
		log.Printf("Failed to record push log: %v", logErr)
	}
}

func (s *Scheduler) runImport() {
	ctx, cancel := context.WithTimeout(s.ctx, syncTimeout)
	defer cancel()

	s.tracker.StartRun(jobImport)
	started := time.Now()

	result, err := s.engine.ImportForAgent(ctx, nil, s.syncCfg.DaysBack, s.syncCfg.DaysForward)
	duration := time.Since(started)

	entry := &db.SyncLog{
		Direction:    db.SyncDirectionImport,
		ItemsCreated: result.Created,
		ItemsUpdated: result.Updated,
		ItemsSkipped: result.Skipped,
		Duration:     duration,
	}

	if err != nil {
		entry.Status = db.SyncStatusError
		entry.Message = err.Error()
		s.tracker.FinishRun(jobImport, false, err.Error(), nil)
		log.Printf("Import failed: %v", err)
	} else {
		entry.Status = db.SyncStatusSuccess
		entry.Message = fmt.Sprintf("%d created, %d updated, %d skipped", result.Created, result.Updated, result.Skipped)
		s.tracker.UpdateProgress(jobImport, 0, result.Created, result.Updated, result.Skipped, 0)
		s.tracker.FinishRun(jobImport, true, entry.Message, nil)
		log.Printf("Import completed: %s in %v", entry.Message, duration)
	}

	if logErr := s.db.CreateSyncLog(entry); logErr != nil {
		log.Printf("Failed to record import log: %v", logErr)
	}
}

func (s *Scheduler) runAlerts() {
	sent, err := s.alerter.RunAppointmentAlerts()
	if err != nil {
		log.Printf("Appointment alerts failed: %v", err)
		return
	}
	if sent > 0 {
		log.Printf("Sent %d appointment alert(s)", sent)
	}
}

func (s *Scheduler) runDigest() {
	sent, err := s.alerter.RunTodoDigest()
	if err != nil {
		log.Printf("To-do digest failed: %v", err)
		return
	}
	if sent > 0 {
		log.Printf("Sent %d to-do digest(s)", sent)
	}
}

// cleanupRoutine runs periodic cleanup of old sync logs.
func (s *Scheduler) cleanupRoutine() {
	defer s.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.cleanupOldLogs()
		}
	}
}

// cleanupOldLogs deletes sync logs older than the retention period.
func (s *Scheduler) cleanupOldLogs() {
	cutoff := time.Now().AddDate(0, 0, -logRetentionDays)
	deleted, err := s.db.CleanOldSyncLogs(cutoff)
	if err != nil {
		log.Printf("Failed to clean old sync logs: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("Cleaned %d old sync logs", deleted)
	}
}
