package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
	"github.com/voltaic-labs/voltaic/internal/core/ports/driven"
	"github.com/voltaic-labs/voltaic/internal/core/ports/driving"
	"github.com/voltaic-labs/voltaic/internal/logger"
)

// historyRetention is how many results are kept per task.
const historyRetention = 100

// Scheduler drives the two entry points from an in-process loop for hosts
// without an external timer: a primary and a redundant backup token refresh
// a fixed delay apart, plus the configured nightly reserve steps. Every
// tick performs a full stateless invocation, identical in semantics to an
// externally triggered one.
type Scheduler struct {
	config     domain.SchedulerConfig
	store      driven.SchedulerStore
	tokens     driving.TokenManager
	dispatcher driving.Dispatcher

	mu      sync.Mutex
	steps   map[string]domain.ScheduleStep // task ID -> step
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	tokens driving.TokenManager,
	dispatcher driving.Dispatcher,
) *Scheduler {
	return &Scheduler{
		config:     config,
		store:      store,
		tokens:     tokens,
		dispatcher: dispatcher,
		steps:      make(map[string]domain.ScheduleStep),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()

	return nil
}

// Reload replaces the reserve steps, e.g. after a config file change.
// Refresh task timing is not altered by a reload.
func (s *Scheduler) Reload(ctx context.Context, steps []domain.ScheduleStep) error {
	s.mu.Lock()
	s.config.Steps = steps
	s.mu.Unlock()
	return s.ensureStepTasks(ctx)
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}

	now := time.Now()

	if err := s.ensureTask(ctx, domain.TaskIDTokenRefresh, "Token Refresh",
		s.config.RefreshInterval, now.Add(time.Minute)); err != nil {
		return err
	}

	// The backup refresh runs the same algorithm a fixed delay later.
	// The two tasks stay deliberately unaware of each other: a transient
	// failure in one is self-healed by the other.
	if err := s.ensureTask(ctx, domain.TaskIDTokenRefreshBackup, "Token Refresh (backup)",
		s.config.RefreshInterval, now.Add(time.Minute+s.config.BackupRefreshDelay)); err != nil {
		return err
	}

	return s.ensureStepTasks(ctx)
}

// ensureStepTasks syncs one daily task per configured reserve step and
// disables tasks whose steps were removed.
func (s *Scheduler) ensureStepTasks(ctx context.Context) error {
	s.mu.Lock()
	steps := make(map[string]domain.ScheduleStep, len(s.config.Steps))
	for _, step := range s.config.Steps {
		steps[stepTaskID(step)] = step
	}
	s.steps = steps
	s.mu.Unlock()

	now := time.Now()
	for id, step := range steps {
		next, err := nextOccurrence(now, step.At)
		if err != nil {
			logger.Warn("scheduler: skipping step with bad time %q: %v", step.At, err)
			continue
		}
		name := fmt.Sprintf("Reserve %d%% at %s", step.TargetPercent, step.At)
		if err := s.ensureTask(ctx, id, name, 24*time.Hour, next); err != nil {
			return err
		}
	}

	// Drop tasks for steps no longer configured.
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return err
	}
	for i := range tasks {
		id := tasks[i].ID
		if !isStepTaskID(id) {
			continue
		}
		if _, ok := steps[id]; !ok {
			if err := s.store.DeleteTask(ctx, id); err != nil {
				logger.Warn("scheduler: failed to delete stale task %s: %v", id, err)
			}
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, interval time.Duration, firstRun time.Time) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: interval,
			Enabled:  true,
			NextRun:  firstRun,
		}
	} else {
		task.Name = name
		if task.Interval != interval {
			task.Interval = interval
			task.NextRun = firstRun
		}
		task.Enabled = true
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task invocation.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: time.Now(),
		}

		var err error
		switch {
		case task.ID == domain.TaskIDTokenRefresh || task.ID == domain.TaskIDTokenRefreshBackup:
			err = s.runRefresh(ctx, result)
		case isStepTaskID(task.ID):
			err = s.runStep(ctx, task.ID, result)
		default:
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = time.Now()
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			task.LastError = err.Error()
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		// Update task state
		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}

		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}

		if pruneErr := s.store.PruneHistory(ctx, historyRetention); pruneErr != nil {
			logger.Warn("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

// runRefresh performs one full token refresh invocation.
func (s *Scheduler) runRefresh(ctx context.Context, result *domain.TaskResult) error {
	report, err := s.tokens.Refresh(ctx)
	if err != nil {
		return err
	}
	result.Detail = fmt.Sprintf("valid until %s",
		report.Record.AccessExpiry.UTC().Format(time.RFC3339))
	return nil
}

// runStep dispatches one reserve step.
func (s *Scheduler) runStep(ctx context.Context, taskID string, result *domain.TaskResult) error {
	s.mu.Lock()
	step, ok := s.steps[taskID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no step configured for task %s", taskID)
	}

	cmd := domain.ReserveCommand{TargetPercent: step.TargetPercent, Label: step.Label}
	report, err := s.dispatcher.Apply(ctx, cmd)
	if report != nil {
		result.Detail = dispatchDetail(report, step.TargetPercent)
	}
	return err
}

// dispatchDetail renders a short outcome summary for the history row.
func dispatchDetail(report *driving.DispatchReport, target int) string {
	if report.PreviousPercent != nil {
		return fmt.Sprintf("reserve %g%% -> %d%% (%s)", *report.PreviousPercent, target, report.State)
	}
	return fmt.Sprintf("reserve -> %d%% (%s)", target, report.State)
}

// stepTaskID derives the stable task ID for a step.
func stepTaskID(step domain.ScheduleStep) string {
	return domain.TaskIDReserveApply + ":" + step.At
}

// isStepTaskID reports whether id belongs to a reserve step task.
func isStepTaskID(id string) bool {
	return len(id) > len(domain.TaskIDReserveApply) &&
		id[:len(domain.TaskIDReserveApply)+1] == domain.TaskIDReserveApply+":"
}

// nextOccurrence returns the next wall-clock occurrence of "HH:MM" (UTC)
// strictly after now.
func nextOccurrence(now time.Time, at string) (time.Time, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not HH:MM", domain.ErrInvalidInput, at)
	}
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next, nil
}
