package domain

import "time"

// ScheduledTask represents a recurring task driven by the in-process
// scheduler in daemon mode.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// Interval defines how often the task should run.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the task is active.
	Enabled bool
}

// TaskResult records the outcome of one invocation, whether triggered
// externally or by the in-process scheduler. It is the persisted form of a
// terminal state.
type TaskResult struct {
	// TaskID identifies which task ran (token-refresh, reserve-apply, ...).
	TaskID string

	// StartedAt is when the invocation started.
	StartedAt time.Time

	// EndedAt is when the invocation reached its terminal state.
	EndedAt time.Time

	// Success is true for the Success terminal state and completed refreshes.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// Detail is a short human-readable outcome, e.g. "reserve 20% -> 100%".
	Detail string
}

// ScheduleStep is one configured reserve change in the nightly plan.
// Steps are informational for refresh notifications and drive the
// in-process scheduler in daemon mode.
type ScheduleStep struct {
	// At is the wall-clock time of day, "HH:MM" in UTC.
	At string

	// TargetPercent is the reserve to apply at that time.
	TargetPercent int

	// Label names the step in notifications.
	Label string
}

// SchedulerConfig holds daemon-mode scheduling configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the in-process scheduler.
	Enabled bool

	// RefreshInterval is how often the primary refresh task runs.
	RefreshInterval time.Duration

	// BackupRefreshDelay is how long after the primary the redundant
	// backup refresh runs. The two tasks are deliberately uncoordinated;
	// each performs a complete refresh on its own.
	BackupRefreshDelay time.Duration

	// Steps are the reserve changes to dispatch.
	Steps []ScheduleStep
}

// DefaultSchedulerConfig returns the defaults matching the original
// deployment: daily primary refresh, backup one hour later, no steps.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:            true,
		RefreshInterval:    24 * time.Hour,
		BackupRefreshDelay: time.Hour,
	}
}

// Task IDs for built-in tasks.
const (
	TaskIDTokenRefresh       = "token-refresh"
	TaskIDTokenRefreshBackup = "token-refresh-backup"
	TaskIDReserveApply       = "reserve-apply"
)
