// Package file provides the TOML-backed settings store and a file watcher
// for daemon-mode reload.
package file

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
)

// Settings is the on-disk configuration shape, stored as TOML in
// ~/.voltaic/config.toml.
type Settings struct {
	// Region selects the Fleet API region host ("na" or "eu").
	Region string `toml:"region,omitempty"`

	// AuthBase overrides the OAuth token endpoint base URL.
	AuthBase string `toml:"auth_base,omitempty"`

	// APIBase overrides the Fleet API base URL. When set, Region is ignored.
	APIBase string `toml:"api_base,omitempty"`

	// TimeoutSeconds is the per-request HTTP timeout.
	TimeoutSeconds int `toml:"timeout_seconds,omitempty"`

	// Scope and Audience are included in token grants when non-empty.
	Scope    string `toml:"scope,omitempty"`
	Audience string `toml:"audience,omitempty"`

	// RetryDelaysSeconds overrides the transient-failure retry schedule.
	// The number of entries is the number of extra attempts.
	RetryDelaysSeconds []int `toml:"retry_delays_seconds,omitempty"`

	// WebhookURL overrides the webhook URL held in the secret store.
	WebhookURL string `toml:"webhook_url,omitempty"`

	Daemon DaemonSettings `toml:"daemon"`
}

// DaemonSettings configures the in-process scheduler used by `voltaic run`.
type DaemonSettings struct {
	Enabled bool `toml:"enabled"`

	// RefreshIntervalHours is how often the primary token refresh runs.
	RefreshIntervalHours int `toml:"refresh_interval_hours,omitempty"`

	// BackupDelayMinutes is how long after the primary refresh the
	// redundant backup refresh runs.
	BackupDelayMinutes int `toml:"backup_delay_minutes,omitempty"`

	Steps []StepSettings `toml:"steps,omitempty"`
}

// StepSettings is one configured reserve change.
type StepSettings struct {
	// At is the wall-clock time of day, "HH:MM" in UTC.
	At      string `toml:"at"`
	Percent int    `toml:"percent"`
	Label   string `toml:"label,omitempty"`
}

// Timeout returns the configured HTTP timeout, or zero when unset.
func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// RetryDelays returns the configured retry schedule, or nil when unset.
func (s Settings) RetryDelays() []time.Duration {
	if len(s.RetryDelaysSeconds) == 0 {
		return nil
	}
	delays := make([]time.Duration, 0, len(s.RetryDelaysSeconds))
	for _, d := range s.RetryDelaysSeconds {
		delays = append(delays, time.Duration(d)*time.Second)
	}
	return delays
}

// SchedulerConfig maps daemon settings onto domain defaults.
func (s Settings) SchedulerConfig() domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()
	cfg.Enabled = s.Daemon.Enabled
	if s.Daemon.RefreshIntervalHours > 0 {
		cfg.RefreshInterval = time.Duration(s.Daemon.RefreshIntervalHours) * time.Hour
	}
	if s.Daemon.BackupDelayMinutes > 0 {
		cfg.BackupRefreshDelay = time.Duration(s.Daemon.BackupDelayMinutes) * time.Minute
	}
	cfg.Steps = s.ScheduleSteps()
	return cfg
}

// ScheduleSteps converts the configured steps to their domain form.
func (s Settings) ScheduleSteps() []domain.ScheduleStep {
	if len(s.Daemon.Steps) == 0 {
		return nil
	}
	steps := make([]domain.ScheduleStep, 0, len(s.Daemon.Steps))
	for _, step := range s.Daemon.Steps {
		steps = append(steps, domain.ScheduleStep{
			At:            step.At,
			TargetPercent: step.Percent,
			Label:         step.Label,
		})
	}
	return steps
}

// Store is a file-based settings store using TOML.
// Configuration is stored in a TOML file within the voltaic config directory.
type Store struct {
	mu       sync.RWMutex
	filePath string
	settings Settings
}

// NewStore creates a TOML-based settings store.
// If configDir is empty, defaults to ~/.voltaic/config.toml.
func NewStore(configDir string) (*Store, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".voltaic")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &Store{
		filePath: filepath.Join(configDir, "config.toml"),
	}

	// Load existing data if file exists
	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

// Settings returns a copy of the current settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update applies fn to the settings and persists the result.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.settings)
	return s.save()
}

// Save persists the current settings to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes settings to the TOML file (caller must hold lock).
func (s *Store) save() error {
	data, err := toml.Marshal(s.settings)
	if err != nil {
		return err
	}

	// Write with restricted permissions
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads settings from the TOML file.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file yet - that's fine, start with defaults
			s.settings = Settings{}
			return nil
		}
		return err
	}

	var loaded Settings
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return err
	}

	s.settings = loaded
	return nil
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return s.filePath
}
