// Package cli provides the cobra command tree for the voltaic binary.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
	"github.com/voltaic-labs/voltaic/internal/core/ports/driven"
	"github.com/voltaic-labs/voltaic/internal/core/ports/driving"
	"github.com/voltaic-labs/voltaic/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// SchedulerRunner is the slice of the in-process scheduler the CLI drives.
type SchedulerRunner interface {
	Start(ctx context.Context) error
	Stop() error
	Reload(ctx context.Context, steps []domain.ScheduleStep) error
}

// Services injected by Wire before Execute runs.
var (
	tokenService    driving.TokenManager
	dispatchService driving.Dispatcher
	fleetAPI        driven.FleetAPI
	secretStore     driven.SecretStore
	historyStore    driven.SchedulerStore
	scheduler       SchedulerRunner

	// watchConfig blocks watching the config file, calling back with the
	// reloaded schedule steps. Nil when daemon reload is unavailable.
	watchConfig func(ctx context.Context, onReload func([]domain.ScheduleStep)) error
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "voltaic",
	Short: "Powerwall token lifecycle and backup reserve scheduler",
	Long: `voltaic keeps a Fleet API token pair fresh and applies scheduled
backup reserve changes to a Powerwall site.

Each command is one complete, stateless invocation: it reads the secret
store, talks to the remote API, writes back at most once, and reports the
outcome to the configured webhook. Invocations are safe to trigger
redundantly; a failed run is healed by the next one.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Deps holds everything the command tree needs.
type Deps struct {
	Tokens     driving.TokenManager
	Dispatcher driving.Dispatcher
	Fleet      driven.FleetAPI
	Secrets    driven.SecretStore
	History    driven.SchedulerStore

	// Scheduler and WatchConfig are only needed by `voltaic run`.
	Scheduler   SchedulerRunner
	WatchConfig func(ctx context.Context, onReload func([]domain.ScheduleStep)) error
}

// Wire injects service implementations. Must be called before Execute.
func Wire(deps Deps) {
	tokenService = deps.Tokens
	dispatchService = deps.Dispatcher
	fleetAPI = deps.Fleet
	secretStore = deps.Secrets
	historyStore = deps.History
	scheduler = deps.Scheduler
	watchConfig = deps.WatchConfig
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
