package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
	"github.com/voltaic-labs/voltaic/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the in-process scheduler",
	Long: `Runs voltaic as a long-lived process for hosts without an external
timer. The scheduler drives the same invocations the one-shot commands do:
a primary token refresh, a redundant backup refresh a fixed delay later,
and the configured nightly reserve steps.

Schedule steps are re-read when the config file changes; no restart needed.
Stop with SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watchConfig != nil {
		go func() {
			err := watchConfig(ctx, func(steps []domain.ScheduleStep) {
				if err := scheduler.Reload(ctx, steps); err != nil {
					logger.Warn("schedule reload failed: %v", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("config watcher stopped: %v", err)
			}
		}()
	}

	cmd.Println("Scheduler running. Press Ctrl+C to stop.")
	err := scheduler.Start(ctx)

	// Shutdown on signal is the normal exit path.
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if stopErr := scheduler.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}
