package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
	"github.com/voltaic-labs/voltaic/internal/logger"
)

var refreshBackup bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the Fleet API token pair",
	Long: `Performs one complete token refresh invocation: reads the stored
refresh token, exchanges it for a new access/refresh pair, and persists the
result atomically. A failed attempt never overwrites stored token material.

Run this from two independent timers (primary and backup) for redundancy;
the two runs need no coordination.

Examples:
  voltaic refresh             # primary trigger
  voltaic refresh --backup    # redundant backup trigger`,
	Args: cobra.NoArgs,
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshBackup, "backup", false, "record this run as the backup trigger")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	if tokenService == nil {
		return errors.New("token service not configured")
	}

	ctx := context.Background()
	taskID := domain.TaskIDTokenRefresh
	if refreshBackup {
		taskID = domain.TaskIDTokenRefreshBackup
	}

	started := time.Now()
	report, err := tokenService.Refresh(ctx)

	result := domain.TaskResult{
		TaskID:    taskID,
		StartedAt: started,
		EndedAt:   time.Now(),
		Success:   err == nil,
	}
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Detail = fmt.Sprintf("valid until %s",
			report.Record.AccessExpiry.UTC().Format(time.RFC3339))
	}
	recordHistory(ctx, &result)

	if err != nil {
		return fmt.Errorf("token refresh failed: %w", err)
	}

	cmd.Printf("Token refreshed, valid until %s\n",
		report.Record.AccessExpiry.UTC().Format(time.RFC3339))
	if report.Rotated {
		cmd.Println("Refresh token rotated.")
	}
	if report.Attempts > 1 {
		cmd.Printf("Succeeded after %d attempts.\n", report.Attempts)
	}
	return nil
}

// recordHistory persists an invocation outcome. History is bookkeeping:
// failure to record never changes the invocation result.
func recordHistory(ctx context.Context, result *domain.TaskResult) {
	if historyStore == nil {
		return
	}
	if err := historyStore.RecordResult(ctx, result); err != nil {
		logger.Warn("could not record invocation history: %v", err)
	}
}
