package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [task-id]",
	Short: "List recent invocation outcomes",
	Long: `Lists recent invocation outcomes recorded by refresh and apply runs
and by the in-process scheduler.

Without an argument, history for the built-in tasks is shown. Pass a task
ID (token-refresh, token-refresh-backup, reserve-apply, or a scheduler
step ID like reserve-apply:23:00) to filter.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "maximum results per task")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyStore == nil {
		return errors.New("history store not configured")
	}

	ctx := context.Background()

	taskIDs := []string{
		domain.TaskIDTokenRefresh,
		domain.TaskIDTokenRefreshBackup,
		domain.TaskIDReserveApply,
	}
	if len(args) == 1 {
		taskIDs = []string{args[0]}
	}

	found := false
	for _, taskID := range taskIDs {
		results, err := historyStore.GetTaskHistory(ctx, taskID, historyLimit)
		if err != nil {
			return fmt.Errorf("read history for %s: %w", taskID, err)
		}
		if len(results) == 0 {
			continue
		}
		found = true

		cmd.Printf("%s:\n", taskID)
		for i := range results {
			cmd.Printf("  %s  %s\n", results[i].StartedAt.UTC().Format(time.RFC3339), formatResult(&results[i]))
		}
		cmd.Println()
	}

	if !found {
		cmd.Println("No history recorded yet.")
	}
	return nil
}

func formatResult(r *domain.TaskResult) string {
	if r.Success {
		if r.Detail != "" {
			return "ok  " + r.Detail
		}
		return "ok"
	}
	return "FAILED  " + r.Error
}
