package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
	"github.com/voltaic-labs/voltaic/internal/core/ports/driving"
)

var (
	applyPercent int
	applyLabel   string
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Set the backup reserve percentage",
	Long: `Applies one backup reserve change to the configured battery site.

The invocation validates the target, acquires a fresh access token
(refreshing inline if the stored one is stale), resolves the single battery
site on the account, and issues the command with bounded retries. Setting
the reserve above the current charge level forces the battery to charge
from the grid; setting it below lets it discharge to loads.

Examples:
  voltaic apply --percent 100 --label "pre-peak charge"
  voltaic apply --percent 20`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().IntVar(&applyPercent, "percent", -1, "target reserve percent (0-100)")
	applyCmd.Flags().StringVar(&applyLabel, "label", "", "label for notifications and history")
	_ = applyCmd.MarkFlagRequired("percent")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, _ []string) error {
	if dispatchService == nil {
		return errors.New("dispatch service not configured")
	}

	ctx := context.Background()
	command := domain.ReserveCommand{TargetPercent: applyPercent, Label: applyLabel}

	started := time.Now()
	report, err := dispatchService.Apply(ctx, command)

	result := domain.TaskResult{
		TaskID:    domain.TaskIDReserveApply,
		StartedAt: started,
		EndedAt:   time.Now(),
		Success:   err == nil,
	}
	if err != nil {
		result.Error = err.Error()
	}
	if report != nil {
		result.Detail = applyDetail(report, applyPercent)
	}
	recordHistory(ctx, &result)

	if err != nil {
		return fmt.Errorf("reserve command failed: %w", err)
	}

	if report.PreviousPercent != nil {
		cmd.Printf("Backup reserve set: %g%% -> %d%% (site %s)\n",
			*report.PreviousPercent, applyPercent, report.SiteID)
	} else {
		cmd.Printf("Backup reserve set to %d%% (site %s)\n", applyPercent, report.SiteID)
	}
	if report.Attempts > 1 {
		cmd.Printf("Succeeded after %d attempts.\n", report.Attempts)
	}
	return nil
}

func applyDetail(report *driving.DispatchReport, target int) string {
	if report.PreviousPercent != nil {
		return fmt.Sprintf("reserve %g%% -> %d%% (%s)", *report.PreviousPercent, target, report.State)
	}
	return fmt.Sprintf("reserve -> %d%% (%s)", target, report.State)
}
