package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Styles for status output.
var (
	statusTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#06B6D4"))

	statusLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6C7086")).
				Width(16)

	statusGoodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1"))

	statusWarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F9E2AF"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show site info and live battery status",
	Long: `Reads the current backup reserve, charge level, and power flows
from the battery site. Read-only: no state is changed.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if tokenService == nil || fleetAPI == nil {
		return errors.New("services not configured")
	}

	ctx := context.Background()

	token, err := tokenService.ValidAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("acquire token: %w", err)
	}

	site, err := fleetAPI.ResolveBatterySite(ctx, token)
	if err != nil {
		return fmt.Errorf("resolve site: %w", err)
	}

	info, err := fleetAPI.SiteInfo(ctx, token, site.ID)
	if err != nil {
		return fmt.Errorf("read site info: %w", err)
	}

	name := info.SiteName
	if name == "" {
		name = site.Name
	}
	cmd.Println(statusTitleStyle.Render(fmt.Sprintf("Site %s (%s)", name, site.ID)))
	cmd.Printf("%s %g%%\n", statusLabelStyle.Render("Backup reserve"), info.BackupReservePercent)

	// Live status is best-effort; the reserve reading above is the point.
	live, err := fleetAPI.LiveStatus(ctx, token, site.ID)
	if err != nil {
		cmd.Println(statusWarnStyle.Render("Live status unavailable: " + err.Error()))
		return nil
	}

	charge := fmt.Sprintf("%.1f%%", live.PercentageCharged)
	if live.PercentageCharged >= info.BackupReservePercent {
		charge = statusGoodStyle.Render(charge)
	} else {
		charge = statusWarnStyle.Render(charge + " (below reserve)")
	}
	cmd.Printf("%s %s\n", statusLabelStyle.Render("Charge"), charge)

	flow := "discharging"
	if live.Charging() {
		flow = "charging"
	}
	cmd.Printf("%s %.0f W (%s)\n", statusLabelStyle.Render("Battery"), live.BatteryPower, flow)
	cmd.Printf("%s %.0f W\n", statusLabelStyle.Render("Solar"), live.SolarPower)
	cmd.Printf("%s %.0f W\n", statusLabelStyle.Render("Load"), live.LoadPower)

	return nil
}
