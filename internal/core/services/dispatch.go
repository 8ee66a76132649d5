package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
	"github.com/voltaic-labs/voltaic/internal/core/ports/driven"
	"github.com/voltaic-labs/voltaic/internal/core/ports/driving"
	"github.com/voltaic-labs/voltaic/internal/logger"
)

// Ensure DispatchService implements the interface.
var _ driving.Dispatcher = (*DispatchService)(nil)

// DispatchService translates one ReserveCommand into exactly one applied
// remote state change. Per invocation it walks
//
//	Start -> Validate -> AcquireToken -> ResolveSite -> Execute
//
// and every terminal state (Reject, Abort, Success, Failure) produces
// exactly one notification.
type DispatchService struct {
	tokens   driving.TokenManager
	fleet    driven.FleetAPI
	notifier driven.Notifier
	retry    RetryPolicy
}

// NewDispatchService creates the command dispatcher.
func NewDispatchService(
	tokens driving.TokenManager,
	fleet driven.FleetAPI,
	notifier driven.Notifier,
) *DispatchService {
	return &DispatchService{
		tokens:   tokens,
		fleet:    fleet,
		notifier: notifier,
		retry:    DefaultRetryPolicy(),
	}
}

// SetRetryPolicy overrides the default transient-failure retry schedule.
func (s *DispatchService) SetRetryPolicy(p RetryPolicy) {
	s.retry = p
}

// Apply runs the dispatch state machine for cmd.
func (s *DispatchService) Apply(ctx context.Context, cmd domain.ReserveCommand) (*driving.DispatchReport, error) {
	// Validate. Fail closed: malformed schedule input never reaches the
	// remote device.
	if err := cmd.Validate(); err != nil {
		emit(ctx, s.notifier, domain.NewNotificationEvent(
			domain.SeverityWarning,
			"Reserve command rejected",
			map[string]string{
				"target_percent": strconv.Itoa(cmd.TargetPercent),
				"allowed_range":  fmt.Sprintf("%d-%d", domain.MinReservePercent, domain.MaxReservePercent),
				"schedule":       cmd.Label,
			},
		))
		return &driving.DispatchReport{State: driving.StateReject}, err
	}

	// AcquireToken. Never attempt the device command without one.
	token, err := s.tokens.ValidAccessToken(ctx)
	if err != nil {
		emit(ctx, s.notifier, domain.NewNotificationEvent(
			domain.SeverityError,
			"Reserve command aborted: no valid access token",
			map[string]string{
				"error":    err.Error(),
				"schedule": cmd.Label,
			},
		))
		return &driving.DispatchReport{State: driving.StateAbort}, fmt.Errorf("acquire token: %w", err)
	}

	// ResolveSite. A single lookup; zero or ambiguous results abort.
	site, err := s.fleet.ResolveBatterySite(ctx, token)
	if err != nil {
		emit(ctx, s.notifier, domain.NewNotificationEvent(
			domain.SeverityError,
			"Reserve command aborted: site resolution failed",
			map[string]string{
				"error":    err.Error(),
				"schedule": cmd.Label,
			},
		))
		return &driving.DispatchReport{State: driving.StateAbort}, fmt.Errorf("resolve site: %w", err)
	}
	logger.Debug("resolved battery site %s", site.ID)

	// Best-effort read of the previous reserve for the before/after
	// contrast. Failure only omits detail, never aborts the command.
	var prevPercent *float64
	if info, infoErr := s.fleet.SiteInfo(ctx, token, site.ID); infoErr == nil {
		prevPercent = &info.BackupReservePercent
	} else {
		logger.Warn("could not read previous reserve: %v", infoErr)
	}

	// Execute with bounded retries for transient failures.
	var requestID string
	result := withRetry(ctx, s.retry, "reserve command", func(ctx context.Context) error {
		var execErr error
		requestID, execErr = s.fleet.SetBackupReserve(ctx, token, site.ID, cmd.TargetPercent)
		return execErr
	})

	report := &driving.DispatchReport{
		SiteID:          site.ID,
		PreviousPercent: prevPercent,
		Attempts:        result.attempts,
	}

	if result.err != nil {
		report.State = driving.StateFailure
		emit(ctx, s.notifier, domain.NewNotificationEvent(
			domain.SeverityError,
			"Reserve command failed",
			map[string]string{
				"error":          result.err.Error(),
				"attempts":       strconv.Itoa(result.attempts),
				"target_percent": strconv.Itoa(cmd.TargetPercent),
				"schedule":       cmd.Label,
				"site":           site.ID,
			},
		))
		return report, fmt.Errorf("set backup reserve: %w", result.err)
	}

	report.State = driving.StateSuccess
	logger.Info("backup reserve set to %d%% on site %s", cmd.TargetPercent, site.ID)

	detail := map[string]string{
		"new_reserve": fmt.Sprintf("%d%%", cmd.TargetPercent),
		"schedule":    cmd.Label,
		"site":        site.ID,
	}
	if prevPercent != nil {
		detail["old_reserve"] = fmt.Sprintf("%g%%", *prevPercent)
	}
	if requestID != "" {
		detail["request_id"] = requestID
	}
	addLiveStatus(ctx, s.fleet, token, site.ID, detail)

	emit(ctx, s.notifier, domain.NewNotificationEvent(
		domain.SeveritySuccess, "Backup reserve updated", detail))

	return report, nil
}

// addLiveStatus enriches detail with a live snapshot. Best-effort: failure
// to fetch can only reduce notification detail, never the outcome.
func addLiveStatus(ctx context.Context, api driven.FleetAPI, token, siteID string, detail map[string]string) {
	// Bound separately so a slow status read cannot stall the invocation
	// after the command already succeeded.
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	status, err := api.LiveStatus(ctx, token, siteID)
	if err != nil {
		logger.Warn("could not fetch live status for notification: %v", err)
		return
	}

	detail["battery_charge"] = fmt.Sprintf("%.1f%%", status.PercentageCharged)
	flow := "discharging"
	if status.Charging() {
		flow = "charging"
	}
	detail["battery_power"] = fmt.Sprintf("%.0fW (%s)", status.BatteryPower, flow)
	detail["solar_power"] = fmt.Sprintf("%.0fW", status.SolarPower)
	detail["load_power"] = fmt.Sprintf("%.0fW", status.LoadPower)
}
