package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
	"github.com/voltaic-labs/voltaic/internal/core/ports/driven"
	"github.com/voltaic-labs/voltaic/internal/core/ports/driving"
	"github.com/voltaic-labs/voltaic/internal/logger"
)

// Ensure TokenService implements the interface.
var _ driving.TokenManager = (*TokenService)(nil)

// TokenService owns the credential lifecycle. Each call is a complete,
// stateless invocation: it re-reads the secret store, never caches tokens
// between calls, and writes back at most once. Two uncoordinated triggers
// (primary and backup refresh) can safely overlap; the store's
// last-successful-write-wins discipline keeps the pair self-consistent.
type TokenService struct {
	secrets  driven.SecretStore
	fleet    driven.FleetAPI
	notifier driven.Notifier
	retry    RetryPolicy

	// steps are the configured reserve changes expected before the next
	// refresh; listed in success notifications.
	steps []domain.ScheduleStep

	now func() time.Time
}

// NewTokenService creates the token lifecycle manager.
func NewTokenService(
	secrets driven.SecretStore,
	fleet driven.FleetAPI,
	notifier driven.Notifier,
	steps []domain.ScheduleStep,
) *TokenService {
	return &TokenService{
		secrets:  secrets,
		fleet:    fleet,
		notifier: notifier,
		retry:    DefaultRetryPolicy(),
		steps:    steps,
		now:      time.Now,
	}
}

// SetRetryPolicy overrides the default transient-failure retry schedule.
func (s *TokenService) SetRetryPolicy(p RetryPolicy) {
	s.retry = p
}

// Refresh performs one complete refresh invocation and emits exactly one
// notification describing the outcome.
func (s *TokenService) Refresh(ctx context.Context) (*driving.RefreshReport, error) {
	report, err := s.refresh(ctx, true)
	return report, err
}

// ValidAccessToken returns an access token whose recorded expiry is more
// than the safety margin away, refreshing inline otherwise. It always
// re-reads the store so a racing refresh's write is picked up.
//
// The inline refresh does not emit its own notification; the caller's
// terminal state carries the outcome, keeping one event per invocation.
func (s *TokenService) ValidAccessToken(ctx context.Context) (string, error) {
	rec, err := s.secrets.TokenRecord(ctx)
	if err != nil {
		return "", fmt.Errorf("read token record: %w", err)
	}

	if rec.FreshAt(s.now()) {
		return rec.AccessToken, nil
	}

	logger.Info("stored access token stale or missing, refreshing inline")
	if _, err := s.refresh(ctx, false); err != nil {
		return "", err
	}

	// Re-read rather than trusting the in-flight result; a concurrent
	// refresh may have written a newer pair.
	rec, err = s.secrets.TokenRecord(ctx)
	if err != nil {
		return "", fmt.Errorf("re-read token record: %w", err)
	}
	if !rec.FreshAt(s.now()) {
		return "", domain.ErrAccessTokenMissing
	}
	return rec.AccessToken, nil
}

// refresh runs the refresh algorithm. When notify is true the terminal
// outcome is reported to the sink.
func (s *TokenService) refresh(ctx context.Context, notify bool) (*driving.RefreshReport, error) {
	started := s.now()

	creds, err := s.secrets.Credentials(ctx)
	if err != nil {
		// Absent credentials are unrecoverable without provisioning; a
		// store read failure is transient from the caller's view.
		severity := domain.SeverityError
		title := "Token refresh failed: secret store unavailable"
		detail := map[string]string{"error": err.Error()}
		if errors.Is(err, domain.ErrCredentialsMissing) {
			severity = domain.SeverityFatal
			title = "Token refresh failed: credentials missing"
			detail["action"] = "provision client credentials, then re-run"
		}
		if notify {
			emit(ctx, s.notifier, domain.NewNotificationEvent(severity, title, detail))
		}
		return nil, err
	}

	rec, err := s.secrets.TokenRecord(ctx)
	if err != nil {
		if notify {
			emit(ctx, s.notifier, domain.NewNotificationEvent(
				domain.SeverityError,
				"Token refresh failed: secret store unavailable",
				map[string]string{"error": err.Error()},
			))
		}
		return nil, fmt.Errorf("read token record: %w", err)
	}

	if !rec.HasRefreshToken() {
		// Unrecoverable without the interactive authorization flow.
		if notify {
			emit(ctx, s.notifier, domain.NewNotificationEvent(
				domain.SeverityFatal,
				"Token refresh impossible: no refresh token",
				map[string]string{
					"action": "re-run the one-time authorization and store new tokens",
				},
			))
		}
		return nil, domain.ErrRefreshTokenMissing
	}

	var exch *domain.TokenExchange
	result := withRetry(ctx, s.retry, "token refresh", func(ctx context.Context) error {
		var grantErr error
		exch, grantErr = s.fleet.RefreshTokens(ctx, creds, rec.RefreshToken)
		return grantErr
	})

	if result.err != nil {
		s.recordFailedAttempt(ctx, started)

		severity := domain.SeverityError
		title := "Token refresh failed"
		detail := map[string]string{
			"error":    result.err.Error(),
			"attempts": strconv.Itoa(result.attempts),
		}
		if domain.IsCredentialError(result.err) {
			severity = domain.SeverityFatal
			title = "Token refresh rejected: re-authorization required"
			detail["action"] = "refresh token expired or revoked; regenerate via the authorization flow"
		}
		if notify {
			emit(ctx, s.notifier, domain.NewNotificationEvent(severity, title, detail))
		}
		return nil, result.err
	}

	rotated := exch.RefreshToken != rec.RefreshToken

	newRec := domain.TokenRecord{
		AccessToken:        exch.AccessToken,
		RefreshToken:       exch.RefreshToken,
		AccessExpiry:       exch.Expiry,
		LastRefreshAttempt: started,
		LastRefreshOutcome: domain.RefreshSucceeded,
	}
	if err := s.secrets.SaveTokenRecord(ctx, newRec); err != nil {
		if notify {
			emit(ctx, s.notifier, domain.NewNotificationEvent(
				domain.SeverityError,
				"Token refresh succeeded but could not be stored",
				map[string]string{"error": err.Error()},
			))
		}
		return nil, fmt.Errorf("store refreshed tokens: %w", err)
	}

	logger.Info("token refresh succeeded, access token valid until %s",
		newRec.AccessExpiry.Format(time.RFC3339))

	if notify {
		detail := map[string]string{
			"valid_until":   newRec.AccessExpiry.UTC().Format(time.RFC3339),
			"rotated":       strconv.FormatBool(rotated),
			"attempts":      strconv.Itoa(result.attempts),
			"next_schedule": formatSteps(s.steps),
		}
		emit(ctx, s.notifier, domain.NewNotificationEvent(
			domain.SeveritySuccess, "Token refresh successful", detail))
	}

	return &driving.RefreshReport{
		Record:   newRec,
		Rotated:  rotated,
		Attempts: result.attempts,
	}, nil
}

// recordFailedAttempt writes only the attempt bookkeeping. Token material
// is never overwritten by a failed attempt.
func (s *TokenService) recordFailedAttempt(ctx context.Context, at time.Time) {
	attempt := domain.TokenRecord{
		LastRefreshAttempt: at,
		LastRefreshOutcome: domain.RefreshFailed,
	}
	if err := s.secrets.RecordRefreshAttempt(ctx, attempt); err != nil {
		logger.Warn("could not record failed refresh attempt: %v", err)
	}
}

// formatSteps renders the configured reserve plan for notifications.
func formatSteps(steps []domain.ScheduleStep) string {
	if len(steps) == 0 {
		return "none configured"
	}
	parts := make([]string, 0, len(steps))
	for _, step := range steps {
		parts = append(parts, fmt.Sprintf("%s -> %d%%", step.At, step.TargetPercent))
	}
	return strings.Join(parts, ", ")
}
