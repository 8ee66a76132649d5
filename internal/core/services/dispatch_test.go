package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
	"github.com/voltaic-labs/voltaic/internal/core/ports/driving"
)

func newTestDispatchService(secrets *mockSecretStore, fleet *mockFleetAPI, notifier *mockNotifier) *DispatchService {
	tokens := newTestTokenService(secrets, fleet, notifier)
	svc := NewDispatchService(tokens, fleet, notifier)
	svc.SetRetryPolicy(fastRetry())
	return svc
}

// freshSecrets returns a store holding a token pair that will not need an
// inline refresh.
func freshSecrets() *mockSecretStore {
	secrets := newMockSecretStore()
	secrets.record = domain.TokenRecord{
		AccessToken:  "access",
		RefreshToken: "rt",
		AccessExpiry: time.Now().Add(time.Hour),
	}
	return secrets
}

func TestDispatchService_Apply_Success(t *testing.T) {
	secrets := freshSecrets()
	fleet := newMockFleetAPI()
	notifier := &mockNotifier{}
	svc := newTestDispatchService(secrets, fleet, notifier)

	cmd := domain.ReserveCommand{TargetPercent: 100, Label: "pre-peak"}
	report, err := svc.Apply(context.Background(), cmd)
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, driving.StateSuccess, report.State)
	assert.Equal(t, "12345", report.SiteID)
	require.NotNil(t, report.PreviousPercent)
	assert.Equal(t, float64(20), *report.PreviousPercent)
	assert.Equal(t, 1, report.Attempts)
	assert.Equal(t, []int{100}, fleet.reservePercents)

	events := notifier.sent()
	require.Len(t, events, 1)
	assert.Equal(t, domain.SeveritySuccess, events[0].Severity)
	assert.Equal(t, "100%", events[0].Detail["new_reserve"])
	assert.Equal(t, "20%", events[0].Detail["old_reserve"])
	assert.Equal(t, "pre-peak", events[0].Detail["schedule"])
	assert.Equal(t, "req-1", events[0].Detail["request_id"])
	assert.Equal(t, "81.5%", events[0].Detail["battery_charge"])
	assert.Contains(t, events[0].Detail["battery_power"], "charging")
}

func TestDispatchService_Apply_RejectOutOfRange(t *testing.T) {
	secrets := freshSecrets()
	fleet := newMockFleetAPI()
	notifier := &mockNotifier{}
	svc := newTestDispatchService(secrets, fleet, notifier)

	cmd := domain.ReserveCommand{TargetPercent: 150, Label: "bad"}
	report, err := svc.Apply(context.Background(), cmd)
	require.ErrorIs(t, err, domain.ErrPercentOutOfRange)
	assert.Equal(t, driving.StateReject, report.State)

	// Fail closed: zero remote calls of any kind.
	assert.Equal(t, 0, fleet.refreshCalls)
	assert.Equal(t, 0, fleet.resolveCalls)
	assert.Equal(t, 0, fleet.reserveCalls)

	events := notifier.sent()
	require.Len(t, events, 1)
	assert.Equal(t, domain.SeverityWarning, events[0].Severity)
	assert.Equal(t, "150", events[0].Detail["target_percent"])
	assert.Equal(t, "0-100", events[0].Detail["allowed_range"])
}

func TestDispatchService_Apply_AbortWhenNoToken(t *testing.T) {
	secrets := newMockSecretStore() // no tokens at all
	fleet := newMockFleetAPI()
	fleet.refreshErrs = []error{domain.ErrRefreshTokenRejected}
	notifier := &mockNotifier{}
	svc := newTestDispatchService(secrets, fleet, notifier)

	cmd := domain.ReserveCommand{TargetPercent: 50}
	report, err := svc.Apply(context.Background(), cmd)
	require.Error(t, err)
	assert.Equal(t, driving.StateAbort, report.State)
	assert.Equal(t, 0, fleet.reserveCalls)

	events := notifier.sent()
	require.Len(t, events, 1)
	assert.Equal(t, domain.SeverityError, events[0].Severity)
}

func TestDispatchService_Apply_AbortOnMultipleSites(t *testing.T) {
	secrets := freshSecrets()
	fleet := newMockFleetAPI()
	fleet.resolveErr = domain.ErrMultipleSites
	notifier := &mockNotifier{}
	svc := newTestDispatchService(secrets, fleet, notifier)

	cmd := domain.ReserveCommand{TargetPercent: 50}
	report, err := svc.Apply(context.Background(), cmd)
	require.ErrorIs(t, err, domain.ErrMultipleSites)
	assert.Equal(t, driving.StateAbort, report.State)
	assert.Equal(t, 0, fleet.reserveCalls)
}

func TestDispatchService_Apply_TransientFailuresThenSuccess(t *testing.T) {
	secrets := freshSecrets()
	fleet := newMockFleetAPI()
	fleet.reserveErrs = []error{
		fmt.Errorf("timeout: %w", domain.ErrRemoteTransient),
		fmt.Errorf("timeout: %w", domain.ErrRemoteTransient),
	}
	notifier := &mockNotifier{}
	svc := newTestDispatchService(secrets, fleet, notifier)

	cmd := domain.ReserveCommand{TargetPercent: 20, Label: "post-peak"}
	report, err := svc.Apply(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, driving.StateSuccess, report.State)
	assert.Equal(t, 3, report.Attempts)
	// Two retries means at most three command calls.
	assert.Equal(t, 3, fleet.reserveCalls)

	events := notifier.sent()
	require.Len(t, events, 1)
	assert.Equal(t, domain.SeveritySuccess, events[0].Severity)
}

func TestDispatchService_Apply_FailureAfterExhaustion(t *testing.T) {
	secrets := freshSecrets()
	fleet := newMockFleetAPI()
	fleet.reserveErrs = []error{
		fmt.Errorf("timeout: %w", domain.ErrRemoteTransient),
		fmt.Errorf("timeout: %w", domain.ErrRemoteTransient),
		fmt.Errorf("timeout: %w", domain.ErrRemoteTransient),
	}
	notifier := &mockNotifier{}
	svc := newTestDispatchService(secrets, fleet, notifier)

	cmd := domain.ReserveCommand{TargetPercent: 20}
	report, err := svc.Apply(context.Background(), cmd)
	require.Error(t, err)
	assert.Equal(t, driving.StateFailure, report.State)
	assert.Equal(t, 3, fleet.reserveCalls)

	events := notifier.sent()
	require.Len(t, events, 1)
	assert.Equal(t, domain.SeverityError, events[0].Severity)
	assert.Equal(t, "3", events[0].Detail["attempts"])
}

func TestDispatchService_Apply_PermanentFailureNotRetried(t *testing.T) {
	secrets := freshSecrets()
	fleet := newMockFleetAPI()
	fleet.reserveErrs = []error{fmt.Errorf("bad request: %w", domain.ErrRemotePermanent)}
	notifier := &mockNotifier{}
	svc := newTestDispatchService(secrets, fleet, notifier)

	cmd := domain.ReserveCommand{TargetPercent: 20}
	report, err := svc.Apply(context.Background(), cmd)
	require.Error(t, err)
	assert.Equal(t, driving.StateFailure, report.State)
	assert.Equal(t, 1, fleet.reserveCalls)
}

func TestDispatchService_Apply_SiteInfoFailureOnlyOmitsContrast(t *testing.T) {
	secrets := freshSecrets()
	fleet := newMockFleetAPI()
	fleet.infoErr = fmt.Errorf("info unavailable: %w", domain.ErrRemoteTransient)
	notifier := &mockNotifier{}
	svc := newTestDispatchService(secrets, fleet, notifier)

	cmd := domain.ReserveCommand{TargetPercent: 50}
	report, err := svc.Apply(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, driving.StateSuccess, report.State)
	assert.Nil(t, report.PreviousPercent)

	events := notifier.sent()
	require.Len(t, events, 1)
	assert.NotContains(t, events[0].Detail, "old_reserve")
}

func TestDispatchService_Apply_LiveStatusFailureKeepsSuccess(t *testing.T) {
	secrets := freshSecrets()
	fleet := newMockFleetAPI()
	fleet.liveErr = fmt.Errorf("status unavailable: %w", domain.ErrRemoteTransient)
	notifier := &mockNotifier{}
	svc := newTestDispatchService(secrets, fleet, notifier)

	cmd := domain.ReserveCommand{TargetPercent: 50}
	report, err := svc.Apply(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, driving.StateSuccess, report.State)

	events := notifier.sent()
	require.Len(t, events, 1)
	assert.Equal(t, domain.SeveritySuccess, events[0].Severity)
	assert.NotContains(t, events[0].Detail, "battery_charge")
}

func TestDispatchService_Apply_NotifierFailureDoesNotChangeOutcome(t *testing.T) {
	secrets := freshSecrets()
	fleet := newMockFleetAPI()
	notifier := &mockNotifier{sendErr: fmt.Errorf("webhook down")}
	svc := newTestDispatchService(secrets, fleet, notifier)

	cmd := domain.ReserveCommand{TargetPercent: 50}
	report, err := svc.Apply(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, driving.StateSuccess, report.State)
	assert.Equal(t, 1, fleet.reserveCalls)
}

func TestDispatchService_Apply_StaleTokenRefreshedInlineSingleEvent(t *testing.T) {
	secrets := newMockSecretStore()
	secrets.record = domain.TokenRecord{
		AccessToken:  "stale",
		RefreshToken: "rt",
		AccessExpiry: time.Now().Add(time.Minute),
	}
	fleet := newMockFleetAPI()
	fleet.exchange.Expiry = time.Now().Add(8 * time.Hour)
	notifier := &mockNotifier{}
	svc := newTestDispatchService(secrets, fleet, notifier)

	cmd := domain.ReserveCommand{TargetPercent: 50, Label: "test"}
	report, err := svc.Apply(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, driving.StateSuccess, report.State)
	assert.Equal(t, 1, fleet.refreshCalls)

	// The inline refresh emitted nothing; the terminal state is the one
	// event of the invocation.
	events := notifier.sent()
	require.Len(t, events, 1)
	assert.Equal(t, domain.SeveritySuccess, events[0].Severity)
}
