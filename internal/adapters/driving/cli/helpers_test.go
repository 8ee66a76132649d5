package cli

import (
	"context"

	"github.com/voltaic-labs/voltaic/internal/adapters/driven/storage/memory"
	"github.com/voltaic-labs/voltaic/internal/core/domain"
	"github.com/voltaic-labs/voltaic/internal/core/ports/driving"
)

// --- Stub services for command tests ---

type stubTokenManager struct {
	report   *driving.RefreshReport
	err      error
	token    string
	tokenErr error

	refreshCalls int
}

func (s *stubTokenManager) Refresh(_ context.Context) (*driving.RefreshReport, error) {
	s.refreshCalls++
	return s.report, s.err
}

func (s *stubTokenManager) ValidAccessToken(_ context.Context) (string, error) {
	return s.token, s.tokenErr
}

type stubDispatcher struct {
	report *driving.DispatchReport
	err    error

	gotCmd domain.ReserveCommand
	calls  int
}

func (s *stubDispatcher) Apply(_ context.Context, cmd domain.ReserveCommand) (*driving.DispatchReport, error) {
	s.calls++
	s.gotCmd = cmd
	return s.report, s.err
}

type stubFleet struct {
	site *domain.Site
	info *domain.SiteInfo
	live *domain.LiveStatus

	siteErr error
	infoErr error
	liveErr error
}

func (s *stubFleet) RefreshTokens(_ context.Context, _ domain.CredentialPair, _ string) (*domain.TokenExchange, error) {
	return nil, domain.ErrNotImplemented
}

func (s *stubFleet) ExchangeCode(_ context.Context, _ domain.CredentialPair, _, _ string) (*domain.TokenExchange, error) {
	return nil, domain.ErrNotImplemented
}

func (s *stubFleet) ResolveBatterySite(_ context.Context, _ string) (*domain.Site, error) {
	if s.siteErr != nil {
		return nil, s.siteErr
	}
	return s.site, nil
}

func (s *stubFleet) SiteInfo(_ context.Context, _, _ string) (*domain.SiteInfo, error) {
	if s.infoErr != nil {
		return nil, s.infoErr
	}
	return s.info, nil
}

func (s *stubFleet) LiveStatus(_ context.Context, _, _ string) (*domain.LiveStatus, error) {
	if s.liveErr != nil {
		return nil, s.liveErr
	}
	return s.live, nil
}

func (s *stubFleet) SetBackupReserve(_ context.Context, _, _ string, _ int) (string, error) {
	return "", domain.ErrNotImplemented
}

// testServices bundles the stubs wired by setupTestServices.
type testServices struct {
	tokens     *stubTokenManager
	dispatcher *stubDispatcher
	fleet      *stubFleet
	secrets    *memory.SecretStore
	history    *memory.SchedulerStore
}

// setupTestServices wires stub services into the command tree and returns
// them alongside a cleanup that restores the unwired state.
func setupTestServices() (*testServices, func()) {
	s := &testServices{
		tokens: &stubTokenManager{token: "access"},
		dispatcher: &stubDispatcher{
			report: &driving.DispatchReport{State: driving.StateSuccess, SiteID: "12345", Attempts: 1},
		},
		fleet: &stubFleet{
			site: &domain.Site{ID: "12345", Name: "Home"},
			info: &domain.SiteInfo{BackupReservePercent: 20, SiteName: "Home"},
			live: &domain.LiveStatus{PercentageCharged: 81.5, BatteryPower: -1500, SolarPower: 3000, LoadPower: 900},
		},
		secrets: memory.NewSecretStore(),
		history: memory.NewSchedulerStore(),
	}

	Wire(Deps{
		Tokens:     s.tokens,
		Dispatcher: s.dispatcher,
		Fleet:      s.fleet,
		Secrets:    s.secrets,
		History:    s.history,
	})

	return s, func() {
		Wire(Deps{})
	}
}
