package services

import (
	"context"
	"sync"
	"time"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
	"github.com/voltaic-labs/voltaic/internal/core/ports/driven"
)

// --- Mock implementations shared across service tests ---

// mockSecretStore implements driven.SecretStore for testing.
type mockSecretStore struct {
	mu sync.RWMutex

	creds      domain.CredentialPair
	hasCreds   bool
	record     domain.TokenRecord
	webhookURL string

	credsErr   error
	readErr    error
	saveErr    error
	attemptErr error

	saveCalls    int
	attemptCalls int
}

func newMockSecretStore() *mockSecretStore {
	return &mockSecretStore{
		creds:    domain.CredentialPair{ClientID: "client-id", ClientSecret: "client-secret"},
		hasCreds: true,
	}
}

func (m *mockSecretStore) Credentials(_ context.Context) (domain.CredentialPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.credsErr != nil {
		return domain.CredentialPair{}, m.credsErr
	}
	if !m.hasCreds {
		return domain.CredentialPair{}, domain.ErrCredentialsMissing
	}
	return m.creds, nil
}

func (m *mockSecretStore) TokenRecord(_ context.Context) (domain.TokenRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.readErr != nil {
		return domain.TokenRecord{}, m.readErr
	}
	return m.record, nil
}

func (m *mockSecretStore) SaveTokenRecord(_ context.Context, rec domain.TokenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.record = rec
	return nil
}

func (m *mockSecretStore) RecordRefreshAttempt(_ context.Context, attempt domain.TokenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attemptCalls++
	if m.attemptErr != nil {
		return m.attemptErr
	}
	m.record.LastRefreshAttempt = attempt.LastRefreshAttempt
	m.record.LastRefreshOutcome = attempt.LastRefreshOutcome
	return nil
}

func (m *mockSecretStore) WebhookURL(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.webhookURL, nil
}

func (m *mockSecretStore) SaveCredentials(_ context.Context, creds domain.CredentialPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = creds
	m.hasCreds = true
	return nil
}

func (m *mockSecretStore) SaveWebhookURL(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.webhookURL = url
	return nil
}

// mockFleetAPI implements driven.FleetAPI for testing. Each operation's
// errs queue is consumed one entry per call, simulating transient failures
// followed by success.
type mockFleetAPI struct {
	mu sync.Mutex

	exchange     *domain.TokenExchange
	refreshErrs  []error
	refreshCalls int

	site         *domain.Site
	resolveErr   error
	resolveCalls int

	info    *domain.SiteInfo
	infoErr error

	live    *domain.LiveStatus
	liveErr error

	requestID       string
	reserveErrs     []error
	reserveCalls    int
	reservePercents []int
}

func newMockFleetAPI() *mockFleetAPI {
	return &mockFleetAPI{
		exchange: &domain.TokenExchange{
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
			TokenType:    "Bearer",
		},
		site:      &domain.Site{ID: "12345", Name: "Home"},
		info:      &domain.SiteInfo{BackupReservePercent: 20, SiteName: "Home"},
		live:      &domain.LiveStatus{PercentageCharged: 81.5, BatteryPower: -1500, SolarPower: 3000, LoadPower: 900},
		requestID: "req-1",
	}
}

func (m *mockFleetAPI) RefreshTokens(_ context.Context, _ domain.CredentialPair, _ string) (*domain.TokenExchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshCalls++
	if len(m.refreshErrs) > 0 {
		err := m.refreshErrs[0]
		m.refreshErrs = m.refreshErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	exch := *m.exchange
	return &exch, nil
}

func (m *mockFleetAPI) ExchangeCode(_ context.Context, _ domain.CredentialPair, _, _ string) (*domain.TokenExchange, error) {
	exch := *m.exchange
	return &exch, nil
}

func (m *mockFleetAPI) ResolveBatterySite(_ context.Context, _ string) (*domain.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolveCalls++
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	site := *m.site
	return &site, nil
}

func (m *mockFleetAPI) SiteInfo(_ context.Context, _, _ string) (*domain.SiteInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.infoErr != nil {
		return nil, m.infoErr
	}
	info := *m.info
	return &info, nil
}

func (m *mockFleetAPI) LiveStatus(_ context.Context, _, _ string) (*domain.LiveStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.liveErr != nil {
		return nil, m.liveErr
	}
	live := *m.live
	return &live, nil
}

func (m *mockFleetAPI) SetBackupReserve(_ context.Context, _, _ string, percent int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserveCalls++
	m.reservePercents = append(m.reservePercents, percent)
	if len(m.reserveErrs) > 0 {
		err := m.reserveErrs[0]
		m.reserveErrs = m.reserveErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return m.requestID, nil
}

// mockNotifier implements driven.Notifier for testing.
type mockNotifier struct {
	mu      sync.Mutex
	events  []domain.NotificationEvent
	sendErr error
}

func (m *mockNotifier) Send(_ context.Context, event domain.NotificationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.sendErr
}

func (m *mockNotifier) sent() []domain.NotificationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.NotificationEvent, len(m.events))
	copy(out, m.events)
	return out
}

// mockSchedulerStore implements driven.SchedulerStore for testing.
type mockSchedulerStore struct {
	mu      sync.RWMutex
	tasks   map[string]*domain.ScheduledTask
	results map[string][]domain.TaskResult
	saveErr error
	listErr error
	getErr  error
}

func newMockSchedulerStore() *mockSchedulerStore {
	return &mockSchedulerStore{
		tasks:   make(map[string]*domain.ScheduledTask),
		results: make(map[string][]domain.TaskResult),
	}
}

func (m *mockSchedulerStore) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	task, exists := m.tasks[taskID]
	if !exists {
		return nil, nil
	}
	taskCopy := *task
	return &taskCopy, nil
}

func (m *mockSchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	tasks := make([]domain.ScheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

func (m *mockSchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if task == nil {
		return domain.ErrInvalidInput
	}
	taskCopy := *task
	m.tasks[task.ID] = &taskCopy
	return nil
}

func (m *mockSchedulerStore) DeleteTask(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, taskID)
	return nil
}

func (m *mockSchedulerStore) RecordResult(_ context.Context, result *domain.TaskResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result == nil {
		return domain.ErrInvalidInput
	}
	m.results[result.TaskID] = append(m.results[result.TaskID], *result)
	return nil
}

func (m *mockSchedulerStore) GetTaskHistory(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := m.results[taskID]
	if len(results) > limit {
		results = results[len(results)-limit:]
	}
	return results, nil
}

func (m *mockSchedulerStore) PruneHistory(_ context.Context, _ int) error {
	return nil
}

// Ensure mocks implement interfaces
var (
	_ driven.SecretStore    = (*mockSecretStore)(nil)
	_ driven.FleetAPI       = (*mockFleetAPI)(nil)
	_ driven.Notifier       = (*mockNotifier)(nil)
	_ driven.SchedulerStore = (*mockSchedulerStore)(nil)
)

// fastRetry is the default policy with near-zero delays so retry paths run
// quickly in tests.
func fastRetry() RetryPolicy {
	return RetryPolicy{Delays: []time.Duration{time.Millisecond, time.Millisecond}}
}
