// Package memory provides in-memory store implementations, used in tests
// and as a throwaway backend for local experiments.
package memory

import (
	"context"
	"sync"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
	"github.com/voltaic-labs/voltaic/internal/core/ports/driven"
)

// Ensure SecretStore implements the interface.
var _ driven.SecretStore = (*SecretStore)(nil)

// SecretStore is an in-memory implementation of driven.SecretStore.
// Writes take the store lock, so each write is atomic with respect to
// concurrent readers.
type SecretStore struct {
	mu      sync.RWMutex
	creds   domain.CredentialPair
	hasCred bool
	record  domain.TokenRecord
	webhook string
}

// NewSecretStore creates an empty in-memory secret store.
func NewSecretStore() *SecretStore {
	return &SecretStore{}
}

// Credentials returns the provisioned client pair.
func (s *SecretStore) Credentials(_ context.Context) (domain.CredentialPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasCred || s.creds.ClientID == "" {
		return domain.CredentialPair{}, domain.ErrCredentialsMissing
	}
	return s.creds, nil
}

// TokenRecord returns the current token record.
func (s *SecretStore) TokenRecord(_ context.Context) (domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record, nil
}

// SaveTokenRecord replaces the stored record.
func (s *SecretStore) SaveTokenRecord(_ context.Context, rec domain.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = rec
	return nil
}

// RecordRefreshAttempt updates only the attempt bookkeeping.
func (s *SecretStore) RecordRefreshAttempt(_ context.Context, attempt domain.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.LastRefreshAttempt = attempt.LastRefreshAttempt
	s.record.LastRefreshOutcome = attempt.LastRefreshOutcome
	return nil
}

// WebhookURL returns the notification sink target.
func (s *SecretStore) WebhookURL(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.webhook, nil
}

// SaveCredentials stores the client pair.
func (s *SecretStore) SaveCredentials(_ context.Context, creds domain.CredentialPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	s.hasCred = true
	return nil
}

// SaveWebhookURL stores the notification sink target.
func (s *SecretStore) SaveWebhookURL(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webhook = url
	return nil
}
