package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
	"github.com/voltaic-labs/voltaic/internal/core/ports/driven"
)

// Secret names under the fixed namespace.
const (
	secretClientID           = "client_id"
	secretClientSecret       = "client_secret"
	secretAccessToken        = "access_token"
	secretRefreshToken       = "refresh_token"
	secretAccessExpiry       = "access_expiry"
	secretLastRefreshAttempt = "last_refresh_attempt"
	secretLastRefreshOutcome = "last_refresh_outcome"
	secretWebhookURL         = "webhook_url"
)

// secretStore implements driven.SecretStore.
//
// The token record spans several named secrets; every write that touches
// more than one runs in a single transaction, and every read of a
// multi-name record goes through one query, so concurrent invocations
// observe either the previous record or the new one, never a torn mix.
type secretStore struct {
	store *Store
}

var _ driven.SecretStore = (*secretStore)(nil)

// Credentials returns the provisioned client pair.
func (s *secretStore) Credentials(ctx context.Context) (domain.CredentialPair, error) {
	values, err := s.getAll(ctx, secretClientID, secretClientSecret)
	if err != nil {
		return domain.CredentialPair{}, err
	}
	if values[secretClientID] == "" {
		return domain.CredentialPair{}, domain.ErrCredentialsMissing
	}
	return domain.CredentialPair{
		ClientID:     values[secretClientID],
		ClientSecret: values[secretClientSecret],
	}, nil
}

// TokenRecord returns the current token record.
// A store with no tokens yet returns a zero record and no error.
func (s *secretStore) TokenRecord(ctx context.Context) (domain.TokenRecord, error) {
	values, err := s.getAll(ctx,
		secretAccessToken,
		secretRefreshToken,
		secretAccessExpiry,
		secretLastRefreshAttempt,
		secretLastRefreshOutcome,
	)
	if err != nil {
		return domain.TokenRecord{}, err
	}

	rec := domain.TokenRecord{
		AccessToken:        values[secretAccessToken],
		RefreshToken:       values[secretRefreshToken],
		LastRefreshOutcome: domain.RefreshOutcome(values[secretLastRefreshOutcome]),
	}

	if expiry := values[secretAccessExpiry]; expiry != "" {
		if rec.AccessExpiry, err = time.Parse(time.RFC3339, expiry); err != nil {
			return domain.TokenRecord{}, fmt.Errorf("parsing stored expiry: %w", err)
		}
	}
	if attempt := values[secretLastRefreshAttempt]; attempt != "" {
		if rec.LastRefreshAttempt, err = time.Parse(time.RFC3339, attempt); err != nil {
			return domain.TokenRecord{}, fmt.Errorf("parsing stored refresh attempt: %w", err)
		}
	}

	return rec, nil
}

// SaveTokenRecord replaces the stored record in one transaction.
func (s *secretStore) SaveTokenRecord(ctx context.Context, rec domain.TokenRecord) error {
	return s.putAll(ctx, map[string]string{
		secretAccessToken:        rec.AccessToken,
		secretRefreshToken:       rec.RefreshToken,
		secretAccessExpiry:       formatTime(rec.AccessExpiry),
		secretLastRefreshAttempt: formatTime(rec.LastRefreshAttempt),
		secretLastRefreshOutcome: string(rec.LastRefreshOutcome),
	})
}

// RecordRefreshAttempt updates only the attempt bookkeeping.
func (s *secretStore) RecordRefreshAttempt(ctx context.Context, attempt domain.TokenRecord) error {
	return s.putAll(ctx, map[string]string{
		secretLastRefreshAttempt: formatTime(attempt.LastRefreshAttempt),
		secretLastRefreshOutcome: string(attempt.LastRefreshOutcome),
	})
}

// WebhookURL returns the notification sink target.
func (s *secretStore) WebhookURL(ctx context.Context) (string, error) {
	return s.get(ctx, secretWebhookURL)
}

// SaveCredentials stores the client pair.
func (s *secretStore) SaveCredentials(ctx context.Context, creds domain.CredentialPair) error {
	return s.putAll(ctx, map[string]string{
		secretClientID:     creds.ClientID,
		secretClientSecret: creds.ClientSecret,
	})
}

// SaveWebhookURL stores the notification sink target.
func (s *secretStore) SaveWebhookURL(ctx context.Context, url string) error {
	return s.putAll(ctx, map[string]string{secretWebhookURL: url})
}

// getAll reads several secrets in one query, so values written together by
// putAll are never observed half old, half new. Absent secrets read as "".
func (s *secretStore) getAll(ctx context.Context, names ...string) (map[string]string, error) {
	placeholders := strings.Repeat("?, ", len(names)-1) + "?"
	args := make([]any, len(names))
	for i, name := range names {
		args[i] = name
	}

	rows, err := s.store.db.QueryContext(ctx,
		"SELECT name, value FROM secrets WHERE name IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("reading secrets: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, len(names))
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scanning secret: %w", err)
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading secrets: %w", err)
	}
	return values, nil
}

// get reads one secret; absent secrets read as "".
func (s *secretStore) get(ctx context.Context, name string) (string, error) {
	var value string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT value FROM secrets WHERE name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading secret %s: %w", name, err)
	}
	return value, nil
}

// putAll upserts the given secrets in one transaction.
func (s *secretStore) putAll(ctx context.Context, values map[string]string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for name, value := range values {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO secrets (name, value) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET value = excluded.value
		`, name, value); err != nil {
			return fmt.Errorf("writing secret %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing secrets: %w", err)
	}
	return nil
}

// formatTime renders a timestamp for storage; zero times store as "".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
