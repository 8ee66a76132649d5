package driven

import (
	"context"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
)

// SecretStore persists the small set of named secrets the core depends on:
// client credentials, the token pair, and the notification target. Values
// are opaque strings under a fixed namespace.
//
// The TokenRecord is the one shared mutable resource across overlapping
// invocations. The store must make each write a single atomic call so a
// racing reader observes either the previous record or the new one, never a
// torn mix. No distributed lock is used; last successful write wins.
type SecretStore interface {
	// Credentials returns the provisioned client id and secret.
	// Returns domain.ErrCredentialsMissing if either is absent.
	Credentials(ctx context.Context) (domain.CredentialPair, error)

	// TokenRecord returns the current token pair and refresh bookkeeping.
	// A store with no tokens yet returns a zero record and no error.
	TokenRecord(ctx context.Context) (domain.TokenRecord, error)

	// SaveTokenRecord replaces the stored record in one atomic write.
	SaveTokenRecord(ctx context.Context, rec domain.TokenRecord) error

	// RecordRefreshAttempt updates only the attempt bookkeeping
	// (LastRefreshAttempt, LastRefreshOutcome) in one atomic write,
	// leaving token material and expiry untouched.
	RecordRefreshAttempt(ctx context.Context, attempt domain.TokenRecord) error

	// WebhookURL returns the notification sink target, or "" when
	// notifications are not configured.
	WebhookURL(ctx context.Context) (string, error)

	// SaveCredentials stores the client pair. Used by one-time seeding
	// (auth login), never by scheduled invocations.
	SaveCredentials(ctx context.Context, creds domain.CredentialPair) error

	// SaveWebhookURL stores the notification sink target.
	SaveWebhookURL(ctx context.Context, url string) error
}
