package driving

import (
	"context"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
)

// RefreshReport summarizes one completed refresh invocation.
type RefreshReport struct {
	// Record is the token record after the invocation.
	Record domain.TokenRecord

	// Rotated is true when the endpoint supplied a new refresh token.
	Rotated bool

	// Attempts is how many grant attempts were made, including the
	// successful one.
	Attempts int
}

// TokenManager owns the credential lifecycle: keeping the stored
// access/refresh pair perpetually valid without human interaction.
//
// Every method is a complete, self-contained invocation. The manager holds
// no token state between calls; redundant triggers (primary plus backup
// refresh) each run the full algorithm and tolerate each other's writes.
type TokenManager interface {
	// Refresh reads the stored pair, performs a refresh grant with
	// bounded retries, persists the new record atomically, and emits
	// exactly one notification describing the outcome.
	Refresh(ctx context.Context) (*RefreshReport, error)

	// ValidAccessToken returns an access token whose recorded expiry is
	// comfortably in the future, refreshing inline when it is not.
	// It re-reads the store on every call.
	ValidAccessToken(ctx context.Context) (string, error)
}
