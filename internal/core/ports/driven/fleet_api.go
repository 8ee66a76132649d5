package driven

import (
	"context"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
)

// FleetAPI wraps the remote operations the core needs: token grants,
// site resolution, status reads, and the reserve command. Implementations
// own transport concerns (timeouts, rate limiting, error classification);
// retry policy stays with the calling service.
type FleetAPI interface {
	// RefreshTokens performs a refresh grant against the token endpoint.
	// Returns domain.ErrRefreshTokenRejected when the endpoint answers 401.
	RefreshTokens(ctx context.Context, creds domain.CredentialPair, refreshToken string) (*domain.TokenExchange, error)

	// ExchangeCode trades a one-time authorization code for an initial
	// token pair. Used only by interactive seeding.
	ExchangeCode(ctx context.Context, creds domain.CredentialPair, code, redirectURI string) (*domain.TokenExchange, error)

	// ResolveBatterySite returns the single battery site visible to the
	// account. Zero sites yields domain.ErrNoBatterySite; more than one
	// yields domain.ErrMultipleSites.
	ResolveBatterySite(ctx context.Context, accessToken string) (*domain.Site, error)

	// SiteInfo reads the site configuration, including the current
	// backup reserve percent.
	SiteInfo(ctx context.Context, accessToken, siteID string) (*domain.SiteInfo, error)

	// LiveStatus reads the instantaneous charge and power-flow figures.
	LiveStatus(ctx context.Context, accessToken, siteID string) (*domain.LiveStatus, error)

	// SetBackupReserve issues the reserve command. Returns the request id
	// reported by the API for the accepted command.
	SetBackupReserve(ctx context.Context, accessToken, siteID string, percent int) (string, error)
}
