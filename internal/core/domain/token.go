package domain

import "time"

// ExpiryMargin is the safety window before a stored access token is
// treated as expired. A token closer than this to its recorded expiry is
// refreshed before use.
const ExpiryMargin = 5 * time.Minute

// RefreshOutcome records how the most recent refresh attempt ended.
type RefreshOutcome string

const (
	// RefreshSucceeded means the last attempt stored a new token pair.
	RefreshSucceeded RefreshOutcome = "success"

	// RefreshFailed means the last attempt left the stored pair untouched.
	RefreshFailed RefreshOutcome = "failure"
)

// CredentialPair holds the OAuth client credentials for the fleet API.
// Provisioned once by the operator; read-only to the core.
type CredentialPair struct {
	ClientID     string
	ClientSecret string
}

// TokenRecord is the stored access/refresh token pair plus refresh
// bookkeeping. It is owned by the secret store: the token manager reads it
// and conditionally overwrites it, at most once per invocation, and never
// caches it beyond a single invocation.
type TokenRecord struct {
	// AccessToken is the short-lived bearer token for fleet API calls.
	AccessToken string

	// RefreshToken is the long-lived credential used solely to mint new
	// access tokens. It must never be empty while the system operates.
	RefreshToken string

	// AccessExpiry is derived from the expires_in of the most recent
	// successful exchange.
	AccessExpiry time.Time

	// LastRefreshAttempt is when a refresh was last attempted,
	// successful or not.
	LastRefreshAttempt time.Time

	// LastRefreshOutcome is how that attempt ended.
	LastRefreshOutcome RefreshOutcome
}

// FreshAt reports whether the access token is still usable at t, i.e. its
// recorded expiry is more than ExpiryMargin in the future.
func (r *TokenRecord) FreshAt(t time.Time) bool {
	if r.AccessToken == "" {
		return false
	}
	if r.AccessExpiry.IsZero() {
		return false
	}
	return r.AccessExpiry.Sub(t) > ExpiryMargin
}

// HasRefreshToken reports whether a refresh token is available.
func (r *TokenRecord) HasRefreshToken() bool {
	return r.RefreshToken != ""
}

// TokenExchange is the result of a successful grant against the token
// endpoint. Transient; the persisted form is TokenRecord.
type TokenExchange struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
}
