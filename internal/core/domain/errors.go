package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// Validation Errors.

	// ErrPercentOutOfRange indicates a reserve target outside the 0-100 range.
	// Fail-closed: commands carrying it never reach the remote device.
	ErrPercentOutOfRange = errors.New("reserve percent out of range")

	// Credential Errors. These are unrecoverable without a human
	// re-running the interactive authorization flow.

	// ErrCredentialsMissing indicates the client id or secret is absent
	// from the secret store.
	ErrCredentialsMissing = errors.New("credentials missing from secret store")

	// ErrRefreshTokenMissing indicates no refresh token is stored.
	ErrRefreshTokenMissing = errors.New("refresh token missing")

	// ErrRefreshTokenRejected indicates the remote endpoint rejected the
	// refresh token (expired or revoked).
	ErrRefreshTokenRejected = errors.New("refresh token rejected")

	// ErrAccessTokenMissing indicates no access token is stored and a
	// refresh could not mint one.
	ErrAccessTokenMissing = errors.New("access token missing")

	// Remote Errors. Adapters wrap their typed errors around these
	// sentinels so services can classify without importing transport code.

	// ErrRemoteTransient marks timeouts, connection resets, 5xx and
	// rate-limit responses; eligible for the bounded retry policy.
	ErrRemoteTransient = errors.New("transient remote failure")

	// ErrRemotePermanent marks 4xx responses other than rate limiting;
	// never retried.
	ErrRemotePermanent = errors.New("permanent remote failure")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Site Resolution Errors.

	// ErrNoBatterySite indicates no battery site is visible to the account.
	ErrNoBatterySite = errors.New("no battery site found")

	// ErrMultipleSites indicates the account exposes more than one battery
	// site. Selection is not guessed; the deployment must be reconfigured.
	ErrMultipleSites = errors.New("multiple battery sites found")
)

// IsCredentialError reports whether err requires human re-authorization.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrCredentialsMissing) ||
		errors.Is(err, ErrRefreshTokenMissing) ||
		errors.Is(err, ErrRefreshTokenRejected)
}

// IsRetryable reports whether err is eligible for the bounded retry policy.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRemoteTransient) || errors.Is(err, ErrRateLimited)
}
