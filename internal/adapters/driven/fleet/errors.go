package fleet

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
)

// maxBodyInError bounds how much of a response body an APIError carries.
// Enough for a human to diagnose, small enough for a notification field.
const maxBodyInError = 256

// APIError represents a fleet API error response.
type APIError struct {
	StatusCode int
	Body       string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fleet: API error %d: %s (URL: %s)", e.StatusCode, e.Body, e.URL)
}

// Unwrap classifies the error for retry policy: 5xx and 429 are transient,
// everything else in the 4xx range is permanent.
func (e *APIError) Unwrap() error {
	if e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests {
		return domain.ErrRemoteTransient
	}
	return domain.ErrRemotePermanent
}

// RateLimitError represents a rate limit exceeded error with reset time.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
	Limit     int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("fleet: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// Unwrap marks rate limiting as retryable.
func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}

// transportError wraps connection-level failures (timeouts, resets) so they
// classify as transient.
func transportError(op string, err error) error {
	return fmt.Errorf("fleet: %s: %w: %w", op, domain.ErrRemoteTransient, err)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// StatusCode extracts the HTTP status from an APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
