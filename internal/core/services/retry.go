package services

import (
	"context"
	"time"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
	"github.com/voltaic-labs/voltaic/internal/logger"
)

// Retry policy for remote calls. Delays are fixed, not exponential: an
// invocation lives inside a tight wall-clock budget and each attempt must
// stay a small fraction of it.
var defaultRetryDelays = []time.Duration{2 * time.Second, 5 * time.Second}

// RetryPolicy bounds how often a remote call is reattempted.
type RetryPolicy struct {
	// Delays holds the pause before each retry; len(Delays) is the
	// maximum number of retries.
	Delays []time.Duration
}

// DefaultRetryPolicy returns the standard two-retry policy (2s, 5s).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Delays: defaultRetryDelays}
}

// MaxAttempts is the total number of calls the policy permits.
func (p RetryPolicy) MaxAttempts() int {
	return len(p.Delays) + 1
}

// retryResult carries the outcome of a retried operation.
type retryResult struct {
	// attempts is how many calls were made, including the final one.
	attempts int
	// err is nil when some attempt succeeded.
	err error
}

// withRetry runs op until it succeeds, fails permanently, or the policy is
// exhausted. Only errors classified retryable by domain.IsRetryable are
// reattempted; credential and validation failures surface immediately.
func withRetry(ctx context.Context, policy RetryPolicy, name string, op func(ctx context.Context) error) retryResult {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return retryResult{attempts: attempt + 1}
		}

		if !domain.IsRetryable(lastErr) || attempt >= len(policy.Delays) {
			return retryResult{attempts: attempt + 1, err: lastErr}
		}

		delay := policy.Delays[attempt]
		logger.Info("%s failed (attempt %d/%d), retrying in %s: %v",
			name, attempt+1, policy.MaxAttempts(), delay, lastErr)

		select {
		case <-ctx.Done():
			return retryResult{attempts: attempt + 1, err: ctx.Err()}
		case <-time.After(delay):
		}
	}
}
