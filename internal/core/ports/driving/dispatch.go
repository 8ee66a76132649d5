package driving

import (
	"context"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
)

// TerminalState is the final outcome of one dispatch invocation.
// Each terminal state is paired with exactly one notification.
type TerminalState string

const (
	// StateSuccess means the reserve command was applied.
	StateSuccess TerminalState = "success"

	// StateReject means input validation failed before any remote call.
	StateReject TerminalState = "reject"

	// StateAbort means a precondition (token, site) could not be met.
	StateAbort TerminalState = "abort"

	// StateFailure means the remote command itself failed.
	StateFailure TerminalState = "failure"
)

// DispatchReport describes one completed dispatch invocation.
type DispatchReport struct {
	State TerminalState

	// SiteID is the resolved target, when resolution succeeded.
	SiteID string

	// PreviousPercent is the reserve before the command, when the
	// best-effort read succeeded. Nil otherwise.
	PreviousPercent *float64

	// Attempts is how many command calls were made.
	Attempts int
}

// Dispatcher translates one ReserveCommand into exactly one applied remote
// state change, with validation, bounded retries, and an observable outcome.
type Dispatcher interface {
	// Apply runs the dispatch state machine for cmd. The returned report
	// is non-nil whenever a terminal state was reached; err is non-nil
	// for every terminal state except StateSuccess.
	Apply(ctx context.Context, cmd domain.ReserveCommand) (*DispatchReport, error)
}
