package driven

import (
	"context"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
)

// Notifier delivers structured status messages to the external
// notification channel. Delivery is fire-and-forget: callers log returned
// errors and move on; a delivery failure never changes an invocation's
// outcome and is never retried.
type Notifier interface {
	// Send posts one event to the sink.
	Send(ctx context.Context, event domain.NotificationEvent) error
}
