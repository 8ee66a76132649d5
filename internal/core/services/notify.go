package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
	"github.com/voltaic-labs/voltaic/internal/core/ports/driven"
	"github.com/voltaic-labs/voltaic/internal/logger"
)

// emit stamps the event with an ID and delivers it. Delivery failures are
// logged and swallowed: the notification sink can only observe an
// invocation's outcome, never change it.
func emit(ctx context.Context, notifier driven.Notifier, event domain.NotificationEvent) {
	if notifier == nil {
		return
	}
	event.ID = uuid.NewString()
	if err := notifier.Send(ctx, event); err != nil {
		logger.Warn("notification delivery failed (event %s, severity %s): %v",
			event.ID, event.Severity, err)
	}
}
