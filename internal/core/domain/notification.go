package domain

import "time"

// Severity classifies a notification so downstream alerting can separate
// "transient, self-healing" from "needs a human".
type Severity string

const (
	// SeveritySuccess reports a completed invocation.
	SeveritySuccess Severity = "success"

	// SeverityWarning reports rejected input or a degraded-but-working state.
	SeverityWarning Severity = "warning"

	// SeverityError reports an invocation that could not complete its
	// intended effect but may self-heal on the next trigger.
	SeverityError Severity = "error"

	// SeverityFatal reports a condition requiring human intervention,
	// such as an expired refresh token.
	SeverityFatal Severity = "fatal"
)

// NotificationEvent is one structured status message delivered to the
// notification sink. Constructed and discarded per invocation; every
// terminal state of an invocation produces exactly one.
type NotificationEvent struct {
	// ID correlates the event across log lines and the sink.
	// Assigned by the emitting service.
	ID string

	Severity Severity
	Title    string

	// Detail carries key-value context (status codes, old/new values,
	// live status figures) for a human to diagnose from.
	Detail map[string]string

	Timestamp time.Time
}

// NewNotificationEvent builds an event stamped with the current time.
func NewNotificationEvent(severity Severity, title string, detail map[string]string) NotificationEvent {
	if detail == nil {
		detail = make(map[string]string)
	}
	return NotificationEvent{
		Severity:  severity,
		Title:     title,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}
}
