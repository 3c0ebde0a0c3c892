/*
notify.go - Notification collaborator contract

PURPOSE:
  Every successful transition emits one event describing the request's new
  status. Delivery is fire-and-forget: the notification collaborator may
  fail or be slow without affecting workflow outcomes. The workflow logs
  and drops delivery errors.

SEE ALSO:
  - workflow.go: Emits events after each committed transition
*/
package leave

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// EVENTS
// =============================================================================

type EventType string

const (
	EventSubmitted      EventType = "leave_request_submitted"
	EventManagerDecided EventType = "leave_request_manager_decided"
	EventHRDecided      EventType = "leave_request_hr_decided"
	EventCancelled      EventType = "leave_request_cancelled"
)

// Event describes one committed status change.
type Event struct {
	Type       EventType
	RequestID  string
	EmployeeID string
	NewStatus  Status
	ActorID    string
	At         time.Time
}

// Notifier receives workflow events. Implementations must not block the
// workflow; expensive delivery belongs behind a queue owned by the
// implementation.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// =============================================================================
// BUILT-IN NOTIFIERS
// =============================================================================

// LogNotifier writes events to the structured log. The default collaborator
// when no downstream delivery system is wired.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.Named("leave.notify")}
}

func (n *LogNotifier) Notify(_ context.Context, ev Event) error {
	n.log.Info("leave event",
		zap.String("event_type", string(ev.Type)),
		zap.String("request_id", ev.RequestID),
		zap.String("employee_id", ev.EmployeeID),
		zap.String("new_status", string(ev.NewStatus)),
		zap.String("actor_id", ev.ActorID),
	)
	return nil
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }
