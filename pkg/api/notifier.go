package api

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// EventType identifies the transition that produced a notification event.
type EventType string

const (
	EventStarted        EventType = "STARTED"
	EventStepStarted    EventType = "STEP_STARTED"
	EventStepCompleted  EventType = "STEP_COMPLETED"
	EventApproved       EventType = "APPROVED"
	EventRejected       EventType = "REJECTED"
	EventCancelled      EventType = "CANCELLED"
	EventOnHold         EventType = "ON_HOLD"
	EventResumed        EventType = "RESUMED"
	EventExpired        EventType = "EXPIRED"
	EventTaskReassigned EventType = "TASK_REASSIGNED"
)

// Event is emitted to the notification hook on every instance transition.
// Delivery to recipients is external; the engine only emits.
type Event struct {
	InstanceID string
	Type       EventType
	StepOrder  int
	Recipients []PrincipalID
}

// Notifier receives transition events from the engine.
//
// Implementations should be fast and non-blocking; heavy work should be
// done asynchronously so as not to delay the invoking action.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// NoopNotifier is a Notifier that does nothing.
// It is used as the default when no notifier is configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, ev Event) {}

// CompositeNotifier fans out events to multiple notifiers.
type CompositeNotifier struct {
	notifiers []Notifier
}

// NewCompositeNotifier creates a Notifier that forwards events to each
// non-nil notifier in ns.
func NewCompositeNotifier(ns ...Notifier) Notifier {
	filtered := make([]Notifier, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			filtered = append(filtered, n)
		}
	}
	if len(filtered) == 0 {
		return NoopNotifier{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeNotifier{notifiers: filtered}
}

func (c *CompositeNotifier) Notify(ctx context.Context, ev Event) {
	for _, n := range c.notifiers {
		n.Notify(ctx, ev)
	}
}

// LoggingNotifier writes structured logs using log/slog.
type LoggingNotifier struct {
	Logger *slog.Logger
}

// NewLoggingNotifier creates a Notifier that logs transition events using
// the provided slog.Logger. If logger is nil, slog.Default() is used.
func NewLoggingNotifier(logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingNotifier{Logger: logger}
}

func (n *LoggingNotifier) Notify(ctx context.Context, ev Event) {
	level := slog.LevelInfo
	switch ev.Type {
	case EventRejected, EventExpired:
		level = slog.LevelWarn
	case EventStepStarted, EventStepCompleted:
		level = slog.LevelDebug
	}
	n.Logger.Log(ctx, level, "workflow_event",
		slog.String("instance_id", ev.InstanceID),
		slog.String("event", string(ev.Type)),
		slog.Int("step", ev.StepOrder),
		slog.Int("recipients", len(ev.Recipients)),
	)
}

// TransitionCounters collects simple counters per transition kind.
// It implements Notifier and can be combined with LoggingNotifier via
// NewCompositeNotifier.
type TransitionCounters struct {
	started   atomic.Int64
	approved  atomic.Int64
	rejected  atomic.Int64
	cancelled atomic.Int64
	expired   atomic.Int64
	steps     atomic.Int64
}

// TransitionCountersSnapshot is an immutable snapshot of TransitionCounters.
type TransitionCountersSnapshot struct {
	Started        int64
	Approved       int64
	Rejected       int64
	Cancelled      int64
	Expired        int64
	StepsCompleted int64

	// InFlight is derived: started minus every terminal outcome.
	InFlight int64
}

func (c *TransitionCounters) Notify(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventStarted:
		c.started.Add(1)
	case EventApproved:
		c.approved.Add(1)
	case EventRejected:
		c.rejected.Add(1)
	case EventCancelled:
		c.cancelled.Add(1)
	case EventExpired:
		c.expired.Add(1)
	case EventStepCompleted:
		c.steps.Add(1)
	}
}

// Snapshot returns a snapshot of the current counters.
func (c *TransitionCounters) Snapshot() TransitionCountersSnapshot {
	started := c.started.Load()
	approved := c.approved.Load()
	rejected := c.rejected.Load()
	cancelled := c.cancelled.Load()
	expired := c.expired.Load()

	return TransitionCountersSnapshot{
		Started:        started,
		Approved:       approved,
		Rejected:       rejected,
		Cancelled:      cancelled,
		Expired:        expired,
		StepsCompleted: c.steps.Load(),
		InFlight:       started - approved - rejected - cancelled - expired,
	}
}
