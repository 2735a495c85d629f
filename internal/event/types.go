// Package event defines event types for decoupling components in Arbiter.
// These events enable communication between the ledger, dispatcher, drift
// watcher, and display layers without requiring direct dependencies.
package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "task.admitted", "lock.released")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Task Lifecycle Events
// -----------------------------------------------------------------------------

// TaskSubmittedEvent is emitted when a task enters the dispatcher intake.
type TaskSubmittedEvent struct {
	baseEvent
	TaskID string // Unique identifier for the task
	Actor  string // Logical worker class the task runs as
	Desc   string // Free-text task label
}

// NewTaskSubmittedEvent creates a TaskSubmittedEvent.
func NewTaskSubmittedEvent(taskID, actor, desc string) TaskSubmittedEvent {
	return TaskSubmittedEvent{
		baseEvent: newBaseEvent("task.submitted"),
		TaskID:    taskID,
		Actor:     actor,
		Desc:      desc,
	}
}

// TaskAdmittedEvent is emitted when a task wins its reservation and its
// payload begins executing.
type TaskAdmittedEvent struct {
	baseEvent
	TaskID string
	Actor  string
	Locks  []string // Resource locks reserved for the task
}

// NewTaskAdmittedEvent creates a TaskAdmittedEvent.
func NewTaskAdmittedEvent(taskID, actor string, locks []string) TaskAdmittedEvent {
	return TaskAdmittedEvent{
		baseEvent: newBaseEvent("task.admitted"),
		TaskID:    taskID,
		Actor:     actor,
		Locks:     locks,
	}
}

// TaskCompletedEvent is emitted when a task's payload returns successfully.
type TaskCompletedEvent struct {
	baseEvent
	TaskID   string
	Actor    string
	Duration time.Duration // Wall-clock payload execution time
}

// NewTaskCompletedEvent creates a TaskCompletedEvent.
func NewTaskCompletedEvent(taskID, actor string, duration time.Duration) TaskCompletedEvent {
	return TaskCompletedEvent{
		baseEvent: newBaseEvent("task.completed"),
		TaskID:    taskID,
		Actor:     actor,
		Duration:  duration,
	}
}

// TaskFailedEvent is emitted when a task's payload returns an error or panics.
// The failure is isolated to the task's handle; it never affects other tasks.
type TaskFailedEvent struct {
	baseEvent
	TaskID string
	Actor  string
	Error  string // Captured failure message
}

// NewTaskFailedEvent creates a TaskFailedEvent.
func NewTaskFailedEvent(taskID, actor, errMsg string) TaskFailedEvent {
	return TaskFailedEvent{
		baseEvent: newBaseEvent("task.failed"),
		TaskID:    taskID,
		Actor:     actor,
		Error:     errMsg,
	}
}

// TaskCancelledEvent is emitted when a queued task is cancelled before its
// payload started.
type TaskCancelledEvent struct {
	baseEvent
	TaskID string
	Actor  string
}

// NewTaskCancelledEvent creates a TaskCancelledEvent.
func NewTaskCancelledEvent(taskID, actor string) TaskCancelledEvent {
	return TaskCancelledEvent{
		baseEvent: newBaseEvent("task.cancelled"),
		TaskID:    taskID,
		Actor:     actor,
	}
}

// -----------------------------------------------------------------------------
// Ledger Events
// -----------------------------------------------------------------------------

// LockReservedEvent is emitted when an actor's reservation is recorded.
type LockReservedEvent struct {
	baseEvent
	Actor string
	Locks []string
}

// NewLockReservedEvent creates a LockReservedEvent.
func NewLockReservedEvent(actor string, locks []string) LockReservedEvent {
	return LockReservedEvent{
		baseEvent: newBaseEvent("lock.reserved"),
		Actor:     actor,
		Locks:     locks,
	}
}

// LockReleasedEvent is emitted when an actor's reservation is released.
type LockReleasedEvent struct {
	baseEvent
	Actor string
	Locks []string
}

// NewLockReleasedEvent creates a LockReleasedEvent.
func NewLockReleasedEvent(actor string, locks []string) LockReleasedEvent {
	return LockReleasedEvent{
		baseEvent: newBaseEvent("lock.released"),
		Actor:     actor,
		Locks:     locks,
	}
}

// -----------------------------------------------------------------------------
// Drift Watcher Events
// -----------------------------------------------------------------------------

// DriftDetectedEvent is emitted when a watched resource is modified on disk
// while no running task holds its lock.
type DriftDetectedEvent struct {
	baseEvent
	Path string // Resource path that changed out-of-band
}

// NewDriftDetectedEvent creates a DriftDetectedEvent.
func NewDriftDetectedEvent(path string) DriftDetectedEvent {
	return DriftDetectedEvent{
		baseEvent: newBaseEvent("watch.drift"),
		Path:      path,
	}
}
