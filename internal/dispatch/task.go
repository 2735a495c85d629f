package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors returned by dispatcher operations.
var (
	// ErrClosed is returned by Submit after Shutdown has been called.
	ErrClosed = errors.New("dispatcher is closed")

	// ErrCancelled resolves the handle of a task cancelled before its
	// payload started.
	ErrCancelled = errors.New("task cancelled before execution")

	// ErrPayloadPanic wraps a panic raised by a task's payload.
	ErrPayloadPanic = errors.New("payload panicked")
)

// Payload is the unit of work a task executes. The dispatcher never inspects
// the result; it is delivered to the task's handle as-is. The context carries
// no deadline: payload-level timeouts are the caller's responsibility.
type Payload func(ctx context.Context) (any, error)

// Task describes one unit of work. Immutable after creation.
type Task struct {
	// ID uniquely identifies this submission.
	ID string

	// Actor is the logical worker class the task runs as. It is not a
	// process id: multiple submissions may share an Actor, and the
	// dispatcher runs at most one of them at a time.
	Actor string

	// Desc is a free-text label used for observability only.
	Desc string

	// Locks are opaque identifiers for resources the task will exclusively
	// read-modify-write during execution. An empty set is legal.
	Locks []string

	// Payload is the work to execute once the task is admitted.
	Payload Payload

	// SubmittedAt is a soft tie-break between simultaneously eligible
	// tasks, never a hard ordering guarantee.
	SubmittedAt time.Time
}

// NewTask creates a Task with a generated ID and the current submission time.
func NewTask(actor, desc string, locks []string, payload Payload) Task {
	return Task{
		ID:          uuid.NewString(),
		Actor:       actor,
		Desc:        desc,
		Locks:       append([]string(nil), locks...),
		Payload:     payload,
		SubmittedAt: time.Now(),
	}
}

// validate reports whether the task is well-formed enough to submit.
func (t Task) validate() error {
	if t.Actor == "" {
		return errors.New("task actor must not be empty")
	}
	if t.Payload == nil {
		return errors.New("task payload must not be nil")
	}
	return nil
}
