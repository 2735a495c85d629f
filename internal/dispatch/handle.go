package dispatch

import (
	"context"
	"sync/atomic"
)

// Handle states. A handle starts pending, moves to running when its payload
// begins, and to cancelled or done terminally.
const (
	statePending int32 = iota
	stateRunning
	stateCancelled
	stateDone
)

// Handle is the future returned by Submit. It resolves to the payload's
// result or failure once execution completes, or to ErrCancelled if the
// task was cancelled before its payload started.
type Handle struct {
	task   Task
	state  atomic.Int32
	done   chan struct{}
	result any
	err    error
}

func newHandle(task Task) *Handle {
	return &Handle{
		task: task,
		done: make(chan struct{}),
	}
}

// Task returns the submitted task description.
func (h *Handle) Task() Task { return h.task }

// Done returns a channel that is closed when the handle resolves.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the handle resolves or the context is cancelled.
// It returns the context error on timeout/cancellation, nil otherwise.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Result blocks until the handle resolves, then returns the payload's
// result and error. result and err are safe to read here: resolution
// happens-before the done channel closes.
func (h *Handle) Result() (any, error) {
	<-h.done
	return h.result, h.err
}

// Err blocks until the handle resolves, then returns the failure, if any.
func (h *Handle) Err() error {
	<-h.done
	return h.err
}

// Cancel removes the task from the intake if its payload has not started.
// Returns true if the cancellation took effect; once a payload has begun
// executing it runs to completion and Cancel returns false. A cancelled
// handle resolves immediately with ErrCancelled.
func (h *Handle) Cancel() bool {
	if !h.state.CompareAndSwap(statePending, stateCancelled) {
		return false
	}
	h.result = nil
	h.err = ErrCancelled
	close(h.done)
	return true
}

// tryStart transitions the handle to running. Returns false if the task was
// cancelled first, in which case the payload must not run.
func (h *Handle) tryStart() bool {
	return h.state.CompareAndSwap(statePending, stateRunning)
}

// cancelled reports whether the handle was cancelled before starting.
func (h *Handle) cancelled() bool {
	return h.state.Load() == stateCancelled
}

// finish resolves a running handle with the payload's outcome.
func (h *Handle) finish(result any, err error) {
	h.result = result
	h.err = err
	h.state.Store(stateDone)
	close(h.done)
}
