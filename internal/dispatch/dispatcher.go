package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arbiterhq/arbiter/internal/conflict"
	"github.com/arbiterhq/arbiter/internal/event"
	"github.com/arbiterhq/arbiter/internal/ledger"
	"github.com/arbiterhq/arbiter/internal/logging"
)

// StatusSnapshot is a point-in-time, read-only view of dispatcher state.
type StatusSnapshot struct {
	RunningActors []string `json:"running_actors"`
	HeldLocks     []string `json:"held_locks"`
	QueuedCount   int      `json:"queued_count"`
}

// Dispatcher admits submitted tasks for parallel execution when doing so
// cannot collide on an actor identity or a resource lock, bounded by a
// fixed pool of execution slots.
type Dispatcher struct {
	ledger *ledger.Ledger
	bus    *event.Bus
	log    *logging.Logger

	maxParallel  int
	pollInterval time.Duration

	// slots caps concurrently executing payloads. A task holds a slot from
	// the moment its admission loop starts until its payload finishes, so
	// conflict-waiting also occupies a slot; excess eligible tasks simply
	// wait for a free one, which callers observe as "queued".
	slots chan struct{}

	mu     sync.Mutex
	closed bool
	// wake is closed and replaced on every release so all conflict-waiters
	// re-check eligibility immediately.
	wake chan struct{}

	queued atomic.Int64
	wg     sync.WaitGroup
}

// New creates a Dispatcher over the given ledger. The ledger is injected so
// independent dispatchers never share state.
func New(l *ledger.Ledger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		ledger:       l,
		log:          logging.NopLogger(),
		maxParallel:  defaultMaxParallel,
		pollInterval: defaultPollInterval,
		wake:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.slots = make(chan struct{}, d.maxParallel)
	return d
}

// Submit enqueues a task and returns its handle without blocking. The handle
// resolves once the payload completes (or the task is cancelled first).
// Returns ErrClosed after Shutdown.
func (d *Dispatcher) Submit(task Task) (*Handle, error) {
	if err := task.validate(); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrClosed
	}
	d.wg.Add(1)
	d.queued.Add(1)
	d.mu.Unlock()

	h := newHandle(task)
	d.publish(event.NewTaskSubmittedEvent(task.ID, task.Actor, task.Desc))
	d.log.WithActor(task.Actor).WithTask(task.ID).Debug("task submitted", "locks", task.Locks)

	go d.run(h)
	return h, nil
}

// Status returns the current ledger snapshot plus the queued-task count.
func (d *Dispatcher) Status() StatusSnapshot {
	actors, locks := d.ledger.Snapshot()
	return StatusSnapshot{
		RunningActors: actors,
		HeldLocks:     locks,
		QueuedCount:   int(d.queued.Load()),
	}
}

// Shutdown stops accepting new submissions immediately. If wait is true, it
// blocks until all admitted and queued tasks have drained; otherwise it
// returns while background execution continues.
func (d *Dispatcher) Shutdown(wait bool) {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	if wait {
		d.wg.Wait()
	}
}

// run is the per-task admission loop. It acquires a pool slot, retries the
// ledger reservation until it wins (waking on every release), executes the
// payload outside the ledger lock, and releases on every exit path.
func (d *Dispatcher) run(h *Handle) {
	defer d.wg.Done()

	task := h.task
	log := d.log.WithActor(task.Actor).WithTask(task.ID)

	d.slots <- struct{}{}
	defer func() { <-d.slots }()

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	blockLogged := false
	for {
		if h.cancelled() {
			d.queued.Add(-1)
			d.publish(event.NewTaskCancelledEvent(task.ID, task.Actor))
			log.Debug("task cancelled before admission")
			return
		}

		// Grab the wake channel before attempting to reserve: a release
		// that lands between a failed attempt and the wait below still
		// pulses this channel, so no wake-up can be missed.
		wake := d.wakeChan()

		if d.ledger.TryReserve(task.Actor, task.Locks) {
			break
		}

		// Log the deny reason once per blocked wait, not on every
		// wake-up or poll tick.
		if !blockLogged {
			if reason, by := d.ledger.Explain(task.Actor, task.Locks); reason != conflict.ReasonNone {
				log.Debug("task blocked", "reason", string(reason), "blocked_by", by)
				blockLogged = true
			}
		}

		select {
		case <-wake:
		case <-h.done: // cancelled while waiting
		case <-ticker.C: // poll fallback
		}
	}

	if !h.tryStart() {
		// Cancelled in the window between winning the reservation and
		// starting the payload. Give the reservation back.
		d.ledger.Release(task.Actor)
		d.pulse()
		d.queued.Add(-1)
		d.publish(event.NewTaskCancelledEvent(task.ID, task.Actor))
		return
	}

	d.queued.Add(-1)
	d.publish(event.NewTaskAdmittedEvent(task.ID, task.Actor, task.Locks))
	log.Info("task admitted", "locks", task.Locks)

	d.execute(h, log)
}

// execute runs the payload and resolves the handle. The deferred release
// runs on every exit path, including payload panics, so reservations are
// never leaked and waiters are always woken.
func (d *Dispatcher) execute(h *Handle, log *logging.Logger) {
	task := h.task
	start := time.Now()

	var result any
	var err error

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPayloadPanic, r)
		}

		d.ledger.Release(task.Actor)
		d.pulse()

		if err != nil {
			d.publish(event.NewTaskFailedEvent(task.ID, task.Actor, err.Error()))
			log.Warn("task failed", "error", err.Error(), "duration", time.Since(start).String())
		} else {
			d.publish(event.NewTaskCompletedEvent(task.ID, task.Actor, time.Since(start)))
			log.Info("task completed", "duration", time.Since(start).String())
		}

		// Resolve last so a caller woken by the handle observes the full
		// event sequence for this task.
		h.finish(result, err)
	}()

	// No deadline: mid-flight timeout is a caller concern (wrap it into
	// the payload itself).
	result, err = task.Payload(context.Background())
}

// wakeChan returns the current broadcast channel.
func (d *Dispatcher) wakeChan() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wake
}

// pulse wakes every conflict-waiter by closing the current broadcast
// channel and installing a fresh one.
func (d *Dispatcher) pulse() {
	d.mu.Lock()
	close(d.wake)
	d.wake = make(chan struct{})
	d.mu.Unlock()
}

// publish sends an event if a bus is configured.
func (d *Dispatcher) publish(e event.Event) {
	if d.bus != nil {
		d.bus.Publish(e)
	}
}
