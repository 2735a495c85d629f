// Package ledger owns the dispatcher's shared mutable state: the set of
// actor identities currently executing and the map of resource locks
// currently reserved. Every mutation passes through one mutex, making the
// eligibility check and the reservation a single atomic step.
//
// The ledger is injected into the dispatcher rather than held as a global,
// so independent dispatchers (and tests) never share accidental state.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/arbiterhq/arbiter/internal/conflict"
	"github.com/arbiterhq/arbiter/internal/event"
)

// Reservation records one admitted actor and the locks it holds.
type Reservation struct {
	Actor      string    // Actor identity executing under this reservation
	Locks      []string  // Resource locks reserved for the actor
	ReservedAt time.Time // When the reservation was made
}

// Ledger tracks running actors and held resource locks.
// All methods are safe for concurrent use via an internal mutex.
type Ledger struct {
	mu      sync.Mutex
	running map[string]Reservation // actor -> active reservation
	held    map[string]string      // lock -> owning actor
	bus     *event.Bus
}

// New creates an empty Ledger. Reservation and release events are published
// to the given bus; a nil bus disables event publishing.
func New(bus *event.Bus) *Ledger {
	return &Ledger{
		running: make(map[string]Reservation),
		held:    make(map[string]string),
		bus:     bus,
	}
}

// TryReserve atomically checks eligibility for the actor and lock set and,
// if eligible, records the reservation. Returns false with no state change
// when the actor is already running or any lock is held. The combined
// check-and-set under one mutex is what prevents two tasks racing past a
// stale eligibility read.
func (l *Ledger) TryReserve(actor string, locks []string) bool {
	l.mu.Lock()

	if !conflict.Eligible(actor, locks, l.runningSetLocked(), l.held) {
		l.mu.Unlock()
		return false
	}

	res := Reservation{
		Actor:      actor,
		Locks:      append([]string(nil), locks...),
		ReservedAt: time.Now(),
	}
	l.running[actor] = res
	for _, lock := range locks {
		l.held[lock] = actor
	}
	l.mu.Unlock()

	// Publish outside the lock.
	if l.bus != nil {
		l.bus.Publish(event.NewLockReservedEvent(actor, res.Locks))
	}
	return true
}

// Release removes the actor's reservation and frees its locks. The dispatcher
// calls Release exactly once per successful TryReserve, on every payload exit
// path. Releasing an actor that holds no reservation is a programming-contract
// violation and panics.
func (l *Ledger) Release(actor string) {
	l.mu.Lock()

	res, ok := l.running[actor]
	if !ok {
		l.mu.Unlock()
		panic(fmt.Sprintf("ledger: release without reservation for actor %q", actor))
	}
	delete(l.running, actor)
	for _, lock := range res.Locks {
		delete(l.held, lock)
	}
	l.mu.Unlock()

	if l.bus != nil {
		l.bus.Publish(event.NewLockReleasedEvent(actor, res.Locks))
	}
}

// Snapshot returns sorted copies of the running-actor set and the held-lock
// set. It takes the same mutex as TryReserve and Release but never waits on
// payload execution, which happens entirely outside the ledger.
func (l *Ledger) Snapshot() (actors []string, locks []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	actors = make([]string, 0, len(l.running))
	for actor := range l.running {
		actors = append(actors, actor)
	}
	locks = make([]string, 0, len(l.held))
	for lock := range l.held {
		locks = append(locks, lock)
	}
	sort.Strings(actors)
	sort.Strings(locks)
	return actors, locks
}

// Explain reports why a reservation for the actor and lock set would be
// denied right now, with the blocking identifier. ReasonNone means a
// TryReserve could succeed, though the answer is stale the moment the mutex
// is released; use it for logging and events, never for admission decisions.
func (l *Ledger) Explain(actor string, locks []string) (conflict.Reason, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return conflict.Check(actor, locks, l.runningSetLocked(), l.held)
}

// Owner returns the actor holding the given lock and true, or ("", false)
// if the lock is free.
func (l *Ledger) Owner(lock string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	actor, ok := l.held[lock]
	return actor, ok
}

// runningSetLocked projects the running map to the bare identity set the
// resolver consumes. Caller must hold l.mu.
func (l *Ledger) runningSetLocked() map[string]struct{} {
	set := make(map[string]struct{}, len(l.running))
	for actor := range l.running {
		set[actor] = struct{}{}
	}
	return set
}
