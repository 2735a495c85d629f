// Package conflict decides whether a candidate task may run alongside the
// tasks currently executing. The decision is a pure function of the candidate
// and the ledger state: no priorities, no tie-breaking, no side effects.
//
// Two rules apply:
//   - At most one task per actor identity runs at a time.
//   - No two running tasks may hold overlapping resource locks.
//
// A candidate with an empty lock set is admissible whenever its actor is not
// already running.
package conflict

// Reason explains why a candidate task is not currently eligible.
type Reason string

const (
	// ReasonNone means the candidate is eligible.
	ReasonNone Reason = ""

	// ReasonActorRunning means a task with the same actor identity is
	// already executing.
	ReasonActorRunning Reason = "actor_running"

	// ReasonLockHeld means one of the candidate's resource locks is held
	// by a running task.
	ReasonLockHeld Reason = "lock_held"
)

// Eligible reports whether a candidate task for the given actor, requesting
// the given resource locks, may be admitted against the current running-actor
// set and held-lock map. Deterministic: the same inputs always produce the
// same answer.
func Eligible(actor string, locks []string, runningActors map[string]struct{}, heldLocks map[string]string) bool {
	reason, _ := Check(actor, locks, runningActors, heldLocks)
	return reason == ReasonNone
}

// Check is the diagnostic form of Eligible. It returns the first blocking
// reason found along with the blocking identifier: the actor identity for
// ReasonActorRunning, the contested lock for ReasonLockHeld. Consumers use
// the detail for logging and events only; admission decisions rest solely on
// whether the reason is ReasonNone.
func Check(actor string, locks []string, runningActors map[string]struct{}, heldLocks map[string]string) (Reason, string) {
	if _, running := runningActors[actor]; running {
		return ReasonActorRunning, actor
	}
	for _, lock := range locks {
		if _, held := heldLocks[lock]; held {
			return ReasonLockHeld, lock
		}
	}
	return ReasonNone, ""
}
