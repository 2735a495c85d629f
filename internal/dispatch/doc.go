// Package dispatch turns task submissions into conflict-free parallel
// executions.
//
// A [Task] names the actor identity it runs as, the resource locks it will
// exclusively use, and an opaque payload. [Dispatcher.Submit] never blocks:
// it returns a [Handle] that resolves once the payload finishes. Admission
// is gated by the ledger's atomic reserve: at most one task per actor
// identity runs at a time, and no two running tasks hold overlapping locks.
// A bounded pool caps how many payloads execute at once regardless of
// conflict status.
//
// Blocked tasks wait on a broadcast channel pulsed after every release, so
// admission latency after a conflicting task finishes is near zero. A slow
// poll ticker backstops the broadcast.
//
// Usage:
//
//	d := dispatch.New(ledger.New(bus), dispatch.WithMaxParallel(4))
//
//	h, err := d.Submit(dispatch.NewTask("implementer", "edit config", []string{"config.yaml"}, payload))
//	if err != nil {
//	    // dispatcher already shut down
//	}
//	result, err := h.Result()
//
//	d.Shutdown(true)
package dispatch
