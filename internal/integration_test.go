// Package internal contains integration tests that verify the packages work
// together correctly: workload specs validated against ownership rules, built
// into tasks, dispatched under conflict control, and observed through the
// event bus and status reporter.
package internal

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arbiterhq/arbiter/internal/dispatch"
	"github.com/arbiterhq/arbiter/internal/event"
	"github.com/arbiterhq/arbiter/internal/ledger"
	"github.com/arbiterhq/arbiter/internal/ownership"
	"github.com/arbiterhq/arbiter/internal/status"
	"github.com/arbiterhq/arbiter/internal/workload"
)

// TestEventBusIntegration tests that the bus carries the full lifecycle of a
// dispatched task to a subscriber, simulating display-layer consumption.
func TestEventBusIntegration(t *testing.T) {
	bus := event.NewBus()

	var mu sync.Mutex
	var types []string
	bus.SubscribeAll(func(e event.Event) {
		mu.Lock()
		types = append(types, e.EventType())
		mu.Unlock()
	})

	d := dispatch.New(ledger.New(bus), dispatch.WithBus(bus))
	defer d.Shutdown(true)

	task := dispatch.NewTask("builder", "compile", []string{"src/app.go"},
		func(ctx context.Context) (any, error) { return "done", nil })

	h, err := d.Submit(task)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-h.Done()

	// task.completed is published before the handle resolves, so the full
	// sequence is visible once Done fires.
	mu.Lock()
	got := append([]string(nil), types...)
	mu.Unlock()

	want := []string{"task.submitted", "lock.reserved", "task.admitted", "lock.released", "task.completed"}
	if len(got) != len(want) {
		t.Fatalf("event types = %v, want %v", got, want)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("event[%d] = %q, want %q", i, got[i], w)
		}
	}
}

// TestWorkloadToDispatchIntegration runs a small workload end to end: specs
// validated against ownership rules, built into command tasks, executed with
// conflict control, and summarized by the status reporter.
func TestWorkloadToDispatchIntegration(t *testing.T) {
	rules, err := ownership.NewRuleset(map[string][]string{
		"builder": {"src/**"},
		"tester":  {"test/**"},
	})
	if err != nil {
		t.Fatalf("NewRuleset() error = %v", err)
	}

	specs := []workload.TaskSpec{
		{Actor: "builder", Desc: "touch source", Locks: []string{"src/main.go"}, Command: []string{"true"}},
		{Actor: "tester", Desc: "touch tests", Locks: []string{"test/main_test.go"}, Command: []string{"true"}},
	}
	for _, ts := range specs {
		if err := rules.Validate(ts.Actor, ts.Locks); err != nil {
			t.Fatalf("Validate(%q) error = %v", ts.Actor, err)
		}
	}

	bus := event.NewBus()
	d := dispatch.New(ledger.New(bus), dispatch.WithBus(bus), dispatch.WithMaxParallel(2))
	defer d.Shutdown(true)

	dir := t.TempDir()
	var handles []*dispatch.Handle
	for _, ts := range specs {
		h, err := d.Submit(workload.Build(ts, dir))
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		handles = append(handles, h)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, h := range handles {
		if err := h.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		if err := h.Err(); err != nil {
			t.Errorf("task %s: Err() = %v, want nil", h.Task().Desc, err)
		}
	}

	out := status.RenderText(d.Status())
	for _, want := range []string{"running_actors: []", "held_locks: []", "queued_count: 0"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderText() missing %q:\n%s", want, out)
		}
	}
}

// TestOwnershipRejectsBeforeDispatch verifies the admission gate: a spec whose
// locks fall outside its actor's grant never reaches the dispatcher.
func TestOwnershipRejectsBeforeDispatch(t *testing.T) {
	rules, err := ownership.NewRuleset(map[string][]string{
		"builder": {"src/**"},
	})
	if err != nil {
		t.Fatalf("NewRuleset() error = %v", err)
	}

	err = rules.Validate("builder", []string{"deploy/prod.yaml"})
	if err == nil {
		t.Fatal("Validate() error = nil, want permission error")
	}
}
