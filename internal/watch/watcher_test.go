package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arbiterhq/arbiter/internal/event"
	"github.com/arbiterhq/arbiter/internal/ledger"
)

func newTestWatcher(t *testing.T) (*Watcher, *ledger.Ledger, *event.Bus, string) {
	t.Helper()

	dir := t.TempDir()
	bus := event.NewBus()
	l := ledger.New(nil)

	w, err := New(dir, l, bus)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	w.Start()
	t.Cleanup(w.Stop)

	return w, l, bus, dir
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestUnlockedWriteIsDrift(t *testing.T) {
	w, _, bus, dir := newTestWatcher(t)

	driftCh := make(chan event.Event, 1)
	bus.Subscribe("watch.drift", func(e event.Event) {
		select {
		case driftCh <- e:
		default:
		}
	})

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	waitFor(t, func() bool { return len(w.Drifts()) > 0 }, "drift not recorded for unlocked write")

	drifts := w.Drifts()
	if drifts[0] != "config.yaml" {
		t.Errorf("Drifts() = %v, want [config.yaml]", drifts)
	}

	select {
	case e := <-driftCh:
		de, ok := e.(event.DriftDetectedEvent)
		if !ok {
			t.Fatalf("event type = %T, want DriftDetectedEvent", e)
		}
		if de.Path != "config.yaml" {
			t.Errorf("event path = %q, want config.yaml", de.Path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no watch.drift event published")
	}
}

func TestLockedWriteIsNotDrift(t *testing.T) {
	w, l, _, dir := newTestWatcher(t)

	if !l.TryReserve("implementer", []string{"config.yaml"}) {
		t.Fatal("TryReserve() = false, want true")
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	// Give the debounced event time to flow through.
	time.Sleep(300 * time.Millisecond)

	if drifts := w.Drifts(); len(drifts) != 0 {
		t.Errorf("Drifts() = %v, want empty for a locked resource", drifts)
	}
}

func TestIgnoredPathsAreSkipped(t *testing.T) {
	w, _, _, dir := newTestWatcher(t)

	gitDir := filepath.Join(dir, ".git")
	if err := os.MkdirAll(gitDir, 0755); err != nil {
		t.Fatalf("failed to create .git: %v", err)
	}
	if err := os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("ref"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	time.Sleep(300 * time.Millisecond)

	if drifts := w.Drifts(); len(drifts) != 0 {
		t.Errorf("Drifts() = %v, want ignored paths skipped", drifts)
	}
}

func TestClearOldDrifts(t *testing.T) {
	w, _, _, dir := newTestWatcher(t)

	if err := os.WriteFile(filepath.Join(dir, "a.md"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	waitFor(t, func() bool { return len(w.Drifts()) == 1 }, "drift not recorded")

	w.ClearOldDrifts(time.Nanosecond)
	waitFor(t, func() bool { return len(w.Drifts()) == 0 }, "old drift not cleared")
}
