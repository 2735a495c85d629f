package status

import (
	"encoding/json"
	"testing"

	"github.com/arbiterhq/arbiter/internal/dispatch"
)

func TestRenderText(t *testing.T) {
	tests := []struct {
		name     string
		snapshot dispatch.StatusSnapshot
		want     string
	}{
		{
			name: "populated snapshot",
			snapshot: dispatch.StatusSnapshot{
				RunningActors: []string{"A", "B"},
				HeldLocks:     []string{"file1.md", "file2.md"},
				QueuedCount:   2,
			},
			want: "running_actors: [\"A\", \"B\"]\nheld_locks: [\"file1.md\", \"file2.md\"]\nqueued_count: 2\n",
		},
		{
			name:     "empty snapshot",
			snapshot: dispatch.StatusSnapshot{},
			want:     "running_actors: []\nheld_locks: []\nqueued_count: 0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderText(tt.snapshot); got != tt.want {
				t.Errorf("RenderText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderJSON(t *testing.T) {
	out, err := RenderJSON(dispatch.StatusSnapshot{
		RunningActors: []string{"implementer"},
		HeldLocks:     []string{"config.yaml"},
		QueuedCount:   1,
	})
	if err != nil {
		t.Fatalf("RenderJSON() error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["queued_count"] != float64(1) {
		t.Errorf("queued_count = %v, want 1", decoded["queued_count"])
	}
	actors, ok := decoded["running_actors"].([]any)
	if !ok || len(actors) != 1 || actors[0] != "implementer" {
		t.Errorf("running_actors = %v, want [implementer]", decoded["running_actors"])
	}
}

func TestRenderJSONEmptySnapshotUsesArrays(t *testing.T) {
	out, err := RenderJSON(dispatch.StatusSnapshot{})
	if err != nil {
		t.Fatalf("RenderJSON() error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if _, ok := decoded["running_actors"].([]any); !ok {
		t.Errorf("running_actors = %v, want empty array not null", decoded["running_actors"])
	}
	if _, ok := decoded["held_locks"].([]any); !ok {
		t.Errorf("held_locks = %v, want empty array not null", decoded["held_locks"])
	}
}
