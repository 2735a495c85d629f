// Package status formats dispatcher snapshots for external display.
// It contains no logic beyond formatting.
package status

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arbiterhq/arbiter/internal/dispatch"
)

// RenderText renders a snapshot in the dispatcher's minimal textual shape:
//
//	running_actors: ["A", "B"]
//	held_locks: ["file1.md", "file2.md"]
//	queued_count: 2
func RenderText(s dispatch.StatusSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "running_actors: %s\n", quoteList(s.RunningActors))
	fmt.Fprintf(&b, "held_locks: %s\n", quoteList(s.HeldLocks))
	fmt.Fprintf(&b, "queued_count: %d\n", s.QueuedCount)
	return b.String()
}

// RenderJSON renders a snapshot as indented JSON.
func RenderJSON(s dispatch.StatusSnapshot) (string, error) {
	data, err := json.MarshalIndent(normalize(s), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return string(data), nil
}

// normalize replaces nil slices with empty ones so JSON output always shows
// arrays rather than null.
func normalize(s dispatch.StatusSnapshot) dispatch.StatusSnapshot {
	if s.RunningActors == nil {
		s.RunningActors = []string{}
	}
	if s.HeldLocks == nil {
		s.HeldLocks = []string{}
	}
	return s
}

// quoteList formats names as a JSON-style quoted list.
func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
