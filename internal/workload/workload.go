// Package workload loads batches of tasks from YAML files and turns each
// entry into a submittable task whose payload runs a command. The workload
// runner is a dispatcher caller: it owns lock population, ownership
// validation, and per-task timeouts, none of which the dispatcher enforces.
package workload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arbiterhq/arbiter/internal/dispatch"
	"github.com/arbiterhq/arbiter/internal/ownership"
)

// Duration decodes YAML duration strings like "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// TaskSpec describes one task in a workload file.
type TaskSpec struct {
	// Actor is the logical worker class the task runs as.
	Actor string `yaml:"actor"`

	// Desc is a free-text label for display.
	Desc string `yaml:"desc"`

	// Locks are the resources the command will exclusively modify.
	Locks []string `yaml:"locks"`

	// Command is the argv to execute, e.g. ["sh", "-c", "make docs"].
	Command []string `yaml:"command"`

	// Timeout bounds command execution; zero means no deadline.
	Timeout Duration `yaml:"timeout"`
}

// Spec is a parsed workload file.
type Spec struct {
	Tasks []TaskSpec `yaml:"tasks"`
}

// Load reads and validates a workload file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workload: %w", err)
	}

	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse workload: %w", err)
	}
	if len(spec.Tasks) == 0 {
		return nil, errors.New("workload defines no tasks")
	}
	for i, ts := range spec.Tasks {
		if ts.Actor == "" {
			return nil, fmt.Errorf("task %d: actor must not be empty", i)
		}
		if len(ts.Command) == 0 {
			return nil, fmt.Errorf("task %d (%s): command must not be empty", i, ts.Actor)
		}
	}
	return &spec, nil
}

// Validate checks every task's locks against the ownership rules.
func (s *Spec) Validate(rules *ownership.Ruleset) error {
	for i, ts := range s.Tasks {
		if err := rules.Validate(ts.Actor, ts.Locks); err != nil {
			return fmt.Errorf("task %d: %w", i, err)
		}
	}
	return nil
}

// Build converts a TaskSpec into a submittable task. The payload runs the
// command in dir (empty means the current directory) and resolves to the
// command's combined output.
func Build(ts TaskSpec, dir string) dispatch.Task {
	command := append([]string(nil), ts.Command...)
	timeout := time.Duration(ts.Timeout)

	payload := func(ctx context.Context) (any, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		cmd := exec.CommandContext(ctx, command[0], command[1:]...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		if err != nil {
			return string(out), fmt.Errorf("command %v: %w", command, err)
		}
		return string(out), nil
	}

	return dispatch.NewTask(ts.Actor, ts.Desc, ts.Locks, payload)
}
