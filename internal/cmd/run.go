package cmd

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/dispatch"
	"github.com/arbiterhq/arbiter/internal/event"
	"github.com/arbiterhq/arbiter/internal/ledger"
	"github.com/arbiterhq/arbiter/internal/logging"
	"github.com/arbiterhq/arbiter/internal/ownership"
	"github.com/arbiterhq/arbiter/internal/status"
	"github.com/arbiterhq/arbiter/internal/tui"
	"github.com/arbiterhq/arbiter/internal/watch"
	"github.com/arbiterhq/arbiter/internal/workload"
)

var runCmd = &cobra.Command{
	Use:   "run <workload.yaml>",
	Short: "Execute a workload file",
	Long: `Load a workload file, validate it against the ownership rules, and submit
every task to the dispatcher. Tasks run in parallel up to max_parallel,
except where an actor identity or a resource lock forces serialization.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().Int("max-parallel", 0, "override dispatcher.max_parallel")
	runCmd.Flags().String("dir", "", "working directory for task commands")
	runCmd.Flags().Bool("json", false, "print the final status snapshot as JSON")
	runCmd.Flags().Bool("tui", false, "show a live dashboard while the workload runs")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	maxParallel := cfg.Dispatcher.MaxParallel
	if n, _ := cmd.Flags().GetInt("max-parallel"); n > 0 {
		maxParallel = n
	}
	dir, _ := cmd.Flags().GetString("dir")
	asJSON, _ := cmd.Flags().GetBool("json")
	withTUI, _ := cmd.Flags().GetBool("tui")

	spec, err := workload.Load(args[0])
	if err != nil {
		return err
	}

	rules, err := ownership.NewRuleset(cfg.Ownership.Rules)
	if err != nil {
		return fmt.Errorf("compile ownership rules: %w", err)
	}
	if len(cfg.Ownership.Rules) > 0 {
		if err := spec.Validate(rules); err != nil {
			return fmt.Errorf("workload rejected: %w", err)
		}
	}

	log, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("open logger: %w", err)
	}
	defer log.Close() //nolint:errcheck

	bus := event.NewBus()
	led := ledger.New(bus)
	d := dispatch.New(led,
		dispatch.WithMaxParallel(maxParallel),
		dispatch.WithPollInterval(cfg.Dispatcher.PollInterval()),
		dispatch.WithBus(bus),
		dispatch.WithLogger(log),
	)

	var watcher *watch.Watcher
	if cfg.Watch.Enabled {
		root := cfg.Watch.Root
		if root == "" {
			root = "."
		}
		watcher, err = watch.New(root, led, bus, watch.WithLogger(log))
		if err != nil {
			return fmt.Errorf("start drift watcher: %w", err)
		}
		watcher.Start()
		defer watcher.Stop()
	}

	handles := make([]*dispatch.Handle, 0, len(spec.Tasks))
	for _, ts := range spec.Tasks {
		h, err := d.Submit(workload.Build(ts, dir))
		if err != nil {
			return fmt.Errorf("submit task for actor %q: %w", ts.Actor, err)
		}
		handles = append(handles, h)
	}

	if withTUI {
		program := tea.NewProgram(tui.NewModel(d, bus, len(handles)))
		go func() {
			for _, h := range handles {
				<-h.Done()
			}
			program.Send(tui.DrainedMsg{})
		}()
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
	} else {
		for _, h := range handles {
			<-h.Done()
		}
	}

	d.Shutdown(true)
	if watcher != nil {
		reportDrifts(os.Stderr, watcher.Drifts())
	}
	return report(cmd, d, handles, asJSON)
}

// reportDrifts lists resources modified outside any lock during the run.
func reportDrifts(out io.Writer, drifts []string) {
	if len(drifts) == 0 {
		return
	}
	fmt.Fprintf(out, "drift: %d resource(s) modified outside any lock:\n", len(drifts))
	for _, p := range drifts {
		fmt.Fprintf(out, "  %s\n", p)
	}
}

// report prints per-task outcomes and the final snapshot. Returns an error
// when any payload failed so the process exits non-zero.
func report(cmd *cobra.Command, d *dispatch.Dispatcher, handles []*dispatch.Handle, asJSON bool) error {
	failed := 0
	for _, h := range handles {
		task := h.Task()
		if err := h.Err(); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL %s (%s): %v\n", task.Actor, task.Desc, err)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%s)\n", task.Actor, task.Desc)
		}
	}

	if asJSON {
		out, err := status.RenderJSON(d.Status())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
	} else {
		fmt.Fprint(cmd.OutOrStdout(), status.RenderText(d.Status()))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", failed, len(handles))
	}
	return nil
}
