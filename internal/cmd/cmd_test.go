package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arbiterhq/arbiter/internal/config"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// resetConfig clears viper state so tests see only defaults.
func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	config.SetDefaults()
	t.Cleanup(viper.Reset)
}

func writeWorkload(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workload.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write workload: %v", err)
	}
	return path
}

func TestRootCommandSubcommands(t *testing.T) {
	if rootCmd.Use != "arbiter" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "arbiter")
	}

	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, name := range []string{"run", "validate", "version"} {
		if !cmdMap[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(rootCmd, "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.HasPrefix(out, "arbiter ") {
		t.Errorf("version output = %q, want prefix %q", out, "arbiter ")
	}
}

func TestValidateCommand(t *testing.T) {
	resetConfig(t)

	path := writeWorkload(t, `tasks:
  - actor: builder
    desc: compile
    locks: [src/main.go]
    command: ["true"]
  - actor: tester
    desc: run tests
    locks: [test/main_test.go]
    command: ["true"]
`)

	out, err := executeCommand(rootCmd, "validate", path)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}
	if !strings.Contains(out, "2 tasks ok") {
		t.Errorf("validate output = %q, want %q", out, "2 tasks ok")
	}
}

func TestValidateCommandRejectsUngrantedLock(t *testing.T) {
	resetConfig(t)
	viper.Set("ownership.rules", map[string][]string{
		"builder": {"src/**"},
	})

	path := writeWorkload(t, `tasks:
  - actor: builder
    desc: deploy
    locks: [deploy/prod.yaml]
    command: ["true"]
`)

	if _, err := executeCommand(rootCmd, "validate", path); err == nil {
		t.Fatal("validate command error = nil, want ownership error")
	}
}

func TestValidateCommandMissingFile(t *testing.T) {
	resetConfig(t)

	if _, err := executeCommand(rootCmd, "validate", "/nonexistent/workload.yaml"); err == nil {
		t.Fatal("validate command error = nil, want load error")
	}
}

func TestReportDrifts(t *testing.T) {
	var buf bytes.Buffer
	reportDrifts(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("reportDrifts(nil) wrote %q, want nothing", buf.String())
	}

	reportDrifts(&buf, []string{"docs/spec.md", "src/main.go"})
	out := buf.String()
	for _, want := range []string{"2 resource(s)", "docs/spec.md", "src/main.go"} {
		if !strings.Contains(out, want) {
			t.Errorf("reportDrifts output missing %q:\n%s", want, out)
		}
	}
}
