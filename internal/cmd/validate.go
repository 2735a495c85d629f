package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/ownership"
	"github.com/arbiterhq/arbiter/internal/workload"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workload.yaml>",
	Short: "Check a workload against the ownership rules",
	Long: `Parse a workload file and verify that every task only requests locks its
actor is granted by ownership.rules. Nothing is executed.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	spec, err := workload.Load(args[0])
	if err != nil {
		return err
	}

	// No configured rules means no ownership restrictions.
	if len(cfg.Ownership.Rules) > 0 {
		rules, err := ownership.NewRuleset(cfg.Ownership.Rules)
		if err != nil {
			return fmt.Errorf("compile ownership rules: %w", err)
		}
		if err := spec.Validate(rules); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d tasks ok\n", len(spec.Tasks))
	return nil
}
