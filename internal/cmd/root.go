// Package cmd wires the arbiter CLI. All commands consume the dispatcher
// through its public surface: Submit, Status, Shutdown, and handles.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arbiterhq/arbiter/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "arbiter",
	Short: "Conflict-aware task dispatcher for multi-actor automation",
	Long: `Arbiter runs batches of actor tasks in parallel while guaranteeing that
no two tasks sharing an actor identity or a resource lock ever execute
at the same time.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/arbiter/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/arbiter")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("ARBITER")
	// Replace dots with underscores for nested keys in env vars
	// e.g., ARBITER_DISPATCHER_MAX_PARALLEL for dispatcher.max_parallel
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
