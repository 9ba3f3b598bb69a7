// Package commands implements the chunkbench CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chunkbench",
	Short: "Exercise the chunk cache and replay scheduler",
	Long: `chunkbench drives the chunk cache and the predictable-replay
timestamp scheduler against a synthetic in-memory backing store and
database, standing in for the storage engine these subsystems plug into.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it. Called
// once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/chunkcache/config.yaml)")

	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(initCmd)
}
