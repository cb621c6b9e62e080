package main

import (
	"os"

	"trialgraph/internal/util"
	"trialgraph/pkg/logger"
	"trialgraph/pkg/logger/console"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "trialgraph",
	Short: "Build property graphs from clinical trial registries",
	Long: `trialgraph fetches clinical trial records from source registries,
grounds their conditions and interventions to ontology identifiers,
and writes the resulting graph of trials, bio-entities, and edges
to flat files ready for bulk loading.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
			Debug: verbose,
		}))
		util.LoadEnv()
	},
}

// Execute runs the root command. Called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("Command failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "Path to the TOML configuration file")
}
