package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Composable model pipelines",
	Long: `Relay runs pipelines of model-backed units: single tasks, sequential
groups and routers that pick exactly one branch at run time.

The bundled pipeline is a weekend planner. It checks the weather for an
area, routes to home or outdoor research, and summarizes the findings.

Every run is recorded so it can be inspected later with 'relay history'
and 'relay show'.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
