package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/relay/internal/config"
	"github.com/ShayCichocki/relay/internal/orchestrator"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask running pipelines in this project to stop",
	Long: `Request a graceful stop of every 'relay run' in this project.

Running pipelines stop at their next unit boundary and are recorded with a
cancelled status.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := orchestrator.RequestStop(config.StateDir()); err != nil {
			return err
		}
		printStatus("✓", "Stop requested", color.FgGreen)
		return nil
	},
}
