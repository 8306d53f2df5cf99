// Package task implements enrichment pipeline commands for stickerctl.
package task

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for enrichment pipeline management.
var Cmd = &cobra.Command{
	Use:     "task",
	Aliases: []string{"tasks"},
	Short:   "Enrichment pipeline management",
	Long: `Inspect and control the AI enrichment pipeline.

Examples:
  # Show queue counters and worker state
  stickerctl task stats

  # List images whose enrichment failed permanently
  stickerctl task failed

  # Re-enqueue all failed tasks
  stickerctl task retry

  # Pause the worker
  stickerctl task pause

  # Adjust worker concurrency at runtime
  stickerctl task config --concurrency 5`,
}

func init() {
	Cmd.AddCommand(statsCmd)
	Cmd.AddCommand(failedCmd)
	Cmd.AddCommand(retryCmd)
	Cmd.AddCommand(pauseCmd)
	Cmd.AddCommand(resumeCmd)
	Cmd.AddCommand(configCmd)
}
