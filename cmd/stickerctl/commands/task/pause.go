package task

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the enrichment worker",
	Long: `Pause the enrichment worker. Tasks already running finish; no new
tasks are claimed until the worker is resumed.

Examples:
  # Pause the worker
  stickerctl task pause`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPaused(true)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the enrichment worker",
	Long: `Resume a paused enrichment worker.

Examples:
  # Resume the worker
  stickerctl task resume`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPaused(false)
	},
}

func setPaused(paused bool) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	state, err := client.PauseWorker(paused)
	if err != nil {
		return fmt.Errorf("failed to update worker state: %w", err)
	}

	if state {
		cmdutil.PrintSuccess("Worker paused")
	} else {
		cmdutil.PrintSuccess("Worker running")
	}
	return nil
}
