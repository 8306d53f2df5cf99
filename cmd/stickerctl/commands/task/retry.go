package task

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-enqueue all failed enrichments",
	Long: `Move every permanently failed task back to the queue with a fresh
attempt budget.

Examples:
  # Retry all failed tasks
  stickerctl task retry`,
	RunE: runRetry,
}

func runRetry(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	n, err := client.RetryFailedTasks()
	if err != nil {
		return fmt.Errorf("retry failed: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Re-enqueued %d tasks", n))
	return nil
}
