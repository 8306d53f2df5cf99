package task

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
)

var failedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List permanently failed enrichments",
	Long: `List the image ids whose enrichment exhausted its retries.

Use 'stickerctl task retry' to give them a fresh attempt budget.

Examples:
  # List failed image ids
  stickerctl task failed`,
	RunE: runFailed,
}

// FailedList is a list of failed image ids for table rendering.
type FailedList []string

// Headers implements TableRenderer.
func (fl FailedList) Headers() []string {
	return []string{"IMAGE ID"}
}

// Rows implements TableRenderer.
func (fl FailedList) Rows() [][]string {
	rows := make([][]string, 0, len(fl))
	for _, id := range fl {
		rows = append(rows, []string{id})
	}
	return rows
}

func runFailed(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	ids, err := client.FailedTasks()
	if err != nil {
		return fmt.Errorf("failed to list failed tasks: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, ids, len(ids) == 0, "No failed tasks.", FailedList(ids))
}
