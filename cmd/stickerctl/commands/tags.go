package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List all tags",
	Long: `List every distinct tag in the catalog.

Examples:
  # List tags as table
  stickerctl tags

  # List as JSON
  stickerctl tags -o json`,
	RunE: runTags,
}

// TagList is a list of tags for table rendering.
type TagList []string

// Headers implements TableRenderer.
func (tl TagList) Headers() []string {
	return []string{"TAG"}
}

// Rows implements TableRenderer.
func (tl TagList) Rows() [][]string {
	rows := make([][]string, 0, len(tl))
	for _, tag := range tl {
		rows = append(rows, []string{tag})
	}
	return rows
}

func runTags(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	tags, err := client.ListTags()
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, tags, len(tags) == 0, "No tags found.", TagList(tags))
}
