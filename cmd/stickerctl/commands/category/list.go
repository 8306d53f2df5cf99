package category

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
	"github.com/marmos91/stickerd/internal/cli/timeutil"
	"github.com/marmos91/stickerd/pkg/apiclient"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all categories",
	Long: `List all categories with their image counts.

Examples:
  # List categories as table
  stickerctl category list

  # List as JSON
  stickerctl category list -o json`,
	RunE: runList,
}

// CategoryList is a list of categories for table rendering.
type CategoryList []apiclient.Category

// Headers implements TableRenderer.
func (cl CategoryList) Headers() []string {
	return []string{"NAME", "IMAGES", "DESCRIPTION", "CREATED"}
}

// Rows implements TableRenderer.
func (cl CategoryList) Rows() [][]string {
	rows := make([][]string, 0, len(cl))
	for _, c := range cl {
		rows = append(rows, []string{
			c.Name,
			strconv.FormatInt(c.EmojiCount, 10),
			cmdutil.EmptyOr(c.Description, "-"),
			timeutil.FormatLocal(c.CreatedAt),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	categories, err := client.ListCategories()
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, categories, len(categories) == 0, "No categories found.", CategoryList(categories))
}
