package category

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
)

var createDescription string

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a category",
	Long: `Create a new category.

Examples:
  # Create a category
  stickerctl category create 打工

  # Create with a description
  stickerctl category create 打工 --description "办公室表情"`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVarP(&createDescription, "description", "d", "", "Category description")
}

func runCreate(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	category, err := client.CreateCategory(args[0], createDescription)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	return cmdutil.PrintResourceWithSuccess(os.Stdout, category,
		fmt.Sprintf("Category '%s' created", category.Name))
}
