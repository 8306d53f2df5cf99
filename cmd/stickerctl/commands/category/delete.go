package category

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a category",
	Long: `Delete a category by id or name.

Images in the category are moved to the default category. You will be
prompted for confirmation unless --force is specified.

Examples:
  # Delete with confirmation
  stickerctl category delete 打工

  # Delete without confirmation
  stickerctl category delete 打工 --force`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	return cmdutil.RunDeleteWithConfirmation("Category", name, deleteForce, func() error {
		if err := client.DeleteCategory(name); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return nil
	})
}
