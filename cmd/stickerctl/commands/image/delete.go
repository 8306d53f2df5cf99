package image

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an image",
	Long: `Delete an image and its stored file.

This action is irreversible. You will be prompted for confirmation
unless --force is specified.

Examples:
  # Delete with confirmation
  stickerctl image delete 8d2f1c3a

  # Delete without confirmation
  stickerctl image delete 8d2f1c3a --force`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	id := args[0]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	return cmdutil.RunDeleteWithConfirmation("Image", id, deleteForce, func() error {
		if err := client.DeleteImage(id); err != nil {
			return fmt.Errorf("failed to delete image: %w", err)
		}
		return nil
	})
}
