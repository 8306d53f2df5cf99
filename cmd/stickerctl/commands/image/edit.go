package image

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
	"github.com/marmos91/stickerd/pkg/apiclient"
)

var (
	editName     string
	editCategory string
	editTags     string
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit image metadata",
	Long: `Edit the name, category, or tags of an image. Only the fields given
as flags are changed; --tags replaces the whole tag list.

Examples:
  # Rename an image
  stickerctl image edit 8d2f1c3a --name 更开心的猫

  # Move to a different category
  stickerctl image edit 8d2f1c3a --category 庆祝

  # Replace the tags
  stickerctl image edit 8d2f1c3a --tags 猫,开心,蹦跳`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editName, "name", "", "New display name")
	editCmd.Flags().StringVar(&editCategory, "category", "", "New category")
	editCmd.Flags().StringVar(&editTags, "tags", "", "New tags (comma-separated, replaces existing)")
}

func runEdit(cmd *cobra.Command, args []string) error {
	if editName == "" && editCategory == "" && !cmd.Flags().Changed("tags") {
		return fmt.Errorf("nothing to change: pass --name, --category, or --tags")
	}

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	id := args[0]
	var img *apiclient.Image

	if editName != "" {
		if img, err = client.RenameImage(id, editName); err != nil {
			return fmt.Errorf("failed to rename image: %w", err)
		}
	}
	if editCategory != "" {
		if img, err = client.SetImageCategory(id, editCategory); err != nil {
			return fmt.Errorf("failed to change category: %w", err)
		}
	}
	if cmd.Flags().Changed("tags") {
		if img, err = client.SetImageTags(id, cmdutil.ParseCommaSeparatedList(editTags)); err != nil {
			return fmt.Errorf("failed to change tags: %w", err)
		}
	}

	return cmdutil.PrintOutput(os.Stdout, img, false, "", ImageList{*img})
}
