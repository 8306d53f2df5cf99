// Package category implements category management commands for stickerctl.
package category

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for category management.
var Cmd = &cobra.Command{
	Use:     "category",
	Aliases: []string{"categories", "cat"},
	Short:   "Category management",
	Long: `Manage the categories that group images in the catalog.

Deleting a category moves its images to the default category.

Examples:
  # List categories
  stickerctl category list

  # Create a category
  stickerctl category create 打工 --description "办公室表情"

  # Delete a category
  stickerctl category delete 打工`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(deleteCmd)
}
