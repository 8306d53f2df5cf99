// Package image implements image management commands for stickerctl.
package image

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for image management.
var Cmd = &cobra.Command{
	Use:     "image",
	Aliases: []string{"images", "img"},
	Short:   "Image management",
	Long: `Browse, upload, and organize images in the sticker catalog.

Examples:
  # List all images
  stickerctl image list

  # Search by keyword
  stickerctl image search 猫

  # Upload a local file with enrichment
  stickerctl image upload ./happy-cat.gif --analyze

  # Download an image
  stickerctl image download 8d2f... -f cat.gif`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(searchCmd)
	Cmd.AddCommand(infoCmd)
	Cmd.AddCommand(uploadCmd)
	Cmd.AddCommand(downloadCmd)
	Cmd.AddCommand(randomCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(editCmd)
	Cmd.AddCommand(analyzeCmd)
}
