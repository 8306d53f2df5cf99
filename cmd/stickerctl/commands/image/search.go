package image

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
)

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search images by keyword",
	Long: `Search images by keyword across names, categories and tags.

Examples:
  # Search for cat stickers
  stickerctl image search 猫

  # Search as JSON
  stickerctl image search happy -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	images, err := client.SearchImages(args[0])
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, images, len(images) == 0, "No matching images.", ImageList(images))
}
