package image

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
)

var (
	randomCategory string
	randomTag      string
	randomOutput   string
)

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Download a random image",
	Long: `Download a random image, optionally restricted to a category or tag.

Examples:
  # Any random image
  stickerctl image random -f surprise.gif

  # Random image from a category
  stickerctl image random --category 开心 -f happy.gif

  # Random image with a tag, piped to stdout
  stickerctl image random --tag 猫 -f -`,
	RunE: runRandom,
}

func init() {
	randomCmd.Flags().StringVar(&randomCategory, "category", "", "Restrict to a category")
	randomCmd.Flags().StringVar(&randomTag, "tag", "", "Restrict to a tag")
	randomCmd.Flags().StringVarP(&randomOutput, "file", "f", "", "Output file ('-' for stdout, default: random<ext>)")
}

func runRandom(cmd *cobra.Command, args []string) error {
	if randomCategory != "" && randomTag != "" {
		return fmt.Errorf("--category and --tag are mutually exclusive")
	}

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	var data []byte
	var contentType string
	if randomTag != "" {
		data, contentType, err = client.RandomImageByTag(randomTag)
	} else {
		data, contentType, err = client.RandomImage(randomCategory)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch random image: %w", err)
	}

	return writeImage(data, contentType, "random", randomOutput)
}
