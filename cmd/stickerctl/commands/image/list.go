package image

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
	"github.com/marmos91/stickerd/internal/bytesize"
	"github.com/marmos91/stickerd/internal/cli/timeutil"
	"github.com/marmos91/stickerd/pkg/apiclient"
)

var (
	listCategory string
	listTags     string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List images",
	Long: `List images in the catalog, optionally filtered by category and tags.

When multiple tags are given, images matching any of them are returned.

Examples:
  # List all images
  stickerctl image list

  # List one category
  stickerctl image list --category 开心

  # List images carrying either tag
  stickerctl image list --tags 猫,狗

  # List as JSON
  stickerctl image list -o json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "Filter by category")
	listCmd.Flags().StringVar(&listTags, "tags", "", "Filter by tags (comma-separated, any match)")
}

// ImageList is a list of images for table rendering.
type ImageList []apiclient.Image

// Headers implements TableRenderer.
func (il ImageList) Headers() []string {
	return []string{"ID", "NAME", "CATEGORY", "TAGS", "SIZE", "CREATED"}
}

// Rows implements TableRenderer.
func (il ImageList) Rows() [][]string {
	rows := make([][]string, 0, len(il))
	for _, img := range il {
		rows = append(rows, []string{
			img.ID,
			img.Name,
			img.Category,
			cmdutil.EmptyOr(strings.Join(img.Tags, ","), "-"),
			bytesize.ByteSize(img.Size).String(),
			timeutil.FormatLocal(img.CreatedAt),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	images, err := client.ListImages(listCategory, cmdutil.ParseCommaSeparatedList(listTags))
	if err != nil {
		return fmt.Errorf("failed to list images: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, images, len(images) == 0, "No images found.", ImageList(images))
}
