package image

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
	"github.com/marmos91/stickerd/pkg/apiclient"
)

var (
	uploadName     string
	uploadCategory string
	uploadTags     string
	uploadAnalyze  bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload local image files",
	Long: `Upload one or more local image files to the catalog.

Requires an upload token (stored via 'stickerctl login' or passed with
--token). Duplicate images are rejected by the server. The --name flag
only applies when uploading a single file.

Examples:
  # Upload one file
  stickerctl image upload ./happy-cat.gif

  # Upload with metadata and AI enrichment
  stickerctl image upload ./cat.gif --name 开心的猫 --category 开心 --tags 猫,可爱 --analyze

  # Upload a batch
  stickerctl image upload ./stickers/*.gif`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadName, "name", "", "Display name (single file only, defaults to filename)")
	uploadCmd.Flags().StringVar(&uploadCategory, "category", "", "Category to assign")
	uploadCmd.Flags().StringVar(&uploadTags, "tags", "", "Tags to attach (comma-separated)")
	uploadCmd.Flags().BoolVar(&uploadAnalyze, "analyze", false, "Request AI enrichment after upload")
}

func runUpload(cmd *cobra.Command, args []string) error {
	if uploadName != "" && len(args) > 1 {
		return fmt.Errorf("--name cannot be used when uploading multiple files")
	}

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	opts := apiclient.UploadOptions{
		Name:     uploadName,
		Category: uploadCategory,
		Tags:     cmdutil.ParseCommaSeparatedList(uploadTags),
		Analyze:  uploadAnalyze,
	}

	var uploaded []apiclient.Image
	var failures int
	for _, path := range args {
		img, err := client.UploadImage(path, opts)
		if err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			continue
		}
		uploaded = append(uploaded, *img)
	}

	if len(uploaded) > 0 {
		if err := cmdutil.PrintOutput(os.Stdout, uploaded, false, "", ImageList(uploaded)); err != nil {
			return err
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d uploads failed", failures, len(args))
	}
	return nil
}
