package image

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
)

var downloadOutput string

var downloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Download an image",
	Long: `Download the raw bytes of an image. The argument may be an image id
or an exact image name.

Examples:
  # Download to a file named after the id
  stickerctl image download 8d2f1c3a

  # Download to a specific file
  stickerctl image download 8d2f1c3a -f cat.gif

  # Pipe to stdout
  stickerctl image download 8d2f1c3a -f -`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "file", "f", "", "Output file ('-' for stdout, default: <id><ext>)")
}

// mimeExtensions maps the catalog's image content types to file extensions.
var mimeExtensions = map[string]string{
	"image/gif":  ".gif",
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

func runDownload(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	data, contentType, err := client.DownloadImage(args[0])
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	return writeImage(data, contentType, args[0], downloadOutput)
}

// writeImage writes image bytes to the requested destination. An empty
// destination derives a filename from the base name and content type.
func writeImage(data []byte, contentType, baseName, dest string) error {
	if dest == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}

	if dest == "" {
		dest = baseName + mimeExtensions[contentType]
	}

	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Saved %d bytes to %s", len(data), dest))
	return nil
}
