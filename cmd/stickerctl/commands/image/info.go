package image

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
	"github.com/marmos91/stickerd/internal/bytesize"
	"github.com/marmos91/stickerd/internal/cli/output"
	"github.com/marmos91/stickerd/internal/cli/timeutil"
)

var infoCmd = &cobra.Command{
	Use:   "info <id>",
	Short: "Show image metadata",
	Long: `Show the metadata of a single image. The argument may be an image id
or an exact image name.

Examples:
  # Show image details
  stickerctl image info 8d2f1c3a

  # Look up by name
  stickerctl image info 开心的猫`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	img, err := client.GetImage(args[0])
	if err != nil {
		return fmt.Errorf("failed to get image: %w", err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, img)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, img)
	default:
		return output.SimpleTable(os.Stdout, [][2]string{
			{"ID", img.ID},
			{"Name", img.Name},
			{"Category", img.Category},
			{"Tags", cmdutil.EmptyOr(strings.Join(img.Tags, ","), "-")},
			{"Type", img.MimeType},
			{"Size", bytesize.ByteSize(img.Size).String()},
			{"Hash", img.Hash},
			{"URL", img.URL},
			{"Created", timeutil.FormatLocal(img.CreatedAt)},
		})
	}
}
