package image

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
	"github.com/marmos91/stickerd/internal/cli/output"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <id>",
	Short: "Re-run AI analysis on an image",
	Long: `Run AI analysis on an image synchronously, bypassing the task queue,
and apply the result to its metadata.

Requires the server to have a vision model configured.

Examples:
  # Re-analyze an image
  stickerctl image analyze 8d2f1c3a`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	result, err := client.AnalyzeImage(args[0])
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, result)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, result)
	default:
		return output.SimpleTable(os.Stdout, [][2]string{
			{"ID", result.ID},
			{"Name", result.Name},
			{"Category", result.Category},
			{"Tags", cmdutil.EmptyOr(strings.Join(result.Tags, ","), "-")},
		})
	}
}
