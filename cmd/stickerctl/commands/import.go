package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
)

var importAnalyze bool

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Bulk-import a folder on the server",
	Long: `Bulk-import every image in a folder on the server's filesystem.

The path is resolved on the server, not the local machine. Duplicate
images are skipped.

Examples:
  # Import a folder
  stickerctl import /data/stickers

  # Import and run AI enrichment on each image
  stickerctl import /data/stickers --analyze`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importAnalyze, "analyze", false, "Request AI enrichment for imported images")
}

func runImport(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	stats, err := client.ImportFolder(args[0], importAnalyze)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	return cmdutil.PrintResourceWithSuccess(os.Stdout, stats,
		fmt.Sprintf("Imported %d images (%d duplicates, %d failed)",
			stats.Imported, stats.Duplicates, stats.Failed))
}
