package task

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
	"github.com/marmos91/stickerd/pkg/apiclient"
)

var (
	configConcurrency int
	configBatchDelay  int64
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Adjust worker settings at runtime",
	Long: `Adjust the enrichment worker's concurrency and batch delay at runtime.

Changes are not persisted: a restart restores the configured values.
Pass 0 (concurrency) or a negative value (batch delay) to restore the
configured default immediately.

Examples:
  # Raise concurrency
  stickerctl task config --concurrency 5

  # Slow down dispatching
  stickerctl task config --batch-delay 500

  # Restore configured concurrency
  stickerctl task config --concurrency 0`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().IntVar(&configConcurrency, "concurrency", 0, "Concurrent tasks (0 restores the configured value)")
	configCmd.Flags().Int64Var(&configBatchDelay, "batch-delay", -1, "Delay between dispatches in ms (negative restores the configured value)")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("concurrency") && !cmd.Flags().Changed("batch-delay") {
		return fmt.Errorf("nothing to change: pass --concurrency or --batch-delay")
	}

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	var cfg apiclient.WorkerConfig
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = &configConcurrency
	}
	if cmd.Flags().Changed("batch-delay") {
		cfg.BatchDelay = &configBatchDelay
	}

	concurrency, batchDelay, err := client.ConfigureWorker(cfg)
	if err != nil {
		return fmt.Errorf("failed to configure worker: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Worker configured: concurrency=%d batchDelay=%dms", concurrency, batchDelay))
	return nil
}
