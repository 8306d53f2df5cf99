package task

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
	"github.com/marmos91/stickerd/internal/cli/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue and worker statistics",
	Long: `Show the enrichment queue counters and, when a worker is running,
its runtime state.

Examples:
  # Show stats as table
  stickerctl task stats

  # Show as JSON
  stickerctl task stats -o json`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	stats, err := client.TaskStats()
	if err != nil {
		return fmt.Errorf("failed to get task stats: %w", err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, stats)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, stats)
	default:
		pairs := [][2]string{
			{"Pending", strconv.FormatInt(stats.Stats.Pending, 10)},
			{"Processing", strconv.FormatInt(stats.Stats.Processing, 10)},
			{"Succeeded", strconv.FormatInt(stats.Stats.Succeeded, 10)},
			{"Failed", strconv.FormatInt(stats.Stats.Failed, 10)},
		}
		if w := stats.Worker; w != nil {
			state := "running"
			if w.Paused {
				state = "paused"
			}
			pairs = append(pairs,
				[2]string{"Worker", state},
				[2]string{"Active", strconv.Itoa(w.Active)},
				[2]string{"Concurrency", strconv.Itoa(w.Concurrency)},
				[2]string{"Batch delay", fmt.Sprintf("%dms", w.BatchDelay)},
			)
		} else {
			pairs = append(pairs, [2]string{"Worker", "not running"})
		}
		return output.SimpleTable(os.Stdout, pairs)
	}
}
