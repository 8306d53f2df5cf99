package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
	"github.com/marmos91/stickerd/internal/cli/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the status of the connected stickerd server.

This command checks the readiness endpoint and displays the catalog size
along with the enrichment queue counters.

Examples:
  # Check status of connected server
  stickerctl status

  # Output as JSON
  stickerctl status -o json`,
	RunE: runStatus,
}

// ServerStatus represents the server status for display.
type ServerStatus struct {
	Server  string `json:"server" yaml:"server"`
	Status  string `json:"status" yaml:"status"`
	Healthy bool   `json:"healthy" yaml:"healthy"`
	Images  int64  `json:"images" yaml:"images"`
	Pending int64  `json:"pending_tasks" yaml:"pending_tasks"`
	Failed  int64  `json:"failed_tasks" yaml:"failed_tasks"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	status := ServerStatus{
		Server: client.BaseURL(),
		Status: "unreachable",
	}

	if health, err := client.Health(); err != nil {
		status.Error = err.Error()
	} else {
		status.Status = health.Status
		status.Healthy = health.Status == "ready"
		status.Images = health.Images

		// Queue counters are best-effort extras.
		if stats, err := client.TaskStats(); err == nil {
			status.Pending = stats.Stats.Pending
			status.Failed = stats.Stats.Failed
		}
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status)
	}

	return nil
}

func printStatusTable(status ServerStatus) {
	fmt.Println()
	fmt.Println("stickerd Server Status")
	fmt.Println("======================")
	fmt.Println()
	fmt.Printf("  Server:        %s\n", status.Server)

	if status.Healthy {
		fmt.Printf("  Status:        \033[32m● %s\033[0m\n", status.Status)
	} else if status.Status == "unreachable" {
		fmt.Printf("  Status:        \033[31m○ %s\033[0m\n", status.Status)
	} else {
		fmt.Printf("  Status:        \033[33m● %s\033[0m\n", status.Status)
	}

	fmt.Printf("  Images:        %d\n", status.Images)
	fmt.Printf("  Pending tasks: %d\n", status.Pending)
	fmt.Printf("  Failed tasks:  %d\n", status.Failed)
	if status.Error != "" {
		fmt.Printf("  Error:         %s\n", status.Error)
	}
	fmt.Println()
}
