// Command stickerctl is the command-line client for a stickerd server.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/stickerd/cmd/stickerctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
