package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/internal/cli/credentials"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored upload token",
	Long: `Remove the upload token from the current connection.

The server URL is kept, so read-only commands continue to work.`,
	RunE: runLogout,
}

func runLogout(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize connection store: %w", err)
	}

	if err := store.ClearCurrentToken(); err != nil {
		if errors.Is(err, credentials.ErrNoCurrentContext) {
			fmt.Println("No stored connection.")
			return nil
		}
		return err
	}

	fmt.Println("Upload token removed.")
	return nil
}
