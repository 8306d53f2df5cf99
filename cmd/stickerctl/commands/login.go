package commands

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/marmos91/stickerd/cmd/stickerctl/cmdutil"
	"github.com/marmos91/stickerd/internal/cli/credentials"
	"github.com/marmos91/stickerd/internal/cli/prompt"
	"github.com/marmos91/stickerd/pkg/apiclient"
)

var (
	loginServer string
	loginToken  string
	loginNoAuth bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Connect to a stickerd server",
	Long: `Connect to a stickerd server and store the connection.

The upload token is only needed for uploading images; browsing and
searching work without one. Use --no-token to store a read-only
connection without being prompted.

Examples:
  # Connect and store the upload token
  stickerctl login --server http://localhost:8080

  # Connect with the token on the command line (less secure)
  stickerctl login --server http://localhost:8080 --token secret

  # Store a read-only connection
  stickerctl login --server http://localhost:8080 --no-token`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginServer, "server", "", "Server URL (required on first login)")
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Upload token")
	loginCmd.Flags().BoolVar(&loginNoAuth, "no-token", false, "Store the connection without an upload token")
}

func runLogin(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize connection store: %w", err)
	}

	serverURLStr := loginServer
	if serverURLStr == "" {
		ctx, err := store.GetCurrentContext()
		if err != nil || ctx == nil || ctx.ServerURL == "" {
			return fmt.Errorf("no server URL specified and no saved connection found\n\n" +
				"Specify the server URL:\n" +
				"  stickerctl login --server http://localhost:8080")
		}
		serverURLStr = ctx.ServerURL
	}

	parsedURL, err := url.Parse(serverURLStr)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if parsedURL.Scheme == "" {
		parsedURL.Scheme = "http"
		serverURLStr = parsedURL.String()
	}

	token := loginToken
	if token == "" && !loginNoAuth {
		token, err = prompt.Input("Upload token (leave empty for read-only access)", "")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	// Verify the server answers before saving anything.
	client := apiclient.New(serverURLStr)
	fmt.Printf("Connecting to %s...\n", serverURLStr)
	health, err := client.Health()
	if err != nil {
		return fmt.Errorf("server check failed: %w", err)
	}

	contextName := store.GetCurrentContextName()
	if contextName == "" {
		contextName = credentials.GenerateContextName(serverURLStr)
	}

	ctx := &credentials.Context{
		ServerURL: serverURLStr,
		Token:     token,
	}
	if err := store.SetContext(contextName, ctx); err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}
	if err := store.UseContext(contextName); err != nil {
		return fmt.Errorf("failed to set current context: %w", err)
	}

	fmt.Printf("Connected: server is %s with %d images\n", health.Status, health.Images)
	fmt.Printf("Context: %s\n", contextName)
	fmt.Printf("Connection saved to: %s\n", store.ConfigPath())

	return nil
}
