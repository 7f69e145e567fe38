package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/varoOP/stashplex/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the metadata provider HTTP server",
	Long: `Serve starts the agent and listens for Plex metadata requests:
1. Matches filenames against the Stash catalog
2. Shapes scene metadata into the Plex agent schema
3. Proxies screenshots, performer images and group covers
4. Renders 2:3 letterboxed posters when poster_mode is enabled
5. Optionally uploads posters directly to the Plex Media Server`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return application.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
