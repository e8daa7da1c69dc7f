package cli

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/raysh454/a11ylens/internal/app"
	mcpadapter "github.com/raysh454/a11ylens/internal/mcp"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server (stdio)",
		Long:  "Start the a11ylens MCP server on stdio so coding assistants can scan pages, highlight elements and read history. Logs go to stderr.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			// stdout carries the protocol.
			if cfg.Log.Output == "stdout" {
				cfg.Log.Output = "stderr"
				if logger, err = app.NewLogger(cfg.Log, "a11ylens"); err != nil {
					return err
				}
			}

			a := app.NewApplication(cfg, logger)
			defer a.Shutdown(context.Background())

			lens, err := a.Lens(cmd.Context())
			if err != nil {
				return err
			}
			if url != "" {
				if err := lens.Navigate(cmd.Context(), url); err != nil {
					return err
				}
			}
			return server.ServeStdio(mcpadapter.NewServer(lens, version))
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Page to load on startup")
	return cmd
}
