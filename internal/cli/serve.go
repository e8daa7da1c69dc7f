package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/raysh454/a11ylens/internal/app"
	"github.com/raysh454/a11ylens/internal/logging"
	"github.com/raysh454/a11ylens/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		addr string
		url  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and WebSocket API",
		Long:  "Start a browser and expose scan, highlight, environment and history endpoints over HTTP, with scan state streamed on /ws/state and API docs under /swagger/.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.ListenAddr = addr
			}

			a := app.NewApplication(cfg, logger)
			defer a.Shutdown(context.Background())

			ctx := cmd.Context()
			lens, err := a.Lens(ctx)
			if err != nil {
				return err
			}
			if url != "" {
				if err := lens.Navigate(ctx, url); err != nil {
					return err
				}
			}

			srvCfg := cfg.Server
			srvCfg.Logger = logger.With(logging.Field{Key: "component", Value: "server"})
			httpSrv := server.NewServer(srvCfg, lens).HTTPServer()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", logging.Field{Key: "addr", Value: httpSrv.Addr})
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serving: %w", err)
				}
				return nil
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return httpSrv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.listen_addr)")
	cmd.Flags().StringVar(&url, "url", "", "Page to load on startup")
	return cmd
}
