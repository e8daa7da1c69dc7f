// Package cli implements the a11ylens command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/raysh454/a11ylens/internal/app"
	"github.com/raysh454/a11ylens/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
}

// load reads the effective config and builds the logger it selects.
func (o *rootOptions) load() (*app.Config, logging.Logger, error) {
	cfg, err := app.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := app.NewLogger(cfg.Log, "a11ylens")
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "a11ylens",
		Short:         "Accessibility overlay for pages under development",
		Long:          "a11ylens drives a browser page, runs axe-core against it, and reports violations only in development-like environments.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newScanCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newEnvCmd(opts))
	cmd.AddCommand(newMCPCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}
