package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raysh454/a11ylens/internal/env"
	"github.com/raysh454/a11ylens/internal/render"
)

type envReport struct {
	env.Decision
	Enabled    bool `json:"enabled"`
	ShouldShow bool `json:"should_show"`
}

func newEnvCmd(opts *rootOptions) *cobra.Command {
	var (
		override   string
		force      bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Show the resolved environment and whether the overlay would show",
		Long:  "Resolve the environment from build-time variables, the process environment and config vars, without starting a browser.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			resolver := env.NewResolver(cfg.Env, logger, env.BuildVars(), env.ProcessEnv(), env.Vars(cfg.Env.Vars))
			d := resolver.Resolve(override)
			report := envReport{Decision: d, Enabled: cfg.Enabled, ShouldShow: env.ShouldShow(cfg.Enabled, d.Name, force)}

			out := cmd.OutOrStdout()
			if jsonOutput {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling JSON: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintf(out, "environment: %s\n", d.Name)
			fmt.Fprintf(out, "source:      %s\n", d.Source)
			if d.Key != "" {
				fmt.Fprintf(out, "key:         %s\n", d.Key)
			}
			fmt.Fprintf(out, "dev-like:    %t\n", d.IsDevelopmentLike)
			if report.ShouldShow {
				fmt.Fprintln(out, "overlay:     shown")
			} else {
				fmt.Fprintln(out, render.Disabled(d))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&override, "env", "", "Explicit environment name, overriding detection")
	cmd.Flags().BoolVar(&force, "force", false, "Show the overlay regardless of environment")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
