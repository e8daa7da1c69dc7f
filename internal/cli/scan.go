package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raysh454/a11ylens/internal/app"
	"github.com/raysh454/a11ylens/internal/model"
	"github.com/raysh454/a11ylens/internal/render"
	"github.com/raysh454/a11ylens/internal/scan"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	var (
		override   string
		force      bool
		jsonOutput bool
		timeout    time.Duration
		failOn     string
	)

	cmd := &cobra.Command{
		Use:   "scan <url>",
		Short: "Scan a page for accessibility violations",
		Long:  "Load url in a browser, run axe-core against it and print the violations. Nothing runs outside development-like environments unless --force is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var threshold model.Impact
			if failOn != "" {
				if threshold = model.ParseImpact(failOn); threshold == model.ImpactUnknown {
					return fmt.Errorf("--fail-on must be one of minor, moderate, serious, critical")
				}
			}

			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			a := app.NewApplication(cfg, logger)
			defer a.Shutdown(context.Background())

			lens, err := a.Lens(cmd.Context())
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			lens.SetOverride(override)

			states, unsubscribe := lens.Subscribe(16)
			defer unsubscribe()
			run := lens.State().Run

			if err := lens.Navigate(ctx, args[0]); err != nil {
				return err
			}
			d, show := lens.Visible(force)
			if !show {
				fmt.Fprintln(cmd.OutOrStdout(), render.Disabled(d))
				return nil
			}
			// Navigate may already have auto-started the scan.
			if lens.State().Run == run {
				lens.Start()
			}

			st, err := scan.Await(ctx, states, run)
			if err != nil {
				return fmt.Errorf("scan did not finish: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				data, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling JSON: %w", err)
				}
				fmt.Fprintln(out, string(data))
			} else {
				fmt.Fprint(out, render.State(st, d))
			}

			if st.Status == scan.StatusFailed {
				return fmt.Errorf("scan failed: %s", st.Err.Message)
			}
			if threshold != "" {
				if n := countAtLeast(st.Result, threshold); n > 0 {
					return fmt.Errorf("%d violations at or above %s", n, threshold)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&override, "env", "", "Explicit environment name, overriding detection")
	cmd.Flags().BoolVar(&force, "force", false, "Scan regardless of environment")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the scan state as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Give up after this long")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Exit non-zero when a violation has at least this impact")
	return cmd
}

// countAtLeast counts violations whose impact is at least as severe as min.
func countAtLeast(res *model.ScanResult, min model.Impact) int {
	if res == nil {
		return 0
	}
	n := 0
	for _, v := range res.Violations {
		if v.Impact.Priority() <= min.Priority() {
			n++
		}
	}
	return n
}
