package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/raysh454/a11ylens/internal/app"
	"github.com/raysh454/a11ylens/internal/history"
	"github.com/raysh454/a11ylens/internal/render"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		url        string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored scans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.List(cmd.Context(), url, limit)
			if err != nil {
				return fmt.Errorf("listing history: %w", err)
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), recs)
			}
			fmt.Fprint(cmd.OutOrStdout(), render.History(recs))
			return nil
		},
	}
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&url, "url", "", "Only scans of this page")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum records")

	cmd.AddCommand(&cobra.Command{
		Use:   "compare <url>",
		Short: "Compare the two newest scans of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			c, err := store.CompareLatest(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("comparing %s: %w", args[0], err)
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), c)
			}
			fmt.Fprint(cmd.OutOrStdout(), render.Comparison(*c))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print one stored scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("getting %s: %w", args[0], err)
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	})
	return cmd
}

func openStore(opts *rootOptions) (*history.Store, error) {
	cfg, logger, err := opts.load()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, app.ErrHistoryDisabled
	}
	path, err := app.ExpandPath(cfg.History.Path)
	if err != nil {
		return nil, err
	}
	return history.Open(path, logger)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
