package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

)

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var (
		limit   int
		runID   string
		byModel bool
		since   string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past annotation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.DBPath == "" {
				return errors.New("run history is disabled: set db_path in the config or pass --db")
			}

			tr, err := openTracker(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			// Per-model detail for one run
			if runID != "" {
				ms, err := tr.RunModels(ctx, runID)
				if err != nil {
					return err
				}
				if len(ms) == 0 {
					fmt.Fprintln(out, "No models found for run.")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "MODEL\tROWS\tCOST")
				for _, m := range ms {
					fmt.Fprintf(w, "%s\t%d\t$%.2f\n", m.Model, m.Rows, m.Cost)
				}
				return w.Flush()
			}

			// Totals per model across runs
			if byModel {
				sinceTime := time.Time{}
				if since != "" {
					t, err := time.Parse("2006-01-02", since)
					if err != nil {
						return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
					}
					sinceTime = t
				}
				totals, err := tr.TotalsByModel(ctx, sinceTime)
				if err != nil {
					return err
				}
				if len(totals) == 0 {
					fmt.Fprintln(out, "No cost data found.")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "MODEL\tROWS\tCOST")
				for _, m := range totals {
					fmt.Fprintf(w, "%s\t%d\t$%.2f\n", m.Model, m.Rows, m.Cost)
				}
				return w.Flush()
			}

			// Default: recent runs
			runs, err := tr.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tTIME\tFILE\tROWS\tTOTAL")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t$%.2f\n",
					r.ID, r.CreatedAt.Format("2006-01-02T15:04:05"), r.File, r.Rows, r.Total)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "show the per-model breakdown of one run")
	cmd.Flags().BoolVar(&byModel, "by-model", false, "total cost per model across runs")
	cmd.Flags().StringVar(&since, "since", "", "with --by-model, only runs on or after this date (YYYY-MM-DD)")
	return cmd
}
