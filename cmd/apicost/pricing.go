package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pario-ai/apicost/pkg/pricing"
)

func newPricingCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pricing",
		Short: "Inspect the model pricing table",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show loaded per-model rates (USD per 1M tokens)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			table, path, err := loadPricing(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pricing from %s\n\n", path)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tINPUT\tCACHE WRITE\tCACHE READ\tOUTPUT")
			for _, p := range table.Entries() {
				fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\t%.4f\n",
					p.Model, p.Input, p.CacheWrite, p.CacheRead, p.Output)
			}
			return w.Flush()
		},
	}

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the pricing file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := pricing.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return err
		},
	}

	cmd.AddCommand(listCmd, schemaCmd)
	return cmd
}
