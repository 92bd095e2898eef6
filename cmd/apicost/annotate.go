package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pario-ai/apicost/pkg/annotate"
	"github.com/pario-ai/apicost/pkg/budget"
	"github.com/pario-ai/apicost/pkg/config"
	"github.com/pario-ai/apicost/pkg/logging"
	"github.com/pario-ai/apicost/pkg/metrics"
	"github.com/pario-ai/apicost/pkg/models"
)

func newAnnotateCmd(opts *globalOptions) *cobra.Command {
	var (
		metricsFile  string
		strictBudget bool
	)

	cmd := &cobra.Command{
		Use:   "apicost <csv_file>",
		Short: "Add an API_COST column to a usage export and print cost totals",
		Long: `apicost reads a usage export CSV, computes the API cost of every row from
per-model token pricing, writes the cost into an API_COST column (rewriting
the file in place) and prints the total and per-model breakdown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if metricsFile != "" {
				cfg.MetricsFile = metricsFile
			}
			if strictBudget {
				cfg.Budget.Strict = true
			}

			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			table, pricingPath, err := loadPricing(cfg)
			if err != nil {
				return err
			}
			logger.Debug("loaded pricing", zap.String("path", pricingPath), zap.Int("models", table.Len()))

			summary, err := annotate.New(table, logger).Run(args[0])
			if err != nil {
				return err
			}

			if err := annotate.FormatSummary(cmd.OutOrStdout(), summary); err != nil {
				return err
			}

			return afterRun(cmd.Context(), cfg, logger, summary)
		},
	}

	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
	cmd.Flags().BoolVar(&strictBudget, "strict-budget", false, "exit non-zero when a budget policy is exceeded")
	return cmd
}

// afterRun records history, exports metrics and checks budgets once the
// file has been rewritten.
func afterRun(ctx context.Context, cfg *config.Config, logger *zap.Logger, summary models.RunSummary) error {
	now := time.Now().UTC()

	if cfg.DBPath != "" {
		tr, err := openTracker(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = tr.Close() }()

		id, err := tr.Record(ctx, models.RunRecord{
			File:      summary.File,
			Rows:      summary.Rows,
			Total:     summary.Total,
			Models:    summary.Models,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		logger.Info("recorded run", zap.String("run_id", id), zap.String("db", cfg.DBPath))
	}

	if cfg.MetricsFile != "" {
		m := metrics.NewCostMetrics()
		m.Observe(summary, now)
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}

	enforcer := budget.New(cfg.Budget.Policies)
	for _, s := range enforcer.Status(summary) {
		if s.Exceeded {
			logger.Warn("budget exceeded",
				zap.String("model", s.Policy.Model),
				zap.Float64("max_cost", s.Policy.MaxCost),
				zap.Float64("spent", s.Spent),
			)
		}
	}
	if cfg.Budget.Strict {
		return enforcer.Check(summary)
	}
	return nil
}
