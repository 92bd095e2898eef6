package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pario-ai/apicost/pkg/config"
	"github.com/pario-ai/apicost/pkg/pricing"
	"github.com/pario-ai/apicost/pkg/tracker"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalOptions are flags shared by every command. Non-empty flags override
// the config file and environment.
type globalOptions struct {
	configPath  string
	pricingPath string
	dbPath      string
	logLevel    string
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.pricingPath != "" {
		cfg.PricingPath = o.pricingPath
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := newAnnotateCmd(opts)
	root.Version = version
	root.SilenceErrors = true

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to apicost config file")
	root.PersistentFlags().StringVarP(&opts.pricingPath, "pricing", "p", "", "path to pricing file (default: "+pricing.FileName+" next to the executable)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "path to run history database")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newPricingCmd(opts),
		newHistoryCmd(opts),
	)
	return root
}

// openTracker opens the run history database at path.
func openTracker(path string) (tracker.Tracker, error) {
	tr, err := tracker.New(path)
	if err != nil {
		return nil, fmt.Errorf("init tracker: %w", err)
	}
	return tr, nil
}

func loadPricing(cfg *config.Config) (*pricing.Table, string, error) {
	path := cfg.PricingPath
	if path == "" {
		var err error
		path, err = pricing.DefaultPath()
		if err != nil {
			return nil, "", fmt.Errorf("load pricing: %w", err)
		}
	}
	tbl, err := pricing.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("load pricing: %w", err)
	}
	return tbl, path, nil
}
