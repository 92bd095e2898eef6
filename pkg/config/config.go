package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pario-ai/apicost/pkg/models"
)

// EnvPrefix is prepended to every environment variable apicost reads.
const EnvPrefix = "APICOST_"

// Config holds all apicost settings.
type Config struct {
	// PricingPath overrides the model_pricing.json next to the executable.
	PricingPath string `yaml:"pricing_path"`
	// DBPath enables run history when set.
	DBPath string `yaml:"db_path"`
	// MetricsFile enables a Prometheus textfile export when set.
	MetricsFile string       `yaml:"metrics_file"`
	LogLevel    string       `yaml:"log_level"`
	Budget      BudgetConfig `yaml:"budget"`
}

// BudgetConfig controls per-run cost ceilings.
type BudgetConfig struct {
	Strict   bool                  `yaml:"strict"`
	Policies []models.BudgetPolicy `yaml:"policies"`
}

// envOverrides are the settings that APICOST_* variables may replace.
type envOverrides struct {
	PricingPath  string `env:"PRICING_PATH"`
	DBPath       string `env:"DB_PATH"`
	MetricsFile  string `env:"METRICS_FILE"`
	LogLevel     string `env:"LOG_LEVEL"`
	BudgetStrict bool   `env:"BUDGET_STRICT"`
}

func (o envOverrides) apply(cfg *Config) {
	if o.PricingPath != "" {
		cfg.PricingPath = o.PricingPath
	}
	if o.DBPath != "" {
		cfg.DBPath = o.DBPath
	}
	if o.MetricsFile != "" {
		cfg.MetricsFile = o.MetricsFile
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.BudgetStrict {
		cfg.Budget.Strict = true
	}
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		LogLevel: "warn",
	}
}

// Load reads a YAML config file, expanding environment variables, and then
// applies APICOST_* overrides. An empty path skips the file. A .env file in
// the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	o.apply(cfg)

	return cfg, nil
}
