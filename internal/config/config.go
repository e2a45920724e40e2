// Package config handles application configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config defines the structure for all application configuration.
type Config struct {
	Assets     []AssetConf    `yaml:"assets"`
	Returns    string         `yaml:"returns"` // "log" or "simple"
	Bootstrap  BootstrapConf  `yaml:"bootstrap"`
	MonteCarlo MonteCarloConf `yaml:"montecarlo"`
	Portfolio  PortfolioConf  `yaml:"portfolio"`
	Report     ReportConf     `yaml:"report"`
	Output     OutputConf     `yaml:"output"`
	DBWriter   DBWriterConf   `yaml:"dbwriter"`

	LogLevel   string `yaml:"-"` // Loaded from env or defaults
	DBHost     string `yaml:"-"`
	DBPort     string `yaml:"-"`
	DBUser     string `yaml:"-"`
	DBPassword string `yaml:"-"`
	DBName     string `yaml:"-"`
}

// AssetConf identifies one asset and its price history source.
type AssetConf struct {
	Symbol    string  `yaml:"symbol"`
	PricesCSV string  `yaml:"prices_csv"`
	S0        float64 `yaml:"s0"` // Zero means: use the last observed price
}

// BootstrapConf holds the moving block bootstrap parameters.
type BootstrapConf struct {
	NBootstrap        int    `yaml:"n_bootstrap"`
	SampleSize        int    `yaml:"sample_size"`
	BlockSize         int    `yaml:"block_size"` // Zero means automatic selection
	OptimizeBlockSize bool   `yaml:"optimize_block_size"`
	SelectionMethod   string `yaml:"selection_method"` // "auto", "theoretical", "empirical"
	Statistic         string `yaml:"statistic"`        // "mean", "variance", "sharpe"
	Seed              int64  `yaml:"seed"`
}

// MonteCarloConf holds the path simulation parameters.
type MonteCarloConf struct {
	Iterations  int    `yaml:"iterations"`
	Compounding string `yaml:"compounding"` // "log" or "simple"
	Arrival     string `yaml:"arrival"`     // "prices" or "returns"
}

// PortfolioConf holds the weight optimization parameters.
type PortfolioConf struct {
	Size          int     `yaml:"size"`
	RiskFreeRate  float64 `yaml:"risk_free_rate"`
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
}

// ReportConf holds reporting parameters.
type ReportConf struct {
	Capital float64 `yaml:"capital"` // Notional capital for the allocation table
}

// OutputConf holds CSV output locations.
type OutputConf struct {
	Dir string `yaml:"dir"`
}

// DBWriterConf configures the optional database writer. A BatchSize of zero
// disables persistence entirely.
type DBWriterConf struct {
	BatchSize            int `yaml:"batch_size"`
	WriteIntervalSeconds int `yaml:"write_interval_seconds"`
}

// LoadConfig loads configuration from the specified YAML file path and
// environment variables, applying defaults and validating the result.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		// Default values
		Returns:  "log",
		LogLevel: "info",
		Bootstrap: BootstrapConf{
			NBootstrap:        1000,
			SampleSize:        63,
			OptimizeBlockSize: true,
			SelectionMethod:   "auto",
			Statistic:         "mean",
			Seed:              1987,
		},
		MonteCarlo: MonteCarloConf{
			Iterations:  5000,
			Compounding: "log",
			Arrival:     "prices",
		},
		Portfolio: PortfolioConf{
			Size:          4,
			MaxIterations: 100,
			Tolerance:     1e-6,
		},
		Report: ReportConf{Capital: 10000},
		Output: OutputConf{Dir: "results"},
	}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, err
	}

	// Load sensitive data and overrides from environment variables
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		cfg.DBHost = dbHost
	}
	if dbPort := os.Getenv("DB_PORT"); dbPort != "" {
		cfg.DBPort = dbPort
	}
	if dbUser := os.Getenv("DB_USER"); dbUser != "" {
		cfg.DBUser = dbUser
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		cfg.DBPassword = dbPassword
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		cfg.DBName = dbName
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if len(c.Assets) == 0 {
		return fmt.Errorf("config: at least one asset is required")
	}
	for i, a := range c.Assets {
		if a.Symbol == "" {
			return fmt.Errorf("config: asset %d has no symbol", i)
		}
		if a.PricesCSV == "" {
			return fmt.Errorf("config: asset %q has no prices_csv", a.Symbol)
		}
	}
	if c.Returns != "log" && c.Returns != "simple" {
		return fmt.Errorf("config: returns must be \"log\" or \"simple\", got %q", c.Returns)
	}
	if c.Bootstrap.NBootstrap < 1 {
		return fmt.Errorf("config: bootstrap.n_bootstrap must be >= 1")
	}
	if c.Bootstrap.SampleSize < 1 {
		return fmt.Errorf("config: bootstrap.sample_size must be >= 1")
	}
	if c.MonteCarlo.Iterations < 1 {
		return fmt.Errorf("config: montecarlo.iterations must be >= 1")
	}
	if c.MonteCarlo.Compounding != "log" && c.MonteCarlo.Compounding != "simple" {
		return fmt.Errorf("config: montecarlo.compounding must be \"log\" or \"simple\", got %q", c.MonteCarlo.Compounding)
	}
	if c.MonteCarlo.Arrival != "prices" && c.MonteCarlo.Arrival != "returns" {
		return fmt.Errorf("config: montecarlo.arrival must be \"prices\" or \"returns\", got %q", c.MonteCarlo.Arrival)
	}
	if c.Portfolio.Size < 1 {
		return fmt.Errorf("config: portfolio.size must be >= 1")
	}
	if c.Portfolio.Size > len(c.Assets) {
		return fmt.Errorf("config: portfolio.size (%d) exceeds number of assets (%d)",
			c.Portfolio.Size, len(c.Assets))
	}
	if c.Portfolio.MaxIterations < 1 {
		return fmt.Errorf("config: portfolio.max_iterations must be >= 1")
	}
	return nil
}

// DatabaseURL assembles a Postgres connection string from the environment
// overrides. Empty when no host is configured.
func (c *Config) DatabaseURL() string {
	if c.DBHost == "" {
		return ""
	}
	port := c.DBPort
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.DBUser, c.DBPassword, c.DBHost, port, c.DBName)
}
