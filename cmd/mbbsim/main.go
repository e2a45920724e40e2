// Package main is the entry point of the portfolio simulation pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/your-org/mbb-portfolio-engine/internal/config"
	"github.com/your-org/mbb-portfolio-engine/internal/csvwriter"
	"github.com/your-org/mbb-portfolio-engine/internal/dbwriter"
	"github.com/your-org/mbb-portfolio-engine/internal/engine"
	"github.com/your-org/mbb-portfolio-engine/internal/marketdata"
	"github.com/your-org/mbb-portfolio-engine/internal/report"
	"github.com/your-org/mbb-portfolio-engine/pkg/logger"
)

func main() {
	// --- Configuration ---
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger.SetGlobalLogLevel(cfg.LogLevel)
	logger.Info("Portfolio simulation pipeline starting...")
	logger.Infof("Loaded configuration from: %s", *configPath)
	logger.Infof("Assets: %d, portfolio size: %d", len(cfg.Assets), cfg.Portfolio.Size)

	// --- Result Writer (Optional) ---
	var dbWriter *dbwriter.Writer
	if cfg.DBWriter.BatchSize > 0 { // Use BatchSize > 0 as a proxy for being enabled
		var zapLogger *zap.Logger
		var zapErr error
		if cfg.LogLevel == "debug" {
			zapLogger, zapErr = zap.NewDevelopment()
		} else {
			zapLogger, zapErr = zap.NewProduction()
		}
		if zapErr != nil {
			logger.Fatalf("Failed to initialize Zap logger for DBWriter: %v", zapErr)
		}
		defer func() {
			if err := zapLogger.Sync(); err != nil {
				// The logger is being synced, so print to stderr instead.
				fmt.Fprintf(os.Stderr, "Failed to sync zap logger: %v\n", err)
			}
		}()

		var pool dbwriter.Pool
		if url := cfg.DatabaseURL(); url != "" {
			pgPool, poolErr := pgxpool.New(ctx, url)
			if poolErr != nil {
				logger.Fatalf("Failed to connect to database: %v", poolErr)
			}
			pool = pgPool
		}
		dbWriter = dbwriter.NewWriter(pool, cfg.DBWriter, zapLogger)
		defer dbWriter.Close()
	}

	// --- Market Data ---
	inputs, err := loadAssets(cfg)
	if err != nil {
		logger.Fatalf("Failed to load asset data: %v", err)
	}

	// --- Pipeline ---
	run, err := engine.New(cfg).Run(ctx, inputs)
	if err != nil {
		logger.Fatalf("Pipeline failed: %v", err)
	}

	// --- Reporting ---
	if err := exportResults(cfg, run, dbWriter); err != nil {
		logger.Fatalf("Failed to export results: %v", err)
	}

	printSummary(cfg, run)
}

// loadAssets reads each asset's price history, converts it to returns and
// resolves the starting price.
func loadAssets(cfg *config.Config) ([]engine.AssetInput, error) {
	kind := marketdata.LogReturns
	if cfg.Returns == "simple" {
		kind = marketdata.SimpleReturns
	}

	inputs := make([]engine.AssetInput, 0, len(cfg.Assets))
	for _, asset := range cfg.Assets {
		prices, err := marketdata.LoadClosingPricesFromCSV(asset.PricesCSV)
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", asset.Symbol, err)
		}
		returns, err := marketdata.Returns(prices, kind)
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", asset.Symbol, err)
		}

		s0 := asset.S0
		if s0 == 0 {
			s0 = prices[len(prices)-1]
		}
		logger.Debugf("asset %s: %d prices, %d returns, s0=%.4f",
			asset.Symbol, len(prices), len(returns), s0)

		inputs = append(inputs, engine.AssetInput{
			Symbol:  asset.Symbol,
			Returns: returns,
			S0:      s0,
		})
	}
	return inputs, nil
}

// exportResults writes the CSV files and, when persistence is enabled,
// saves the run to the database.
func exportResults(cfg *config.Config, run *engine.RunResult, dbWriter *dbwriter.Writer) error {
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	zapLogger := zap.NewNop()
	if cfg.LogLevel == "debug" {
		if dev, err := zap.NewDevelopment(); err == nil {
			zapLogger = dev
		}
	}

	prices := make([]float64, len(run.Best.Symbols))
	bySymbol := make(map[string]engine.AssetSimulation, len(run.Assets))
	for _, a := range run.Assets {
		bySymbol[a.Symbol] = a
	}
	for i, symbol := range run.Best.Symbols {
		prices[i] = bySymbol[symbol].S0
	}

	allocation, err := report.AllocationTable(run.Best.Symbols, run.Best.Weights, prices, cfg.Report.Capital)
	if err != nil {
		return err
	}

	if err := csvwriter.ExportRun(cfg.Output.Dir, run, allocation, zapLogger); err != nil {
		return err
	}

	if dbWriter == nil {
		return nil
	}
	if err := dbWriter.SaveRun(context.Background(), dbwriter.SimulationRun{
		RunID:      run.RunID,
		StartedAt:  run.StartedAt,
		Duration:   run.Duration,
		BestAssets: run.Best.Symbols,
		BestSharpe: run.Best.Sharpe,
	}); err != nil {
		return err
	}
	for i, symbol := range run.Best.Symbols {
		dbWriter.SaveWeight(dbwriter.PortfolioWeight{
			RunID:  run.RunID,
			Symbol: symbol,
			Weight: run.Best.Weights[i],
		})
	}
	for _, asset := range run.Assets {
		summary, err := report.SummarizeAsset(asset.Symbol, asset.S0, asset.TerminalPrices)
		if err != nil {
			return err
		}
		dbWriter.SaveAssetSummary(dbwriter.AssetSummary{
			RunID:  run.RunID,
			Symbol: summary.Symbol,
			S0:     summary.S0,
			Mean:   summary.Mean,
			Std:    summary.Std,
			VaR:    summary.VaR,
			CVaR:   summary.CVaR,
		})
	}
	return nil
}

// printSummary writes the human-readable run summary to stdout.
func printSummary(cfg *config.Config, run *engine.RunResult) {
	fmt.Printf("\nRun %s finished in %s\n", run.RunID, run.Duration)
	fmt.Printf("Evaluated %d portfolio combinations of %d assets\n\n", len(run.All), cfg.Portfolio.Size)

	best := run.Best
	fmt.Printf("Best portfolio (Sharpe %.6f, converged=%v after %d iterations):\n",
		best.Sharpe, best.Converged, best.Iterations)
	for i, symbol := range best.Symbols {
		fmt.Printf("  %-8s %6.2f%%\n", symbol, best.Weights[i]*100)
	}
	fmt.Printf("\nResults written to %s\n", cfg.Output.Dir)
}
