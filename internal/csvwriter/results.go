package csvwriter

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/mbb-portfolio-engine/internal/engine"
	"github.com/your-org/mbb-portfolio-engine/internal/report"
)

// File names produced by ExportRun.
const (
	BestPortfolioFile = "best_portfolio.csv"
	AllResultsFile    = "all_portfolio_results.csv"
	ArrivalValuesFile = "arrival_values.csv"
)

// ExportRun writes the three result files of a pipeline run into dir:
// the best portfolio's allocation table, the ranked combination sweep, and
// the full arrival-value matrix.
func ExportRun(dir string, run *engine.RunResult, allocation []report.AllocationLine, logger *zap.Logger) error {
	if err := writeBestPortfolio(filepath.Join(dir, BestPortfolioFile), allocation, logger); err != nil {
		return err
	}
	if err := writeAllResults(filepath.Join(dir, AllResultsFile), run.All, logger); err != nil {
		return err
	}
	if err := writeArrivalValues(filepath.Join(dir, ArrivalValuesFile), run.Assets, logger); err != nil {
		return err
	}
	logger.Info("exported run results", zap.String("run_id", run.RunID), zap.String("dir", dir))
	return nil
}

func writeBestPortfolio(path string, allocation []report.AllocationLine, logger *zap.Logger) error {
	w, err := NewWriter(path, logger)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Write([]string{"asset", "weight", "current_price", "allocation", "shares"}); err != nil {
		return err
	}
	for _, line := range allocation {
		record := []string{
			line.Symbol,
			formatFloat(line.Weight),
			line.Price.String(),
			line.Allocation.String(),
			line.Shares.String(),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeAllResults(path string, results []engine.PortfolioResult, logger *zap.Logger) error {
	w, err := NewWriter(path, logger)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Write([]string{"assets", "sharpe_ratio", "expected_value", "volatility", "iterations", "converged"}); err != nil {
		return err
	}
	for _, r := range results {
		record := []string{
			strings.Join(r.Symbols, "|"),
			formatFloat(r.Sharpe),
			formatFloat(r.Mean),
			formatFloat(r.Std),
			strconv.Itoa(r.Iterations),
			strconv.FormatBool(r.Converged),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeArrivalValues(path string, assets []engine.AssetSimulation, logger *zap.Logger) error {
	w, err := NewWriter(path, logger)
	if err != nil {
		return err
	}
	defer w.Close()

	header := make([]string, len(assets)+1)
	header[0] = "simulation"
	for j, a := range assets {
		header[j+1] = a.Symbol
	}
	if err := w.Write(header); err != nil {
		return err
	}

	if len(assets) == 0 {
		return nil
	}
	nSims := len(assets[0].ArrivalValues)
	for i := 0; i < nSims; i++ {
		record := make([]string, len(assets)+1)
		record[0] = strconv.Itoa(i)
		for j, a := range assets {
			if len(a.ArrivalValues) != nSims {
				return fmt.Errorf("asset %s has %d arrival values, expected %d", a.Symbol, len(a.ArrivalValues), nSims)
			}
			record[j+1] = formatFloat(a.ArrivalValues[i])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
