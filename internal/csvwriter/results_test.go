package csvwriter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/mbb-portfolio-engine/internal/engine"
	"github.com/your-org/mbb-portfolio-engine/internal/report"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return records
}

func testRun() *engine.RunResult {
	return &engine.RunResult{
		RunID:     "test-run",
		StartedAt: time.Now(),
		Duration:  time.Second,
		Assets: []engine.AssetSimulation{
			{Symbol: "AAPL", S0: 100, ArrivalValues: []float64{101, 99, 103}},
			{Symbol: "MSFT", S0: 200, ArrivalValues: []float64{202, 198, 206}},
		},
		Best: engine.PortfolioResult{
			Symbols: []string{"AAPL", "MSFT"},
			Weights: []float64{0.5, 0.5},
			Sharpe:  1.25,
		},
		All: []engine.PortfolioResult{
			{Symbols: []string{"AAPL", "MSFT"}, Weights: []float64{0.5, 0.5}, Sharpe: 1.25, Mean: 151.5, Std: 2.1, Iterations: 12, Converged: true},
		},
	}
}

func testAllocation() []report.AllocationLine {
	return []report.AllocationLine{
		{
			Symbol:     "AAPL",
			Weight:     0.5,
			Price:      decimal.NewFromInt(100),
			Allocation: decimal.NewFromInt(5000),
			Shares:     decimal.NewFromInt(50),
		},
		{
			Symbol:     "MSFT",
			Weight:     0.5,
			Price:      decimal.NewFromInt(200),
			Allocation: decimal.NewFromInt(5000),
			Shares:     decimal.NewFromInt(25),
		},
	}
}

func TestExportRun(t *testing.T) {
	dir := t.TempDir()

	err := ExportRun(dir, testRun(), testAllocation(), zap.NewNop())
	require.NoError(t, err)

	best := readCSV(t, filepath.Join(dir, BestPortfolioFile))
	require.Len(t, best, 3)
	assert.Equal(t, []string{"asset", "weight", "current_price", "allocation", "shares"}, best[0])
	assert.Equal(t, []string{"AAPL", "0.5", "100", "5000", "50"}, best[1])
	assert.Equal(t, []string{"MSFT", "0.5", "200", "5000", "25"}, best[2])

	all := readCSV(t, filepath.Join(dir, AllResultsFile))
	require.Len(t, all, 2)
	assert.Equal(t, []string{"assets", "sharpe_ratio", "expected_value", "volatility", "iterations", "converged"}, all[0])
	assert.Equal(t, []string{"AAPL|MSFT", "1.25", "151.5", "2.1", "12", "true"}, all[1])

	arrival := readCSV(t, filepath.Join(dir, ArrivalValuesFile))
	require.Len(t, arrival, 4)
	assert.Equal(t, []string{"simulation", "AAPL", "MSFT"}, arrival[0])
	assert.Equal(t, []string{"0", "101", "202"}, arrival[1])
	assert.Equal(t, []string{"2", "103", "206"}, arrival[3])
}

func TestExportRun_MismatchedArrivalLengths(t *testing.T) {
	run := testRun()
	run.Assets[1].ArrivalValues = []float64{202}

	err := ExportRun(t.TempDir(), run, testAllocation(), zap.NewNop())
	assert.Error(t, err)
}

func TestWriter_WriteAndFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	w, err := NewWriter(path, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, w.Write([]string{"a", "b"}))
	require.NoError(t, w.Write([]string{"1", "2"}))
	require.NoError(t, w.Close())

	records := readCSV(t, path)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, records)
}
