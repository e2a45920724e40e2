package dbwriter

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/mbb-portfolio-engine/internal/config"
)

func TestWriter_SaveWeight(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	writerConfig := config.DBWriterConf{
		BatchSize:            1, // Set batch size to 1 to trigger flush immediately
		WriteIntervalSeconds: 1,
	}

	writer := NewWriter(mock, writerConfig, zap.NewNop())

	mock.ExpectCopyFrom(
		pgx.Identifier{"portfolio_weights"},
		[]string{"run_id", "symbol", "weight"},
	)

	writer.SaveWeight(PortfolioWeight{
		RunID:  "4a1f0c8e-0000-0000-0000-000000000000",
		Symbol: "AAPL",
		Weight: 0.25,
	})

	// Close triggers a final flush; the background goroutine's ticker is
	// too slow to rely on here.
	writer.Close()

	require.NoError(t, mock.ExpectationsWereMet(), "there were unfulfilled expectations")
}

func TestWriter_SaveAssetSummary(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	writerConfig := config.DBWriterConf{
		BatchSize:            10,
		WriteIntervalSeconds: 1,
	}

	writer := NewWriter(mock, writerConfig, zap.NewNop())

	mock.ExpectCopyFrom(
		pgx.Identifier{"asset_summaries"},
		[]string{"run_id", "symbol", "s0", "mean", "std", "var_95", "cvar_95"},
	)

	writer.SaveAssetSummary(AssetSummary{
		RunID:  "4a1f0c8e-0000-0000-0000-000000000000",
		Symbol: "MSFT",
		S0:     310.5,
		Mean:   318.2,
		Std:    24.1,
		VaR:    0.11,
		CVaR:   0.16,
	})

	writer.Close()

	require.NoError(t, mock.ExpectationsWereMet(), "there were unfulfilled expectations")
}

func TestWriter_SaveRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	writerConfig := config.DBWriterConf{
		BatchSize:            10,
		WriteIntervalSeconds: 1,
	}

	writer := NewWriter(mock, writerConfig, zap.NewNop())

	run := SimulationRun{
		RunID:      "4a1f0c8e-0000-0000-0000-000000000000",
		StartedAt:  time.Now(),
		Duration:   1500 * time.Millisecond,
		BestAssets: []string{"AAPL", "MSFT"},
		BestSharpe: 0.42,
	}

	mock.ExpectExec("INSERT INTO simulation_runs").
		WithArgs(run.RunID, run.StartedAt, int64(1500), "AAPL|MSFT", run.BestSharpe).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, writer.SaveRun(context.Background(), run))

	writer.Close()

	require.NoError(t, mock.ExpectationsWereMet(), "there were unfulfilled expectations")
}

func TestWriter_NilPoolIsInert(t *testing.T) {
	writer := NewWriter(nil, config.DBWriterConf{}, zap.NewNop())

	assert.NoError(t, writer.SaveRun(context.Background(), SimulationRun{RunID: "x"}))
	writer.SaveWeight(PortfolioWeight{Symbol: "AAPL"})
	writer.SaveAssetSummary(AssetSummary{Symbol: "AAPL"})
	writer.Close()
}
