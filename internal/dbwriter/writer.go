// Package dbwriter persists simulation results to Postgres/TimescaleDB.
// Persistence is optional: the engine never depends on it, and a nil pool
// produces a writer that silently drops everything.
package dbwriter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/your-org/mbb-portfolio-engine/internal/config"
)

// SimulationRun is the per-run header row.
type SimulationRun struct {
	RunID      string        `db:"run_id"`
	StartedAt  time.Time     `db:"started_at"`
	Duration   time.Duration `db:"duration_ms"`
	BestAssets []string      `db:"best_assets"`
	BestSharpe float64       `db:"best_sharpe"`
}

// PortfolioWeight is one optimized weight of a run's best portfolio.
type PortfolioWeight struct {
	RunID  string  `db:"run_id"`
	Symbol string  `db:"symbol"`
	Weight float64 `db:"weight"`
}

// AssetSummary is one asset's terminal distribution statistics for a run.
type AssetSummary struct {
	RunID  string  `db:"run_id"`
	Symbol string  `db:"symbol"`
	S0     float64 `db:"s0"`
	Mean   float64 `db:"mean"`
	Std    float64 `db:"std"`
	VaR    float64 `db:"var_95"`
	CVaR   float64 `db:"cvar_95"`
}

// Pool is an interface that abstracts the pgxpool.Pool for testability.
type Pool interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Close()
}

// Writer buffers result rows and flushes them in batches, either when a
// buffer reaches the configured batch size or on the flush ticker.
type Writer struct {
	pool          Pool
	logger        *zap.Logger
	config        config.DBWriterConf
	weightBuffer  []PortfolioWeight
	summaryBuffer []AssetSummary
	bufferMutex   sync.Mutex
	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
}

// NewWriter creates a Writer. A nil pool yields a dummy writer that drops
// all rows; this keeps call sites free of persistence conditionals.
func NewWriter(pool Pool, writerConfig config.DBWriterConf, logger *zap.Logger) *Writer {
	if pool == nil {
		logger.Info("no database pool configured, creating dummy result writer")
		return &Writer{logger: logger, shutdownChan: make(chan struct{})}
	}

	if writerConfig.WriteIntervalSeconds <= 0 {
		writerConfig.WriteIntervalSeconds = 1
		logger.Warn("write_interval_seconds is zero or negative, defaulting to 1s")
	}
	if writerConfig.BatchSize <= 0 {
		writerConfig.BatchSize = 100
		logger.Warn("batch_size is zero or negative, defaulting to 100")
	}

	w := &Writer{
		pool:          pool,
		logger:        logger,
		config:        writerConfig,
		weightBuffer:  make([]PortfolioWeight, 0, writerConfig.BatchSize),
		summaryBuffer: make([]AssetSummary, 0, writerConfig.BatchSize),
		flushTicker:   time.NewTicker(time.Duration(writerConfig.WriteIntervalSeconds) * time.Second),
		shutdownChan:  make(chan struct{}),
	}
	go w.run()
	logger.Info("started batched result writer",
		zap.Int("batch_size", writerConfig.BatchSize),
		zap.Int("write_interval_seconds", writerConfig.WriteIntervalSeconds))
	return w
}

// Close flushes remaining buffers and closes the pool.
func (w *Writer) Close() {
	if w.pool == nil {
		return
	}
	close(w.shutdownChan)
	w.flushTicker.Stop()
	w.flushBuffers()
	w.pool.Close()
	w.logger.Info("result writer closed")
}

func (w *Writer) run() {
	for {
		select {
		case <-w.flushTicker.C:
			w.flushBuffers()
		case <-w.shutdownChan:
			return
		}
	}
}

// SaveRun inserts the per-run header row immediately.
func (w *Writer) SaveRun(ctx context.Context, run SimulationRun) error {
	if w.pool == nil {
		return nil
	}

	const query = `INSERT INTO simulation_runs (run_id, started_at, duration_ms, best_assets, best_sharpe)
	               VALUES ($1, $2, $3, $4, $5)`
	_, err := w.pool.Exec(ctx, query,
		run.RunID, run.StartedAt, run.Duration.Milliseconds(),
		strings.Join(run.BestAssets, "|"), run.BestSharpe,
	)
	if err != nil {
		w.logger.Error("failed to insert simulation run", zap.Error(err), zap.String("run_id", run.RunID))
		return fmt.Errorf("failed to insert simulation run: %w", err)
	}
	return nil
}

// SaveWeight buffers one portfolio weight row.
func (w *Writer) SaveWeight(weight PortfolioWeight) {
	if w.pool == nil {
		return
	}

	w.bufferMutex.Lock()
	w.weightBuffer = append(w.weightBuffer, weight)
	shouldFlush := len(w.weightBuffer) >= w.config.BatchSize
	w.bufferMutex.Unlock()

	if shouldFlush {
		w.flushBuffers()
	}
}

// SaveAssetSummary buffers one asset summary row.
func (w *Writer) SaveAssetSummary(summary AssetSummary) {
	if w.pool == nil {
		return
	}

	w.bufferMutex.Lock()
	w.summaryBuffer = append(w.summaryBuffer, summary)
	shouldFlush := len(w.summaryBuffer) >= w.config.BatchSize
	w.bufferMutex.Unlock()

	if shouldFlush {
		w.flushBuffers()
	}
}

func (w *Writer) flushBuffers() {
	if w.pool == nil {
		return
	}
	w.bufferMutex.Lock()
	defer w.bufferMutex.Unlock()

	if len(w.weightBuffer) > 0 {
		w.batchInsertWeights(context.Background(), w.weightBuffer)
		w.weightBuffer = w.weightBuffer[:0]
	}
	if len(w.summaryBuffer) > 0 {
		w.batchInsertSummaries(context.Background(), w.summaryBuffer)
		w.summaryBuffer = w.summaryBuffer[:0]
	}
}

func (w *Writer) batchInsertWeights(ctx context.Context, weights []PortfolioWeight) {
	w.logger.Debug("flushing portfolio weights", zap.Int("count", len(weights)))

	rows := make([][]interface{}, len(weights))
	for i, pw := range weights {
		rows[i] = []interface{}{pw.RunID, pw.Symbol, pw.Weight}
	}
	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"portfolio_weights"},
		[]string{"run_id", "symbol", "weight"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		w.logger.Error("failed to batch insert portfolio weights", zap.Error(err))
	}
}

func (w *Writer) batchInsertSummaries(ctx context.Context, summaries []AssetSummary) {
	w.logger.Debug("flushing asset summaries", zap.Int("count", len(summaries)))

	rows := make([][]interface{}, len(summaries))
	for i, s := range summaries {
		rows[i] = []interface{}{s.RunID, s.Symbol, s.S0, s.Mean, s.Std, s.VaR, s.CVaR}
	}
	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"asset_summaries"},
		[]string{"run_id", "symbol", "s0", "mean", "std", "var_95", "cvar_95"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		w.logger.Error("failed to batch insert asset summaries", zap.Error(err))
	}
}
