// Package engine orchestrates the full simulation pipeline: per-asset
// moving block bootstrap, Monte Carlo terminal-price simulation, arrival
// matrix assembly and the combination sweep of the weight optimizer.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/your-org/mbb-portfolio-engine/internal/bootstrap"
	"github.com/your-org/mbb-portfolio-engine/internal/config"
	"github.com/your-org/mbb-portfolio-engine/internal/montecarlo"
	"github.com/your-org/mbb-portfolio-engine/internal/portfolio"
	"github.com/your-org/mbb-portfolio-engine/pkg/logger"
)

// AssetInput is one asset's cleaned return series plus its current price.
type AssetInput struct {
	Symbol  string
	Returns []float64
	S0      float64
}

// AssetSimulation holds one asset's simulated terminal distribution.
type AssetSimulation struct {
	Symbol         string
	S0             float64
	ArrivalValues  []float64 // Terminal prices, or terminal returns in "returns" mode
	TerminalPrices []float64
}

// PortfolioResult is the optimization outcome for one asset combination.
type PortfolioResult struct {
	Symbols    []string
	Weights    []float64
	Sharpe     float64
	Mean       float64
	Std        float64
	Iterations int
	Converged  bool
}

// RunResult is the full outcome of one pipeline run.
type RunResult struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Assets    []AssetSimulation
	Best      PortfolioResult
	All       []PortfolioResult
}

// Engine wires the sampler, simulator and optimizer according to config.
type Engine struct {
	cfg *config.Config
}

// New creates an Engine.
func New(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg}
}

// Run executes the pipeline over the given assets. Assets are simulated
// concurrently; each gets its own sampler and simulator seeded from the
// configured base seed, so runs are reproducible and no random stream is
// shared between goroutines.
func (e *Engine) Run(ctx context.Context, inputs []AssetInput) (*RunResult, error) {
	if len(inputs) < e.cfg.Portfolio.Size {
		return nil, fmt.Errorf("engine: %d assets available, portfolio size is %d",
			len(inputs), e.cfg.Portfolio.Size)
	}

	started := time.Now()
	result := &RunResult{
		RunID:     uuid.New().String(),
		StartedAt: started,
		Assets:    make([]AssetSimulation, len(inputs)),
	}

	logger.Infof("run %s: simulating %d assets (bootstrap=%d, sample=%d, iterations=%d)",
		result.RunID, len(inputs), e.cfg.Bootstrap.NBootstrap,
		e.cfg.Bootstrap.SampleSize, e.cfg.MonteCarlo.Iterations)

	// The group context is canceled once Wait returns, so the sweep below
	// keeps using the caller's context.
	g, gctx := errgroup.WithContext(ctx)
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sim, err := e.simulateAsset(i, input)
			if err != nil {
				return fmt.Errorf("asset %s: %w", input.Symbol, err)
			}
			result.Assets[i] = sim
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all, err := e.sweepCombinations(ctx, result.Assets)
	if err != nil {
		return nil, err
	}
	result.All = all
	result.Best = all[0]
	result.Duration = time.Since(started)

	logger.Infof("run %s: best portfolio %v (sharpe=%.6f) in %s",
		result.RunID, result.Best.Symbols, result.Best.Sharpe, result.Duration)
	return result, nil
}

// simulateAsset runs bootstrap plus Monte Carlo for a single asset. The
// per-asset seed is derived from the base seed by index, so each pipeline
// owns a private random stream.
func (e *Engine) simulateAsset(index int, input AssetInput) (AssetSimulation, error) {
	seed := e.cfg.Bootstrap.Seed + int64(index)
	sampler := bootstrap.NewSampler(seed)

	blockSize := e.cfg.Bootstrap.BlockSize
	if blockSize == 0 && e.cfg.Bootstrap.OptimizeBlockSize {
		blockSize = sampler.ChooseBlockSize(input.Returns,
			bootstrap.SelectionMethod(e.cfg.Bootstrap.SelectionMethod),
			bootstrap.Statistic(e.cfg.Bootstrap.Statistic))
		logger.Debugf("asset %s: selected block size %d", input.Symbol, blockSize)
	}

	samples, err := sampler.MovingBlockBootstrap(input.Returns, bootstrap.Options{
		NBootstrap:        e.cfg.Bootstrap.NBootstrap,
		SampleSize:        e.cfg.Bootstrap.SampleSize,
		BlockSize:         blockSize,
		OptimizeBlockSize: e.cfg.Bootstrap.OptimizeBlockSize,
	})
	if err != nil {
		return AssetSimulation{}, err
	}

	simulator := montecarlo.NewSimulator(seed, montecarlo.Compounding(e.cfg.MonteCarlo.Compounding))
	terminal, err := simulator.Simulate(input.S0, samples, e.cfg.MonteCarlo.Iterations, 0)
	if err != nil {
		return AssetSimulation{}, err
	}

	arrival := terminal
	if e.cfg.MonteCarlo.Arrival == "returns" {
		arrival = make([]float64, len(terminal))
		for i, p := range terminal {
			arrival[i] = p/input.S0 - 1
		}
	}

	return AssetSimulation{
		Symbol:         input.Symbol,
		S0:             input.S0,
		ArrivalValues:  arrival,
		TerminalPrices: terminal,
	}, nil
}

// sweepCombinations optimizes every portfolio-sized asset combination and
// returns the results sorted by Sharpe ratio, best first.
func (e *Engine) sweepCombinations(ctx context.Context, assets []AssetSimulation) ([]PortfolioResult, error) {
	combos := combinations(len(assets), e.cfg.Portfolio.Size)
	logger.Infof("optimizing %d combinations of %d assets", len(combos), e.cfg.Portfolio.Size)

	optCfg := portfolio.Config{
		RiskFreeRate:  e.cfg.Portfolio.RiskFreeRate,
		MaxIterations: e.cfg.Portfolio.MaxIterations,
		Tolerance:     e.cfg.Portfolio.Tolerance,
	}

	results := make([]PortfolioResult, 0, len(combos))
	for _, combo := range combos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		columns := make([][]float64, len(combo))
		symbols := make([]string, len(combo))
		for j, idx := range combo {
			columns[j] = assets[idx].ArrivalValues
			symbols[j] = assets[idx].Symbol
		}

		arrival, err := portfolio.FromColumns(columns)
		if err != nil {
			return nil, fmt.Errorf("combination %v: %w", symbols, err)
		}
		opt, err := portfolio.Optimize(arrival, optCfg)
		if err != nil {
			return nil, fmt.Errorf("combination %v: %w", symbols, err)
		}

		values := arrival.PortfolioReturns(opt.Weights)
		results = append(results, PortfolioResult{
			Symbols:    symbols,
			Weights:    opt.Weights,
			Sharpe:     opt.Sharpe,
			Mean:       stat.Mean(values, nil),
			Std:        stat.PopStdDev(values, nil),
			Iterations: opt.Iterations,
			Converged:  opt.Converged,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Sharpe > results[j].Sharpe
	})
	return results, nil
}
