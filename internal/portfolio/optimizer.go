// Package portfolio finds simplex-constrained portfolio weights maximizing
// the simulated Sharpe ratio of an arrival-value matrix.
package portfolio

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrEmptyMatrix is returned when the arrival-value matrix has no rows or
// no columns.
var ErrEmptyMatrix = errors.New("portfolio: arrival-value matrix must have at least one simulation and one asset")

// Numerical constants of the Newton-Raphson scheme. Changing them changes
// convergence behavior.
const (
	diffStep         = 1e-6  // central finite-difference step
	hessianReg       = 1e-6  // regularization added to every Hessian diagonal entry
	hessianFloor     = 1e-10 // below this the Newton step for the entry is zeroed
	lineSearchTries  = 10
	lineSearchShrink = 0.5
)

// Config holds the optimizer parameters.
type Config struct {
	RiskFreeRate  float64
	MaxIterations int
	Tolerance     float64
}

// DefaultConfig returns the standard optimizer parameters.
func DefaultConfig() Config {
	return Config{RiskFreeRate: 0, MaxIterations: 100, Tolerance: 1e-6}
}

// Result is the outcome of one optimization run.
type Result struct {
	// Weights is on the probability simplex: entries >= 0, summing to 1.
	Weights []float64
	// Sharpe is the objective value at Weights.
	Sharpe float64
	// Iterations is the number of Newton-Raphson iterations performed.
	Iterations int
	// Converged reports whether the gradient norm fell below the tolerance
	// before MaxIterations was exhausted. Non-convergence is not a failure;
	// the best-found weights are still returned.
	Converged bool
}

// ArrivalMatrix wraps a dense (nSimulations x nAssets) table of simulated
// terminal values, one column per asset, rows aligned by simulation index.
type ArrivalMatrix struct {
	data  *mat.Dense
	nSims int
	nCols int
}

// NewArrivalMatrix builds an ArrivalMatrix from per-simulation rows. All
// rows must have the same number of assets.
func NewArrivalMatrix(rows [][]float64) (*ArrivalMatrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyMatrix
	}
	nCols := len(rows[0])
	flat := make([]float64, 0, len(rows)*nCols)
	for i, row := range rows {
		if len(row) != nCols {
			return nil, fmt.Errorf("portfolio: row %d has %d assets, expected %d", i, len(row), nCols)
		}
		flat = append(flat, row...)
	}
	return &ArrivalMatrix{
		data:  mat.NewDense(len(rows), nCols, flat),
		nSims: len(rows),
		nCols: nCols,
	}, nil
}

// FromColumns builds an ArrivalMatrix from per-asset columns. All columns
// must have the same number of simulations.
func FromColumns(columns [][]float64) (*ArrivalMatrix, error) {
	if len(columns) == 0 || len(columns[0]) == 0 {
		return nil, ErrEmptyMatrix
	}
	nSims := len(columns[0])
	m := mat.NewDense(nSims, len(columns), nil)
	for j, col := range columns {
		if len(col) != nSims {
			return nil, fmt.Errorf("portfolio: column %d has %d simulations, expected %d", j, len(col), nSims)
		}
		m.SetCol(j, col)
	}
	return &ArrivalMatrix{data: m, nSims: nSims, nCols: len(columns)}, nil
}

// Simulations returns the number of rows.
func (a *ArrivalMatrix) Simulations() int { return a.nSims }

// Assets returns the number of columns.
func (a *ArrivalMatrix) Assets() int { return a.nCols }

// PortfolioReturns computes the matrix-vector product of the arrival values
// and weights: one weighted portfolio value per simulation.
func (a *ArrivalMatrix) PortfolioReturns(weights []float64) []float64 {
	out := mat.NewVecDense(a.nSims, nil)
	out.MulVec(a.data, mat.NewVecDense(len(weights), weights))
	return out.RawVector().Data
}

// SharpeRatio is the mean excess value over the risk-free rate divided by
// the population standard deviation. Zero dispersion yields exactly 0,
// never a division error.
func SharpeRatio(portfolioReturns []float64, riskFreeRate float64) float64 {
	mean := stat.Mean(portfolioReturns, nil)
	std := stat.PopStdDev(portfolioReturns, nil)
	if std == 0 {
		return 0
	}
	return (mean - riskFreeRate) / std
}

// Optimize maximizes the Sharpe ratio of the weighted portfolio over the
// probability simplex using a diagonal-Hessian Newton-Raphson iteration with
// projected backtracking line search. The Hessian's off-diagonal terms are
// deliberately ignored; cross-asset second-order effects are out of scope.
func Optimize(arrival *ArrivalMatrix, cfg Config) (Result, error) {
	if arrival == nil || arrival.nSims == 0 || arrival.nCols == 0 {
		return Result{}, ErrEmptyMatrix
	}
	if cfg.MaxIterations < 1 {
		return Result{}, fmt.Errorf("portfolio: max iterations must be >= 1, got %d", cfg.MaxIterations)
	}

	nAssets := arrival.nCols

	// Equal initial allocation.
	weights := make([]float64, nAssets)
	for i := range weights {
		weights[i] = 1.0 / float64(nAssets)
	}

	objective := func(w []float64) float64 {
		return -SharpeRatio(arrival.PortfolioReturns(w), cfg.RiskFreeRate)
	}

	gradient := make([]float64, nAssets)
	hessDiag := make([]float64, nAssets)
	delta := make([]float64, nAssets)

	res := Result{Weights: weights}
	for iter := 0; iter < cfg.MaxIterations; iter++ {
		res.Iterations = iter + 1
		fCurrent := objective(weights)

		// Central finite differences on the raw (unprojected) weights.
		for i := 0; i < nAssets; i++ {
			orig := weights[i]
			weights[i] = orig + diffStep
			fForward := objective(weights)
			weights[i] = orig - diffStep
			fBackward := objective(weights)
			weights[i] = orig

			gradient[i] = (fForward - fBackward) / (2 * diffStep)
			hessDiag[i] = (fForward+fBackward-2*fCurrent)/(diffStep*diffStep) + hessianReg
		}

		// Newton step with the diagonal system H * delta = -gradient.
		for i := 0; i < nAssets; i++ {
			if math.Abs(hessDiag[i]) > hessianFloor {
				delta[i] = -gradient[i] / hessDiag[i]
			} else {
				delta[i] = 0
			}
		}

		// Backtracking line search: accept the first improving candidate,
		// halving the step multiplier up to lineSearchTries times.
		alpha := 1.0
		bestWeights := weights
		bestF := fCurrent
		for try := 0; try < lineSearchTries; try++ {
			candidate := make([]float64, nAssets)
			for i := range candidate {
				candidate[i] = weights[i] + alpha*delta[i]
			}
			projectSimplex(candidate)

			if f := objective(candidate); f < bestF {
				bestWeights = candidate
				bestF = f
				break
			}
			alpha *= lineSearchShrink
		}
		weights = bestWeights

		if floats.Norm(gradient, 2) < cfg.Tolerance {
			res.Converged = true
			break
		}
	}

	res.Weights = weights
	res.Sharpe = SharpeRatio(arrival.PortfolioReturns(weights), cfg.RiskFreeRate)
	return res, nil
}

// projectSimplex clips negative entries to zero and renormalizes to unit
// sum. A clipped sum of zero leaves the vector as-is.
func projectSimplex(w []float64) {
	sum := 0.0
	for i, v := range w {
		if v < 0 {
			w[i] = 0
		}
		sum += w[i]
	}
	if sum > 0 {
		for i := range w {
			w[i] /= sum
		}
	}
}
