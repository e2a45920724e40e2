// Package report summarizes simulation outcomes: terminal-price
// distributions per asset and the capital allocation implied by an
// optimized weight vector.
package report

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// PercentileLevels are the quantiles reported for terminal distributions.
var PercentileLevels = []float64{0.05, 0.25, 0.50, 0.75, 0.95}

// varConfidence is the confidence level for VaR/CVaR.
const varConfidence = 0.95

// AssetSummary describes one asset's simulated terminal distribution.
type AssetSummary struct {
	Symbol      string              `json:"symbol"`
	S0          float64             `json:"s0"`
	Mean        float64             `json:"mean"`
	Std         float64             `json:"std"`
	Min         float64             `json:"min"`
	Max         float64             `json:"max"`
	Percentiles map[float64]float64 `json:"percentiles"`
	VaR         float64             `json:"var"`  // Loss at the confidence level, on terminal returns
	CVaR        float64             `json:"cvar"` // Mean loss beyond VaR
}

// AllocationLine is one row of the capital allocation table.
type AllocationLine struct {
	Symbol     string          `json:"symbol"`
	Weight     float64         `json:"weight"`
	Price      decimal.Decimal `json:"price"`
	Allocation decimal.Decimal `json:"allocation"`
	Shares     decimal.Decimal `json:"shares"`
}

// SummarizeAsset computes distribution statistics for one asset's terminal
// prices.
func SummarizeAsset(symbol string, s0 float64, terminalPrices []float64) (AssetSummary, error) {
	if len(terminalPrices) == 0 {
		return AssetSummary{}, fmt.Errorf("report: no terminal prices for %s", symbol)
	}

	sorted := append([]float64(nil), terminalPrices...)
	sort.Float64s(sorted)

	percentiles := make(map[float64]float64, len(PercentileLevels))
	for _, p := range PercentileLevels {
		percentiles[p] = stat.Quantile(p, stat.Empirical, sorted, nil)
	}

	returns := make([]float64, len(sorted))
	for i, price := range sorted {
		returns[i] = price/s0 - 1
	}
	valueAtRisk, conditional := varCVaR(returns)

	return AssetSummary{
		Symbol:      symbol,
		S0:          s0,
		Mean:        stat.Mean(sorted, nil),
		Std:         stat.PopStdDev(sorted, nil),
		Min:         sorted[0],
		Max:         sorted[len(sorted)-1],
		Percentiles: percentiles,
		VaR:         valueAtRisk,
		CVaR:        conditional,
	}, nil
}

// varCVaR computes value-at-risk and conditional value-at-risk at the
// configured confidence level. Input returns must be sorted ascending.
func varCVaR(sortedReturns []float64) (float64, float64) {
	cutoff := stat.Quantile(1-varConfidence, stat.Empirical, sortedReturns, nil)
	valueAtRisk := -cutoff

	sum := 0.0
	count := 0
	for _, r := range sortedReturns {
		if r > cutoff {
			break
		}
		sum += r
		count++
	}
	if count == 0 {
		return valueAtRisk, valueAtRisk
	}
	return valueAtRisk, -(sum / float64(count))
}

// AllocationTable converts a weight vector into currency allocations and
// share counts for the given capital. Weights and symbols must be aligned.
func AllocationTable(symbols []string, weights []float64, prices []float64, capital float64) ([]AllocationLine, error) {
	if len(symbols) != len(weights) || len(symbols) != len(prices) {
		return nil, fmt.Errorf("report: mismatched lengths: %d symbols, %d weights, %d prices",
			len(symbols), len(weights), len(prices))
	}

	total := decimal.NewFromFloat(capital)
	lines := make([]AllocationLine, len(symbols))
	for i, symbol := range symbols {
		weight := decimal.NewFromFloat(weights[i])
		price := decimal.NewFromFloat(prices[i])
		allocation := total.Mul(weight)

		shares := decimal.Zero
		if price.IsPositive() {
			shares = allocation.DivRound(price, 4)
		}

		lines[i] = AllocationLine{
			Symbol:     symbol,
			Weight:     weights[i],
			Price:      price,
			Allocation: allocation.Round(2),
			Shares:     shares,
		}
	}
	return lines, nil
}
