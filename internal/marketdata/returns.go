// Package marketdata handles price-history ingestion: reading closing
// prices from CSV files and converting them into cleaned return series at
// the system boundary, so the sampling core only ever sees validated,
// finite numeric sequences.
package marketdata

import (
	"errors"
	"fmt"
	"math"
)

// ErrTooFewPrices is returned when a price series is too short to produce
// at least one return.
var ErrTooFewPrices = errors.New("marketdata: need at least two prices to compute returns")

// ReturnKind selects the return convention computed from prices.
type ReturnKind string

const (
	// LogReturns computes ln(p_t / p_{t-1}).
	LogReturns ReturnKind = "log"
	// SimpleReturns computes p_t/p_{t-1} - 1.
	SimpleReturns ReturnKind = "simple"
)

// Returns converts a price series into a return series of the given kind.
// Non-finite results (from zero or negative prices under the log convention)
// are dropped, so the output is always finite.
func Returns(prices []float64, kind ReturnKind) ([]float64, error) {
	if len(prices) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPrices, len(prices))
	}

	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		if prev == 0 {
			continue
		}
		var r float64
		if kind == SimpleReturns {
			r = prices[i]/prev - 1
		} else {
			r = math.Log(prices[i] / prev)
		}
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no finite returns could be computed", ErrTooFewPrices)
	}
	return out, nil
}
