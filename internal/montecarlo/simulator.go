// Package montecarlo converts bootstrap sample sets into terminal asset
// price distributions by compounding resampled return paths onto an initial
// price.
package montecarlo

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/your-org/mbb-portfolio-engine/pkg/logger"
)

// ErrNotRectangular is returned when the bootstrap sample set is empty or
// its rows have differing lengths.
var ErrNotRectangular = errors.New("montecarlo: bootstrap samples must be a non-empty rectangular table")

// Compounding selects how a return is applied to the running price.
type Compounding string

const (
	// CompoundingLog applies price * exp(r), exact for log returns.
	CompoundingLog Compounding = "log"
	// CompoundingSimple applies price * (1 + r), exact for simple returns.
	CompoundingSimple Compounding = "simple"
)

// Simulator draws rows from a bootstrap sample set and compounds them into
// terminal prices. Each Simulator owns its own random stream.
type Simulator struct {
	seed        int64
	rng         *rand.Rand
	compounding Compounding
}

// NewSimulator creates a Simulator with an explicitly seeded generator.
func NewSimulator(seed int64, compounding Compounding) *Simulator {
	if compounding == "" {
		compounding = CompoundingLog
	}
	return &Simulator{
		seed:        seed,
		rng:         rand.New(rand.NewSource(seed)),
		compounding: compounding,
	}
}

// Simulate produces iterations terminal prices starting from s0. Each
// iteration picks one bootstrap row uniformly at random (with replacement)
// and applies its returns sequentially. When iterations exceeds the number
// of rows, rows are necessarily reused; that is logged, not an error.
// A non-zero seed drives this call with a fresh generator.
func (s *Simulator) Simulate(s0 float64, samples [][]float64, iterations int, seed int64) ([]float64, error) {
	if err := validateRectangular(samples); err != nil {
		return nil, err
	}
	if iterations < 1 {
		return nil, fmt.Errorf("montecarlo: iterations must be >= 1, got %d", iterations)
	}

	rng := s.rng
	if seed != 0 {
		rng = rand.New(rand.NewSource(seed))
	}

	nRows := len(samples)
	if iterations > nRows {
		logger.Warnf("more iterations (%d) than bootstrap samples (%d); some samples will be reused",
			iterations, nRows)
	}

	terminal := make([]float64, iterations)
	for i := range terminal {
		row := samples[rng.Intn(nRows)]
		price := s0
		for _, r := range row {
			if s.compounding == CompoundingSimple {
				price *= 1 + r
			} else {
				price *= math.Exp(r)
			}
		}
		terminal[i] = price
	}

	return terminal, nil
}

func validateRectangular(samples [][]float64) error {
	if len(samples) == 0 {
		return ErrNotRectangular
	}
	width := len(samples[0])
	if width == 0 {
		return ErrNotRectangular
	}
	for i, row := range samples {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has length %d, expected %d", ErrNotRectangular, i, len(row), width)
		}
	}
	return nil
}
