// Package bootstrap implements the moving block bootstrap for financial
// return series. Blocks of contiguous observations are resampled so that the
// synthetic series preserve the local autocorrelation structure of the
// original data.
package bootstrap

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrInsufficientData is returned when the cleaned return series is shorter
// than the requested block size.
var ErrInsufficientData = errors.New("bootstrap: insufficient data")

// DefaultBlockSize is used when no block size is given and selection is disabled.
const DefaultBlockSize = 5

// Options controls a single bootstrap run.
type Options struct {
	// NBootstrap is the number of synthetic series to generate.
	NBootstrap int
	// SampleSize is the length of each synthetic series.
	SampleSize int
	// BlockSize bounds the contiguous run copied per placement. Zero means
	// unset: the size is then selected automatically (OptimizeBlockSize) or
	// falls back to DefaultBlockSize.
	BlockSize int
	// OptimizeBlockSize enables automatic block-size selection when
	// BlockSize is unset.
	OptimizeBlockSize bool
	// Seed, when non-zero, drives this call with a fresh generator instead
	// of the sampler's own stream. Identical seeds and inputs reproduce
	// identical output when BlockSize is explicit; automatic block-size
	// selection still draws its trial bootstraps from the sampler's own
	// stream, so selection may differ across calls on one instance.
	Seed int64
}

// Sampler generates moving block bootstrap samples. Each Sampler owns its own
// random stream; concurrent pipelines should use separate instances.
type Sampler struct {
	seed int64
	rng  *rand.Rand
}

// NewSampler creates a Sampler with an explicitly seeded generator.
func NewSampler(seed int64) *Sampler {
	return &Sampler{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

// Seed returns the seed the sampler was constructed with.
func (s *Sampler) Seed() int64 { return s.seed }

// MovingBlockBootstrap draws opts.NBootstrap synthetic return series of
// length opts.SampleSize from series. Each row is filled by repeatedly
// copying a randomly placed contiguous block of the source; the final block
// of a row may be truncated to fit. Non-finite entries are stripped from the
// input before sampling.
func (s *Sampler) MovingBlockBootstrap(series []float64, opts Options) ([][]float64, error) {
	if opts.NBootstrap < 1 || opts.SampleSize < 1 {
		return nil, fmt.Errorf("bootstrap: n_bootstrap and sample_size must be >= 1, got %d and %d",
			opts.NBootstrap, opts.SampleSize)
	}

	rng := s.rng
	if opts.Seed != 0 {
		rng = rand.New(rand.NewSource(opts.Seed))
	}

	blockSize := opts.BlockSize
	if blockSize == 0 {
		if opts.OptimizeBlockSize {
			blockSize = s.chooseOptimalBlockSize(series, MethodAuto, StatisticMean)
		} else {
			blockSize = DefaultBlockSize
		}
	}

	cleaned := dropNonFinite(series)
	if len(cleaned) < blockSize {
		return nil, fmt.Errorf("%w: series length (%d) must be >= block size (%d)",
			ErrInsufficientData, len(cleaned), blockSize)
	}

	// Count of valid (overlapping) block start offsets.
	nBlocks := len(cleaned) - blockSize + 1

	samples := make([][]float64, opts.NBootstrap)
	for i := range samples {
		row := make([]float64, opts.SampleSize)
		filled := 0
		for filled < opts.SampleSize {
			start := rng.Intn(nBlocks)
			copyLen := blockSize
			if remaining := opts.SampleSize - filled; copyLen > remaining {
				copyLen = remaining
			}
			copy(row[filled:filled+copyLen], cleaned[start:start+copyLen])
			filled += copyLen
		}
		samples[i] = row
	}

	return samples, nil
}

// dropNonFinite returns series with NaN and Inf entries removed.
func dropNonFinite(series []float64) []float64 {
	cleaned := make([]float64, 0, len(series))
	for _, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		cleaned = append(cleaned, v)
	}
	return cleaned
}
