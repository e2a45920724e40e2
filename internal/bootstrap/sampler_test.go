package bootstrap

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovingBlockBootstrap_Shape(t *testing.T) {
	series := []float64{0.01, -0.02, 0.03, 0.01, -0.01, 0.02, 0.00, 0.01}

	samples, err := NewSampler(42).MovingBlockBootstrap(series, Options{
		NBootstrap: 5,
		SampleSize: 4,
		BlockSize:  2,
	})
	require.NoError(t, err)

	require.Len(t, samples, 5)
	for _, row := range samples {
		assert.Len(t, row, 4)
	}
}

func TestMovingBlockBootstrap_Deterministic(t *testing.T) {
	series := []float64{0.01, -0.02, 0.03, 0.01, -0.01, 0.02, 0.00, 0.01}
	opts := Options{NBootstrap: 5, SampleSize: 4, BlockSize: 2}

	first, err := NewSampler(42).MovingBlockBootstrap(series, opts)
	require.NoError(t, err)
	second, err := NewSampler(42).MovingBlockBootstrap(series, opts)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("same seed produced different samples (-first +second):\n%s", diff)
	}
}

func TestMovingBlockBootstrap_SeedOverride(t *testing.T) {
	series := []float64{0.01, -0.02, 0.03, 0.01, -0.01, 0.02, 0.00, 0.01}
	opts := Options{NBootstrap: 3, SampleSize: 6, BlockSize: 3, Seed: 99}

	// Differently seeded samplers must still agree when the call carries
	// its own seed.
	first, err := NewSampler(1).MovingBlockBootstrap(series, opts)
	require.NoError(t, err)
	second, err := NewSampler(2).MovingBlockBootstrap(series, opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// Every block-aligned pair in a generated row must occur as a contiguous
// pair somewhere in the source series.
func TestMovingBlockBootstrap_BlockProvenance(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	pairs := make(map[[2]float64]bool)
	for i := 0; i+1 < len(series); i++ {
		pairs[[2]float64{series[i], series[i+1]}] = true
	}

	samples, err := NewSampler(7).MovingBlockBootstrap(series, Options{
		NBootstrap: 20,
		SampleSize: 6,
		BlockSize:  2,
	})
	require.NoError(t, err)

	for _, row := range samples {
		for j := 0; j+1 < len(row); j += 2 {
			assert.True(t, pairs[[2]float64{row[j], row[j+1]}],
				"pair (%v, %v) does not exist in the source series", row[j], row[j+1])
		}
	}
}

func TestMovingBlockBootstrap_InsufficientData(t *testing.T) {
	_, err := NewSampler(1).MovingBlockBootstrap([]float64{0.01, 0.02}, Options{
		NBootstrap: 2,
		SampleSize: 4,
		BlockSize:  5,
	})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestMovingBlockBootstrap_InvalidOptions(t *testing.T) {
	series := []float64{0.01, -0.02, 0.03, 0.01, -0.01}
	sampler := NewSampler(1)

	_, err := sampler.MovingBlockBootstrap(series, Options{NBootstrap: 0, SampleSize: 4, BlockSize: 2})
	assert.Error(t, err)

	_, err = sampler.MovingBlockBootstrap(series, Options{NBootstrap: 4, SampleSize: 0, BlockSize: 2})
	assert.Error(t, err)
}

func TestMovingBlockBootstrap_DropsNonFinite(t *testing.T) {
	series := []float64{0.01, math.NaN(), -0.02, math.Inf(1), 0.03, 0.01, math.Inf(-1), -0.01, 0.02}
	valid := map[float64]bool{0.01: true, -0.02: true, 0.03: true, -0.01: true, 0.02: true}

	samples, err := NewSampler(3).MovingBlockBootstrap(series, Options{
		NBootstrap: 10,
		SampleSize: 8,
		BlockSize:  2,
	})
	require.NoError(t, err)

	for _, row := range samples {
		for _, v := range row {
			assert.True(t, valid[v], "sampled value %v is not from the cleaned series", v)
		}
	}
}

func TestMovingBlockBootstrap_DefaultBlockSize(t *testing.T) {
	series := make([]float64, 6)
	// Series shorter than DefaultBlockSize after cleaning must fail when no
	// block size is given and selection is disabled.
	_, err := NewSampler(1).MovingBlockBootstrap(series[:4], Options{NBootstrap: 2, SampleSize: 4})
	assert.ErrorIs(t, err, ErrInsufficientData)

	samples, err := NewSampler(1).MovingBlockBootstrap(series, Options{NBootstrap: 2, SampleSize: 4})
	require.NoError(t, err)
	assert.Len(t, samples, 2)
}
