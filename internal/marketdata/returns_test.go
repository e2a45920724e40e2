package marketdata

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturns_Log(t *testing.T) {
	prices := []float64{100, 110, 121}

	returns, err := Returns(prices, LogReturns)
	require.NoError(t, err)

	require.Len(t, returns, 2)
	assert.InDelta(t, math.Log(1.1), returns[0], 1e-12)
	assert.InDelta(t, math.Log(1.1), returns[1], 1e-12)
}

func TestReturns_Simple(t *testing.T) {
	prices := []float64{100, 110, 99}

	returns, err := Returns(prices, SimpleReturns)
	require.NoError(t, err)

	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-12)
	assert.InDelta(t, -0.10, returns[1], 1e-12)
}

func TestReturns_SkipsZeroPrevious(t *testing.T) {
	prices := []float64{100, 0, 50, 55}

	returns, err := Returns(prices, SimpleReturns)
	require.NoError(t, err)

	// 0 -> 50 has no defined return; 100 -> 0 gives -1 and stays.
	require.Len(t, returns, 2)
	assert.InDelta(t, -1.0, returns[0], 1e-12)
	assert.InDelta(t, 0.10, returns[1], 1e-12)
}

func TestReturns_DropsNonFinite(t *testing.T) {
	// Transitions through the negative price have no defined log return.
	prices := []float64{100, -50, 100, 110}

	returns, err := Returns(prices, LogReturns)
	require.NoError(t, err)

	require.Len(t, returns, 1)
	assert.InDelta(t, math.Log(1.1), returns[0], 1e-12)
	for _, r := range returns {
		assert.False(t, math.IsNaN(r) || math.IsInf(r, 0))
	}
}

func TestReturns_TooFewPrices(t *testing.T) {
	_, err := Returns([]float64{100}, LogReturns)
	assert.ErrorIs(t, err, ErrTooFewPrices)

	_, err = Returns(nil, LogReturns)
	assert.ErrorIs(t, err, ErrTooFewPrices)
}
