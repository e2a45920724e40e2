package marketdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClosingPricesFromCSV(t *testing.T) {
	prices, err := LoadClosingPricesFromCSV(filepath.Join("testdata", "prices.csv"))
	require.NoError(t, err)

	// Unparsable, non-positive and short rows are skipped, not fatal.
	assert.Equal(t, []float64{100.0, 101.5, 99.25, 102.75, 103.0}, prices)
}

func TestLoadClosingPricesFromCSV_MissingFile(t *testing.T) {
	_, err := LoadClosingPricesFromCSV(filepath.Join("testdata", "does-not-exist.csv"))
	assert.Error(t, err)
}

func TestLoadClosingPricesFromCSV_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := LoadClosingPricesFromCSV(path)
	assert.Error(t, err)
}

func TestLoadClosingPricesFromCSV_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "header.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,close\n"), 0o644))

	_, err := LoadClosingPricesFromCSV(path)
	assert.Error(t, err)
}
