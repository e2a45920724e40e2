package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/your-org/mbb-portfolio-engine/pkg/logger"
)

// LoadClosingPricesFromCSV reads a price-history CSV and returns the closing
// prices in file order. The file is expected to have a header and at least
// two columns: date, close. Rows with unparsable or non-finite prices are
// skipped with a warning rather than aborting the load.
func LoadClosingPricesFromCSV(filePath string) ([]float64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Header row.
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("csv file %s is empty", filePath)
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	var prices []float64
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}
		line++

		if len(record) < 2 {
			logger.Warnf("skipping line %d: expected at least 2 columns, got %d", line, len(record))
			continue
		}

		price, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			logger.Warnf("skipping line %d: close price parse error: %v", line, err)
			continue
		}
		if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			logger.Warnf("skipping line %d: non-positive or non-finite close price %v", line, price)
			continue
		}

		prices = append(prices, price)
	}

	if len(prices) == 0 {
		return nil, fmt.Errorf("no usable prices in %s", filePath)
	}

	logger.Debugf("loaded %d closing prices from %s", len(prices), filePath)
	return prices, nil
}
