// Package main prints a distribution summary of a previously exported
// arrival-value matrix.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/your-org/mbb-portfolio-engine/internal/csvwriter"
	"github.com/your-org/mbb-portfolio-engine/internal/report"
)

func main() {
	dir := flag.String("dir", "results", "Directory containing exported run results")
	flag.Parse()

	path := filepath.Join(*dir, csvwriter.ArrivalValuesFile)
	symbols, columns, err := readArrivalValues(path)
	if err != nil {
		log.Fatalf("Failed to read arrival values: %v", err)
	}

	fmt.Printf("Arrival value distributions (%s, %d simulations)\n\n", path, len(columns[0]))
	for i, symbol := range symbols {
		printColumn(symbol, columns[i])
	}
}

// readArrivalValues parses the arrival matrix CSV back into per-asset
// columns. The first column is the simulation index and is skipped.
func readArrivalValues(path string) ([]string, [][]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 || len(records[0]) < 2 {
		return nil, nil, fmt.Errorf("%s contains no data rows", path)
	}

	symbols := records[0][1:]
	columns := make([][]float64, len(symbols))
	for j := range columns {
		columns[j] = make([]float64, 0, len(records)-1)
	}
	for _, record := range records[1:] {
		if len(record) != len(symbols)+1 {
			return nil, nil, fmt.Errorf("row has %d fields, expected %d", len(record), len(symbols)+1)
		}
		for j, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("bad value %q: %w", field, err)
			}
			columns[j] = append(columns[j], v)
		}
	}
	return symbols, columns, nil
}

func printColumn(symbol string, values []float64) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	fmt.Printf("%s\n", symbol)
	fmt.Printf("  mean %12.4f   std %12.4f\n", stat.Mean(sorted, nil), stat.PopStdDev(sorted, nil))
	fmt.Printf("  min  %12.4f   max %12.4f\n", sorted[0], sorted[len(sorted)-1])
	for _, p := range report.PercentileLevels {
		fmt.Printf("  p%02.0f  %12.4f\n", p*100, stat.Quantile(p, stat.Empirical, sorted, nil))
	}
	fmt.Println()
}
