package bootstrap

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/your-org/mbb-portfolio-engine/pkg/logger"
)

// SelectionMethod names a block-size selection strategy.
type SelectionMethod string

const (
	// MethodAuto takes the smaller of the theoretical and empirical estimates.
	MethodAuto SelectionMethod = "auto"
	// MethodTheoretical uses the n^(1/3) rule only.
	MethodTheoretical SelectionMethod = "theoretical"
	// MethodEmpirical searches candidate sizes with trial bootstraps.
	MethodEmpirical SelectionMethod = "empirical"
)

// Statistic names the per-row summary used by the empirical search.
type Statistic string

const (
	// StatisticMean scores candidates by dispersion of row means.
	StatisticMean Statistic = "mean"
	// StatisticVariance scores candidates by dispersion of row variances.
	StatisticVariance Statistic = "variance"
	// StatisticSharpe scores candidates by dispersion of row mean/std ratios.
	StatisticSharpe Statistic = "sharpe"
)

// Trial bootstrap dimensions for the empirical search.
const (
	trialBootstraps = 100
	trialSampleSize = 63
)

// ChooseBlockSize selects a block size for series using the given method and
// empirical statistic. The theoretical rule is 1.5*n^(1/3) capped at n/4; the
// empirical search picks the candidate whose trial bootstraps show the least
// cross-sample dispersion of the statistic.
func (s *Sampler) ChooseBlockSize(series []float64, method SelectionMethod, statistic Statistic) int {
	return s.chooseOptimalBlockSize(series, method, statistic)
}

func (s *Sampler) chooseOptimalBlockSize(series []float64, method SelectionMethod, statistic Statistic) int {
	cleaned := dropNonFinite(series)
	n := len(cleaned)

	switch method {
	case MethodTheoretical:
		return theoreticalBlockSize(n)
	case MethodEmpirical:
		return s.empiricalBlockSize(cleaned, statistic)
	default:
		theoretical := theoreticalBlockSize(n)
		empirical := s.empiricalBlockSize(cleaned, statistic)
		if empirical < theoretical {
			return empirical
		}
		return theoretical
	}
}

// theoreticalBlockSize applies the 1.5*n^(1/3) rule, capped at n/4. The
// result is floored at 1 so degenerate inputs fail the sampler's length
// check instead of producing a zero-length block.
func theoreticalBlockSize(n int) int {
	bOpt := int(1.5 * math.Cbrt(float64(n)))
	if bOpt < 1 {
		bOpt = 1
	}
	if limit := n / 4; bOpt > limit {
		bOpt = limit
	}
	if bOpt < 1 {
		bOpt = 1
	}
	return bOpt
}

// empiricalBlockSize runs small trial bootstraps for each candidate size and
// picks the one minimizing the dispersion of the per-row statistic. When
// every trial fails the theoretical estimate is used instead.
func (s *Sampler) empiricalBlockSize(cleaned []float64, statistic Statistic) int {
	n := len(cleaned)

	maxBlock := int(2 * math.Cbrt(float64(n)))
	if maxBlock < 2 {
		maxBlock = 2
	}
	if limit := n / 4; maxBlock > limit {
		maxBlock = limit
	}

	sampleSize := trialSampleSize
	if n < sampleSize {
		sampleSize = n
	}

	bestSize := 0
	bestDispersion := math.Inf(1)
	tested := 0
	for blockSize := 2; blockSize <= maxBlock; blockSize++ {
		samples, err := s.MovingBlockBootstrap(cleaned, Options{
			NBootstrap: trialBootstraps,
			SampleSize: sampleSize,
			BlockSize:  blockSize,
		})
		if err != nil {
			logger.Warnf("trial bootstrap failed for block size %d: %v", blockSize, err)
			continue
		}
		tested++

		stats := make([]float64, len(samples))
		for i, row := range samples {
			stats[i] = rowStatistic(row, statistic)
		}
		dispersion := stat.PopStdDev(stats, nil)
		if dispersion < bestDispersion {
			bestDispersion = dispersion
			bestSize = blockSize
		}
	}

	if tested == 0 || bestSize == 0 {
		return theoreticalBlockSize(n)
	}
	return bestSize
}

func rowStatistic(row []float64, statistic Statistic) float64 {
	switch statistic {
	case StatisticVariance:
		return stat.PopVariance(row, nil)
	case StatisticSharpe:
		mean := stat.Mean(row, nil)
		std := stat.PopStdDev(row, nil)
		if std > 0 {
			return mean / std
		}
		return 0
	default:
		return stat.Mean(row, nil)
	}
}
