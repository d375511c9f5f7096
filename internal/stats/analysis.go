package stats

import (
	"math"
	"time"
)

// Report summarizes a collected sample set.
type Report struct {
	Samples            int
	AvgBlockTime       float64 // seconds
	AvgPending         float64
	PendingCorrelation float64 // pending extrinsics vs block time
	WeightCorrelation  float64 // block weight vs block time
}

// Analyze computes the summary statistics over the sample set.
func Analyze(samples []Sample) Report {
	times := make([]float64, len(samples))
	pending := make([]float64, len(samples))
	weights := make([]float64, len(samples))
	for i, s := range samples {
		times[i] = s.BlockTime
		pending[i] = float64(s.Pending)
		weights[i] = float64(s.Weight)
	}
	return Report{
		Samples:            len(samples),
		AvgBlockTime:       Mean(times),
		AvgPending:         Mean(pending),
		PendingCorrelation: Correlation(pending, times),
		WeightCorrelation:  Correlation(weights, times),
	}
}

func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Correlation is the Pearson coefficient between two equal-length series.
// Returns 0 when either series is constant or the lengths differ.
func Correlation(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) == 0 {
		return 0
	}
	xMean, yMean := Mean(xs), Mean(ys)

	var numerator, xVar, yVar float64
	for i := range xs {
		xDiff := xs[i] - xMean
		yDiff := ys[i] - yMean
		numerator += xDiff * yDiff
		xVar += xDiff * xDiff
		yVar += yDiff * yDiff
	}
	if xVar == 0 || yVar == 0 {
		return 0
	}
	return numerator / math.Sqrt(xVar*yVar)
}

// OptimalDelay picks a submission delay: half the block time when the
// pool is typically non-empty, otherwise no delay.
func OptimalDelay(blockTime time.Duration, avgPending float64) time.Duration {
	if avgPending > 0 {
		return blockTime / 2
	}
	return 0
}
