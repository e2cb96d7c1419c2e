package util

import (
	"math"
)

// ----------------------------------------------------------------------------
// Distribution statistics
// ----------------------------------------------------------------------------

// Stats summarizes a series of sizes (bucket sizes of an index, rows per block, ...)
type Stats struct {
	StdDeviation float64 `json:"std_deviation" yaml:"std_deviation"`
	Min          float64 `json:"min" yaml:"min"`
	Max          float64 `json:"max" yaml:"max"`
	Mean         float64 `json:"mean" yaml:"mean"`
	MinMaxRatio  float64 `json:"min_max_ratio" yaml:"min_max_ratio"`
}

// NewStats computes mean, population standard deviation, min and max of values
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	lo, hi := values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	mean := sum / float64(len(values))

	var squares float64
	for _, v := range values {
		diff := v - mean
		squares += diff * diff
	}

	ratio := 1.0
	if hi > 0 {
		ratio = lo / hi
	}

	return Stats{
		StdDeviation: math.Sqrt(squares / float64(len(values))),
		Min:          lo,
		Max:          hi,
		Mean:         mean,
		MinMaxRatio:  ratio,
	}
}

// DistributionStats extends Stats with a single quality score in [0,1].
// 1 means every bucket holds the same number of entries.
type DistributionStats struct {
	Stats
	DistributionQuality float64 `json:"distribution_quality" yaml:"distribution_quality"`
}

// NewDistributionStats rates how evenly values are spread over buckets
func NewDistributionStats(sizes []float64) DistributionStats {
	stats := NewStats(sizes)

	// coefficient of variation
	var cv float64
	if stats.Mean > 0 {
		cv = stats.StdDeviation / stats.Mean
	}

	return DistributionStats{
		Stats:               stats,
		DistributionQuality: (1.0-math.Min(1.0, cv))*0.5 + stats.MinMaxRatio*0.5,
	}
}
