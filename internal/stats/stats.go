// Package stats derives the per-call latency and interruption metrics.
package stats

import (
	"math"
	"slices"
)

// InterruptionThreshold is the duration in seconds an interruption must
// exceed to be counted.
const InterruptionThreshold = 2.0

// Percentiles holds nearest-rank percentiles of a duration distribution.
type Percentiles struct {
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
}

// Summary is the metric set attached to a call.
type Summary struct {
	Latency          Percentiles `json:"latency"`
	Interruption     Percentiles `json:"interruption"`
	TimeToFirstWord  int         `json:"timeToFirstWord"`
	NumInterruptions int         `json:"numInterruptions"`
}

// Percentile returns the nearest-rank p-th percentile of values, which
// need not be sorted. Empty input yields 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return nearestRank(sorted, p)
}

// Compute returns p50, p90 and p95 of values.
func Compute(values []float64) Percentiles {
	if len(values) == 0 {
		return Percentiles{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return Percentiles{
		P50: nearestRank(sorted, 50),
		P90: nearestRank(sorted, 90),
		P95: nearestRank(sorted, 95),
	}
}

func nearestRank(sorted []float64, p float64) float64 {
	rank := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	rank = max(0, min(rank, len(sorted)-1))
	return sorted[rank]
}

// Summarize builds the call metrics from latency block and interruption
// durations in seconds, each in transcript order.
func Summarize(latencies, interruptions []float64) Summary {
	s := Summary{
		Latency:      Compute(latencies),
		Interruption: Compute(interruptions),
	}
	if len(latencies) > 0 {
		s.TimeToFirstWord = int(math.Round(latencies[0] * 1000))
	}
	for _, d := range interruptions {
		if d > InterruptionThreshold {
			s.NumInterruptions++
		}
	}
	return s
}
