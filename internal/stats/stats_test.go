package stats_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JaimeStill/vigil/internal/stats"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want stats.Percentiles
	}{
		{"empty", nil, stats.Percentiles{}},
		{"single", []float64{0.7}, stats.Percentiles{P50: 0.7, P90: 0.7, P95: 0.7}},
		{"two", []float64{2.5, 1.0}, stats.Percentiles{P50: 1.0, P90: 2.5, P95: 2.5}},
		{
			"ten unsorted",
			[]float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5},
			stats.Percentiles{P50: 5, P90: 9, P95: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stats.Compute(tt.in))
		})
	}
}

func TestComputeDoesNotReorderInput(t *testing.T) {
	in := []float64{3, 1, 2}
	stats.Compute(in)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestPercentilesAreOrdered(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 200 {
		values := make([]float64, r.IntN(50))
		for i := range values {
			values[i] = r.Float64() * 5
		}

		p := stats.Compute(values)
		assert.LessOrEqual(t, p.P50, p.P90)
		assert.LessOrEqual(t, p.P90, p.P95)
	}
}

func TestPercentile(t *testing.T) {
	assert.Equal(t, 0.0, stats.Percentile(nil, 50))
	assert.Equal(t, 3.0, stats.Percentile([]float64{3, 1, 2}, 100))
	assert.Equal(t, 1.0, stats.Percentile([]float64{3, 1, 2}, 0))
}

func TestSummarize(t *testing.T) {
	s := stats.Summarize([]float64{0.8234, 1.2}, []float64{2.5, 1.0})

	assert.Equal(t, 823, s.TimeToFirstWord)
	assert.Equal(t, 1, s.NumInterruptions)
	assert.Equal(t, 0.8234, s.Latency.P50)
	assert.Equal(t, 1.0, s.Interruption.P50)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, stats.Summary{}, stats.Summarize(nil, nil))
}

func TestSummarizeThresholdIsExclusive(t *testing.T) {
	s := stats.Summarize(nil, []float64{2.0, 2.01})
	assert.Equal(t, 1, s.NumInterruptions)
}
