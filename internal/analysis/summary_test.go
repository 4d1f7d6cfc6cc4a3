package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pvcapacity/domain/core"
	"pvcapacity/domain/montecarlo"
)

func samplesOf(values ...float64) []montecarlo.Sample {
	out := make([]montecarlo.Sample, len(values))
	for i, v := range values {
		out[i] = montecarlo.Sample{Index: i, Seed: int64(100 + i), NationalCapacityMW: v}
	}
	return out
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(samplesOf(5, 1, 4, 2, 3), []float64{20, 50, 100})
	require.NoError(t, err)

	assert.Equal(t, 5, s.Runs)
	assert.InDelta(t, 3.0, s.Mean, 1e-12)
	assert.InDelta(t, 1.5811388300841898, s.StdDev, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, 3.0, s.Median)
	assert.InDelta(t, 0.0, s.Skewness, 1e-12)

	require.Len(t, s.Quantiles, 3)
	assert.Equal(t, 1.0, s.Quantiles[0].ValueMW)
	assert.Equal(t, int64(101), s.Quantiles[0].Sample.Seed)
	assert.Equal(t, 3.0, s.Quantiles[1].ValueMW)
	assert.Equal(t, int64(104), s.Quantiles[1].Sample.Seed)
	assert.Equal(t, int64(100), s.Quantiles[2].Sample.Seed)
}

func TestSummarize_ShapeOfSkewedRuns(t *testing.T) {
	s, err := Summarize(samplesOf(1, 2, 3, 4, 10), nil)
	require.NoError(t, err)

	assert.InDelta(t, 1.697056274847714, s.Skewness, 1e-9)
	assert.InDelta(t, 3.152, s.Kurtosis, 1e-9)
}

func TestSummarize_SingleRun(t *testing.T) {
	s, err := Summarize(samplesOf(7), nil)
	require.NoError(t, err)
	assert.Zero(t, s.StdDev)
	for _, q := range s.Quantiles {
		assert.Equal(t, 7.0, q.ValueMW)
	}
}

func TestSummarize_Errors(t *testing.T) {
	_, err := Summarize(nil, nil)
	assert.True(t, core.IsConfigurationError(err))

	_, err = Summarize(samplesOf(1, 2), []float64{0})
	assert.True(t, core.IsConfigurationError(err))
}

func TestQuantileSeeds_TiesGoToLowestIndex(t *testing.T) {
	q, err := QuantileSeeds(samplesOf(2, 1, 2, 2), []float64{100})
	require.NoError(t, err)
	assert.Equal(t, 0, q[0].Sample.Index)
}
