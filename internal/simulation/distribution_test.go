package simulation

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pvcapacity/domain/core"
	"pvcapacity/domain/errordist"
	"pvcapacity/domain/sitelist"
	"pvcapacity/internal/testkit"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 1))
}

func TestSample_UniformIsConstant(t *testing.T) {
	spec := testkit.NewSpecBuilder().Uniform(errordist.RevisedUp, errordist.P2, 0.3).Build()
	m := NewDistributionModel(spec, 0)

	values, err := m.Sample(errordist.RevisedUp, sitelist.Domestic, errordist.P2, 1000, nil, newRand(1))
	require.NoError(t, err)
	require.Len(t, values, 1000)
	for _, v := range values {
		assert.Equal(t, 0.3, v)
	}
}

func TestSample_TruncatedNormalStaysInBounds(t *testing.T) {
	tests := []struct {
		name   string
		mean   float64
		sd     float64
		bounds *errordist.Bounds
		lo, hi float64
	}{
		{name: "default bounds", mean: 0, sd: 5, lo: -1, hi: 1},
		{name: "probability bounds", mean: 0.02, sd: 0.06, bounds: &errordist.ProbabilityBounds, lo: 0, hi: 1},
		{name: "mean outside bounds", mean: 3, sd: 1, bounds: &errordist.Bounds{Lo: -1, Hi: 1}, lo: -1, hi: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testkit.NewSpecBuilder().Normal(errordist.RevisedDown, errordist.P2, tt.mean, tt.sd).Build()
			m := NewDistributionModel(spec, 0)

			values, err := m.Sample(errordist.RevisedDown, sitelist.NonDomestic, errordist.P2, 5000, tt.bounds, newRand(7))
			require.NoError(t, err)
			for _, v := range values {
				assert.GreaterOrEqual(t, v, tt.lo)
				assert.LessOrEqual(t, v, tt.hi)
			}
		})
	}
}

func TestSample_ConfiguredBoundsApplyWhenNoneGiven(t *testing.T) {
	d := errordist.Distribution{
		Kind:   errordist.KindNormal,
		Params: []float64{0, 10},
		Bounds: &errordist.Bounds{Lo: 0, Hi: 0.5},
	}
	spec := testkit.NewSpecBuilder().SetBoth(errordist.RevisedUp, errordist.P2, d).Build()
	m := NewDistributionModel(spec, 0)

	values, err := m.Sample(errordist.RevisedUp, sitelist.Domestic, errordist.P2, 500, nil, newRand(3))
	require.NoError(t, err)
	for _, v := range values {
		assert.True(t, v >= 0 && v <= 0.5, "value %v outside configured bounds", v)
	}
}

func TestSample_Reproducible(t *testing.T) {
	m := NewDistributionModel(testkit.StudySpec(), 0)

	a, err := m.Sample(errordist.SiteUncertainty, sitelist.NonDomestic, errordist.P2, 200, nil, newRand(99))
	require.NoError(t, err)
	b, err := m.Sample(errordist.SiteUncertainty, sitelist.NonDomestic, errordist.P2, 200, nil, newRand(99))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSample_JohnsonSUScaledAndBounded(t *testing.T) {
	m := NewDistributionModel(testkit.StudySpec(), 0)

	values, err := m.Sample(errordist.SiteUncertainty, sitelist.NonDomestic, errordist.P2, 2000, nil, newRand(5))
	require.NoError(t, err)
	for _, v := range values {
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestSample_JohnsonSURetryExhaustion(t *testing.T) {
	d := errordist.Distribution{
		Kind:   errordist.KindJohnsonSU,
		Params: []float64{0, 1, 1000, 1},
	}
	spec := testkit.NewSpecBuilder().SetBoth(errordist.SiteUncertainty, errordist.P2, d).Build()
	m := NewDistributionModel(spec, 10)

	_, err := m.Sample(errordist.SiteUncertainty, sitelist.NonDomestic, errordist.P2, 1, nil, newRand(1))
	require.Error(t, err)
	assert.True(t, core.IsInvariantViolation(err))
	assert.Contains(t, err.Error(), "10 attempts")
}

func TestSample_MissingDistribution(t *testing.T) {
	m := NewDistributionModel(testkit.ZeroSpec(), 0)

	_, err := m.Sample(errordist.StringOutage, sitelist.Domestic, errordist.P1, 1, nil, newRand(1))
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
}

func TestSample_MalformedDistribution(t *testing.T) {
	bad := errordist.Distribution{Kind: errordist.KindUniform, Params: []float64{1, 2}}
	spec := testkit.NewSpecBuilder().SetBoth(errordist.RevisedUp, errordist.P2, bad).Build()
	m := NewDistributionModel(spec, 0)

	_, err := m.Sample(errordist.RevisedUp, sitelist.Domestic, errordist.P2, 1, nil, newRand(1))
	assert.True(t, core.IsConfigurationError(err))
}

func TestTruncatedNormal_Degenerate(t *testing.T) {
	v, err := TruncatedNormal(0.5, 0, errordist.ProbabilityBounds, 3, newRand(1))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, v)

	_, err = TruncatedNormal(2, 0, errordist.ProbabilityBounds, 1, newRand(1))
	assert.True(t, core.IsConfigurationError(err))
}
