package simulation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pvcapacity/domain/core"
	"pvcapacity/domain/errordist"
	"pvcapacity/domain/sitelist"
	"pvcapacity/internal/testkit"
)

func newEngine(spec *errordist.Spec) *Engine {
	return NewEngine(NewDistributionModel(spec, 0), DefaultEngineOptions(), nil)
}

func capacities(sl *sitelist.SiteList) []float64 {
	out := make([]float64, sl.Len())
	for i, r := range sl.Records {
		out[i] = r.Capacity
	}
	return out
}

func TestApply_NetworkOutageScenario(t *testing.T) {
	sl := testkit.ScenarioSiteList()
	e := newEngine(testkit.ZeroSpec())
	rng := newRand(1)

	for _, c := range errordist.DefaultOrder {
		require.NoError(t, e.Apply(c, sl, rng))
	}

	got := capacities(sl)
	assert.InDelta(t, 1.98, got[0], 1e-9)
	assert.InDelta(t, 15.0, got[1], 1e-9)
	assert.InDelta(t, 60.0, got[2], 1e-9)
	assert.InDelta(t, 76.98, sl.TotalCapacity(), 1e-9)
}

func TestApply_ZeroProbabilityLeavesCapacity(t *testing.T) {
	sl := testkit.SyntheticSiteList(200, 3)
	before := sl.TotalCapacity()
	e := newEngine(testkit.ZeroSpec())

	for _, c := range []errordist.Category{errordist.Decommissioned, errordist.SiteUncertainty, errordist.RevisedUp, errordist.RevisedDown, errordist.Offline} {
		require.NoError(t, e.Apply(c, sl, newRand(2)))
	}
	assert.InDelta(t, before, sl.TotalCapacity(), 1e-9)
}

func TestApply_RelativeEffect(t *testing.T) {
	spec := testkit.NewSpecBuilder().
		Uniform(errordist.RevisedUp, errordist.P1, 1).
		Uniform(errordist.RevisedUp, errordist.P2, 0.5).
		Build()
	sl := testkit.ScenarioSiteList()

	require.NoError(t, newEngine(spec).Apply(errordist.RevisedUp, sl, newRand(1)))
	assert.Equal(t, []float64{3, 22.5, 90}, capacities(sl))
}

func TestApply_OffsetEffectForDomesticSiteUncertainty(t *testing.T) {
	spec := testkit.NewSpecBuilder().
		Uniform(errordist.SiteUncertainty, errordist.P1, 1).
		Uniform(errordist.SiteUncertainty, errordist.P2, 0.5).
		Build()
	sl := testkit.ScenarioSiteList()

	require.NoError(t, newEngine(spec).Apply(errordist.SiteUncertainty, sl, newRand(1)))
	// domestic 2 MW gains 0.5 MW, non-domestic scale by 1.5
	assert.Equal(t, []float64{2.5, 22.5, 90}, capacities(sl))
}

func TestApply_FactorEffect(t *testing.T) {
	spec := testkit.NewSpecBuilder().
		Uniform(errordist.RevisedDown, errordist.P1, 1).
		Uniform(errordist.RevisedDown, errordist.P2, 0.5).
		Effect(errordist.RevisedDown, sitelist.NonDomestic, errordist.EffectFactor).
		Build()
	sl := testkit.ScenarioSiteList()

	require.NoError(t, newEngine(spec).Apply(errordist.RevisedDown, sl, newRand(1)))
	assert.Equal(t, []float64{3, 7.5, 30}, capacities(sl))
}

func TestApply_NegativeCapacityIsInvariantViolation(t *testing.T) {
	spec := testkit.NewSpecBuilder().
		Uniform(errordist.SiteUncertainty, errordist.P1, 1).
		Uniform(errordist.SiteUncertainty, errordist.P2, -5).
		Build()
	sl := testkit.ScenarioSiteList()

	err := newEngine(spec).Apply(errordist.SiteUncertainty, sl, newRand(1))
	require.Error(t, err)
	assert.True(t, core.IsInvariantViolation(err))
	assert.Contains(t, err.Error(), "site-a")
	assert.Contains(t, err.Error(), "site_uncertainty")
}

func TestApply_NonNegativeUnderStudySpec(t *testing.T) {
	spec := testkit.StudySpec()
	e := newEngine(spec)

	for seed := uint64(0); seed < 20; seed++ {
		sl := testkit.SyntheticSiteList(300, int64(seed))
		rng := newRand(seed)
		for _, c := range errordist.DefaultOrder {
			require.NoError(t, e.Apply(c, sl, rng))
		}
		for _, r := range sl.Records {
			assert.GreaterOrEqual(t, r.Capacity, 0.0)
		}
	}
}

func TestApply_DecommissionedExcludedFromTotal(t *testing.T) {
	spec := testkit.NewSpecBuilder().Uniform(errordist.Decommissioned, errordist.P1, 1).Build()
	sl := testkit.ScenarioSiteList()

	require.NoError(t, newEngine(spec).Apply(errordist.Decommissioned, sl, newRand(1)))
	for _, r := range sl.Records {
		assert.True(t, r.Decommissioned)
	}
	assert.Equal(t, []float64{2, 15, 60}, capacities(sl))
	assert.Zero(t, sl.TotalCapacity())
}

func TestApply_Offline(t *testing.T) {
	t.Run("always offline", func(t *testing.T) {
		spec := testkit.NewSpecBuilder().Uniform(errordist.Offline, errordist.P1, 1).Build()
		sl := testkit.ScenarioSiteList()
		require.NoError(t, newEngine(spec).Apply(errordist.Offline, sl, newRand(1)))
		assert.Equal(t, []float64{0, 0, 0}, capacities(sl))
	})

	t.Run("partial year", func(t *testing.T) {
		spec := testkit.NewSpecBuilder().Uniform(errordist.Offline, errordist.P1, 0.5).Build()
		sl := testkit.ScenarioSiteList()
		require.NoError(t, newEngine(spec).Apply(errordist.Offline, sl, newRand(1)))
		for i, want := range []float64{2, 15, 60} {
			got := sl.Records[i].Capacity
			assert.Greater(t, got, 0.0)
			assert.Less(t, got, want)
		}
	})

	t.Run("expected days down", func(t *testing.T) {
		spec := testkit.NewSpecBuilder().Uniform(errordist.Offline, errordist.P1, 0.1).Build()
		sl := testkit.SyntheticSiteList(2000, 4)
		before := sl.TotalCapacity()
		require.NoError(t, newEngine(spec).Apply(errordist.Offline, sl, newRand(9)))
		assert.InDelta(t, 0.9, sl.TotalCapacity()/before, 0.02)
	})
}

func TestApply_NonFiniteCapacityIsInvariantViolation(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1)} {
		sl := testkit.ScenarioSiteList()
		sl.Records[2].Capacity = v

		err := newEngine(testkit.ZeroSpec()).Apply(errordist.RevisedUp, sl, newRand(1))
		require.Error(t, err)
		assert.True(t, core.IsInvariantViolation(err))
		assert.Contains(t, err.Error(), "site-c")
	}
}

func TestApply_StringOutage(t *testing.T) {
	spec := testkit.ZeroSpec()

	certain := DefaultEngineOptions()
	for _, st := range sitelist.SystemTypes {
		certain.StringOutage[st] = StringOutageParams{FailureMean: 1, DurationMean: 365}
	}
	sl := testkit.ScenarioSiteList()
	e := NewEngine(NewDistributionModel(spec, 0), certain, nil)
	require.NoError(t, e.Apply(errordist.StringOutage, sl, newRand(1)))
	assert.Equal(t, []float64{0, 0, 0}, capacities(sl))

	sl = testkit.SyntheticSiteList(200, 4)
	before := capacities(sl)
	require.NoError(t, newEngine(spec).Apply(errordist.StringOutage, sl, newRand(4)))
	for i, r := range sl.Records {
		assert.GreaterOrEqual(t, r.Capacity, 0.0)
		assert.LessOrEqual(t, r.Capacity, before[i])
	}
}

func TestApply_UnknownCategory(t *testing.T) {
	err := newEngine(testkit.ZeroSpec()).Apply(errordist.Unreported, testkit.ScenarioSiteList(), newRand(1))
	assert.True(t, core.IsConfigurationError(err))
}
