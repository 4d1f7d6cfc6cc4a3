package errordist

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pvcapacity/domain/core"
	"pvcapacity/domain/sitelist"
)

func TestDistribution_UnmarshalTuple(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Distribution
	}{
		{"uniform", `["uniform", [0.5]]`, Distribution{Kind: KindUniform, Params: []float64{0.5}}},
		{"normal", `["normal", [0.1, 0.03]]`, Distribution{Kind: KindNormal, Params: []float64{0.1, 0.03}}},
		{
			"johnson su inline bounds",
			`["johnson_su", [0.2, 0.7, 3.6, 8.3, [-100, 100]]]`,
			Distribution{Kind: KindJohnsonSU, Params: []float64{0.2, 0.7, 3.6, 8.3}, Bounds: &Bounds{Lo: -100, Hi: 100}},
		},
		{
			"trailing bounds",
			`["normal", [0.4, 0.1], [0, 1]]`,
			Distribution{Kind: KindNormal, Params: []float64{0.4, 0.1}, Bounds: &Bounds{Lo: 0, Hi: 1}},
		},
		{"object form", `{"kind": "uniform", "params": [1]}`, Distribution{Kind: KindUniform, Params: []float64{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Distribution
			require.NoError(t, json.Unmarshal([]byte(tt.input), &d))
			assert.Equal(t, tt.want, d)
			assert.NoError(t, d.Validate())
		})
	}
}

func TestDistribution_UnmarshalRejects(t *testing.T) {
	for _, input := range []string{`["normal"]`, `[1, [1]]`, `["normal", ["x"]]`, `["normal", [1, 2], "x"]`} {
		var d Distribution
		err := json.Unmarshal([]byte(input), &d)
		assert.Error(t, err, input)
	}
}

func TestDistribution_Validate(t *testing.T) {
	bad := []Distribution{
		{Kind: KindUniform},
		{Kind: KindNormal, Params: []float64{0, -1}},
		{Kind: KindJohnsonSU, Params: []float64{0, 0, 0, 1}},
		{Kind: "gamma", Params: []float64{1}},
		{Kind: KindUniform, Params: []float64{1}, Bounds: &Bounds{Lo: 1, Hi: 0}},
	}
	for _, d := range bad {
		assert.Error(t, d.Validate(), "%+v", d)
	}
}

func uniform(v float64) Distribution {
	return Distribution{Kind: KindUniform, Params: []float64{v}}
}

func TestSpec_LookupAndValidate(t *testing.T) {
	spec := &Spec{Distributions: map[Category]map[sitelist.SystemType]map[Slot]Distribution{
		Offline: {
			sitelist.Domestic:    {P1: uniform(0.1)},
			sitelist.NonDomestic: {P1: uniform(0.01)},
		},
	}}

	d, err := spec.Lookup(Offline, sitelist.NonDomestic, P1)
	require.NoError(t, err)
	assert.Equal(t, 0.01, d.Params[0])

	_, err = spec.Lookup(Offline, sitelist.Domestic, P2)
	assert.True(t, core.IsConfigurationError(err))

	assert.NoError(t, spec.Validate([]Category{Offline}))
	err = spec.Validate([]Category{Offline, RevisedUp})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revised_up")
}

func TestSpec_EffectFor(t *testing.T) {
	spec := &Spec{Effects: map[Category]map[sitelist.SystemType]Effect{
		RevisedUp: {sitelist.Domestic: EffectFactor},
	}}
	assert.Equal(t, EffectFactor, spec.EffectFor(RevisedUp, sitelist.Domestic))
	assert.Equal(t, EffectRelative, spec.EffectFor(RevisedUp, sitelist.NonDomestic))
	assert.Equal(t, EffectOffset, spec.EffectFor(SiteUncertainty, sitelist.Domestic))
	assert.Equal(t, EffectRelative, spec.EffectFor(SiteUncertainty, sitelist.NonDomestic))
}

func TestCategory_Valid(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, c.Valid())
	}
	assert.False(t, Category("hail").Valid())
}
