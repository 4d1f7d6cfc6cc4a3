package errorconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pvcapacity/domain/core"
	"pvcapacity/domain/errordist"
	"pvcapacity/domain/sitelist"
)

func TestLoadErrorConfig_ShippedConfig(t *testing.T) {
	cfg, err := NewLoader().LoadErrorConfig(filepath.Join("..", "..", "configs", "capacity_error.json"))
	require.NoError(t, err)

	require.NoError(t, cfg.Validate(errordist.DefaultOrder))
	assert.Len(t, cfg.UnreportedBands, 4)
	assert.Equal(t, "10to50", cfg.UnreportedBands[2].Name)
	assert.Equal(t, 40.0, cfg.UnreportedBands[2].MaxMW)

	jsu, err := cfg.Lookup(errordist.SiteUncertainty, sitelist.NonDomestic, errordist.P2)
	require.NoError(t, err)
	assert.Equal(t, errordist.KindJohnsonSU, jsu.Kind)
	assert.Len(t, jsu.Params, 4)
	require.NotNil(t, jsu.Bounds)
	assert.Equal(t, errordist.Bounds{Lo: -100, Hi: 100}, *jsu.Bounds)

	assert.Equal(t, errordist.EffectOffset, cfg.EffectFor(errordist.SiteUncertainty, sitelist.Domestic))
}

func TestParse_BareCategoryMap(t *testing.T) {
	doc := `{
		"offline": {
			"domestic": {"p1": ["normal", [0.1, 0.03]]},
			"non_domestic": {"p1": ["normal", [0.015, 0.006]]}
		}
	}`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)

	require.NoError(t, cfg.Validate([]errordist.Category{errordist.Offline}))
	assert.Len(t, cfg.UnreportedBands, 4)
	for _, b := range cfg.UnreportedBands {
		assert.Zero(t, b.Count)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not an object", `[1, 2]`},
		{"unknown field", `{"distributions": {}, "bands": []}`},
		{"unknown category", `{"distributions": {"lightning": {}}}`},
		{"unknown system type", `{"distributions": {"offline": {"commercial": {}}}}`},
		{"bad tuple", `{"distributions": {"offline": {"domestic": {"p1": ["normal"]}}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, core.IsConfigurationError(err), "got %v", err)
		})
	}
}

func TestLoadErrorConfig_MissingFile(t *testing.T) {
	_, err := NewLoader().LoadErrorConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.True(t, core.IsConfigurationError(err))
}

func TestLoadErrorConfig_ObjectForm(t *testing.T) {
	doc := `{
		"distributions": {
			"revised_up": {
				"domestic": {
					"p1": {"kind": "uniform", "params": [0.5]},
					"p2": {"kind": "normal", "params": [0.4, 0.1], "bounds": {"lo": 0, "hi": 1}}
				}
			}
		},
		"unreported_bands": [{"name": "small", "min_mw": 0, "max_mw": 4, "count": 3}]
	}`
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := NewLoader().LoadErrorConfig(path)
	require.NoError(t, err)
	d, err := cfg.Lookup(errordist.RevisedUp, sitelist.Domestic, errordist.P2)
	require.NoError(t, err)
	assert.Equal(t, &errordist.Bounds{Lo: 0, Hi: 1}, d.Bounds)
	assert.Equal(t, 3, cfg.UnreportedBands[0].Count)
}
