package container

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pvcapacity/internal/config"
	"pvcapacity/internal/simulation"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	sites := filepath.Join(dir, "sites.csv")
	require.NoError(t, os.WriteFile(sites, []byte("site_id,capacity\na,2\nb,15\nc,60\nd,3\ne,45\n"), 0o644))

	// the shipped band counts need a national-sized list; keep one small band
	raw, err := os.ReadFile("../../configs/capacity_error.json")
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	doc["unreported_bands"] = json.RawMessage(`[{"name":"0to4","min_mw":0,"max_mw":4,"count":1}]`)
	raw, err = json.Marshal(doc)
	require.NoError(t, err)
	errCfg := filepath.Join(dir, "errors.json")
	require.NoError(t, os.WriteFile(errCfg, raw, 0o644))

	return &config.Config{
		Data: config.DataConfig{
			SiteListFile:    sites,
			ErrorConfigFile: errCfg,
			CacheDir:        filepath.Join(dir, "cache"),
		},
		Simulation: config.SimulationConfig{
			DomesticCutoffMW: 10,
			BatchSize:        2,
			Workers:          1,
			JohnsonSURetries: 1000,
		},
		Output:   config.OutputConfig{Dir: filepath.Join(dir, "out")},
		LogLevel: "ERROR",
	}
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestLoadInputs_HashesAreStable(t *testing.T) {
	c, err := New(testConfig(t))
	require.NoError(t, err)

	first, err := c.LoadInputs()
	require.NoError(t, err)
	second, err := c.LoadInputs()
	require.NoError(t, err)

	assert.Equal(t, 5, first.Base.Len())
	assert.NotEmpty(t, first.SiteListHash)
	assert.Equal(t, first.SiteListHash, second.SiteListHash)
	assert.Equal(t, first.SpecHash, second.SpecHash)
}

func TestLoadInputs_RequiresFiles(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.ErrorConfigFile = ""
	c, err := New(cfg)
	require.NoError(t, err)

	_, err = c.LoadInputs()
	assert.Error(t, err)
}

func TestContainer_SimulatesAndServes(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(cfg)
	require.NoError(t, err)

	in, err := c.LoadInputs()
	require.NoError(t, err)
	runner, err := c.NewRunner(in.ErrorConfig)
	require.NoError(t, err)

	d := c.NewDriver(runner, in, simulation.DriverOptions{OutputName: "mc_container", CodeVersion: "test"})
	samples, err := d.Run(context.Background(), 3, []int64{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, samples, 3)

	read, err := c.Samples.ReadSamples("mc_container")
	require.NoError(t, err)
	assert.Equal(t, samples, read)

	names, err := c.Samples.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"mc_container"}, names)
}
