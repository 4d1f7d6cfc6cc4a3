package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pvcapacity/adapters/csvsink"
	"pvcapacity/domain/core"
	"pvcapacity/domain/montecarlo"
	"pvcapacity/domain/run"
	"pvcapacity/internal/analysis"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	sink := csvsink.New(dir)
	require.NoError(t, sink.Create("mc_api"))
	require.NoError(t, sink.WriteManifest(run.NewManifest(core.NewSimulationID(), "mc_api", []int64{1, 2, 3, 4}, "supplied",
		10, nil, 3, core.SiteListHash("sl"), core.SpecHash("spec"), "test")))
	require.NoError(t, sink.Append([]montecarlo.Sample{
		{Index: 0, Seed: 1, NationalCapacityMW: 10},
		{Index: 1, Seed: 2, NationalCapacityMW: 20},
		{Index: 2, Seed: 3, NationalCapacityMW: 30},
		{Index: 3, Seed: 4, NationalCapacityMW: 40},
	}))
	require.NoError(t, sink.Close())

	return NewEngine(NewRunsHandler(csvsink.NewReader(dir)))
}

func get(t *testing.T, engine *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestListRuns(t *testing.T) {
	w := get(t, newTestServer(t), "/api/runs")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Runs []string `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"mc_api"}, body.Runs)
}

func TestGetSummary(t *testing.T) {
	w := get(t, newTestServer(t), "/api/runs/mc_api/summary?percentiles=50,100")
	require.Equal(t, http.StatusOK, w.Code)

	var s analysis.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, 4, s.Runs)
	assert.InDelta(t, 25.0, s.Mean, 1e-12)
	require.Len(t, s.Quantiles, 2)
	assert.Equal(t, int64(2), s.Quantiles[0].Sample.Seed)
	assert.Equal(t, int64(4), s.Quantiles[1].Sample.Seed)
}

func TestGetSamplesAndManifest(t *testing.T) {
	engine := newTestServer(t)

	w := get(t, engine, "/api/runs/mc_api/samples")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Samples []montecarlo.Sample `json:"samples"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Samples, 4)

	w = get(t, engine, "/api/runs/mc_api")
	require.Equal(t, http.StatusOK, w.Code)
	var m run.Manifest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, "mc_api", m.OutputName)
}

func TestErrors(t *testing.T) {
	engine := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, get(t, engine, "/api/runs/missing/summary").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, engine, "/api/runs/mc_api/summary?percentiles=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, engine, "/api/runs/mc_api/summary?percentiles=0").Code)
}
