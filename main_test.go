package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pvcapacity/internal/config"
	"pvcapacity/internal/container"
)

func TestRouter(t *testing.T) {
	c, err := container.New(&config.Config{
		Simulation: config.SimulationConfig{DomesticCutoffMW: 10, BatchSize: 10, Workers: 1, JohnsonSURetries: 10},
		Output:     config.OutputConfig{Dir: t.TempDir()},
		LogLevel:   "ERROR",
	})
	require.NoError(t, err)
	h := newRouter(c)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"runs":[]}`, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/nope/samples", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
