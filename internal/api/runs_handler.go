package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"pvcapacity/domain/core"
	"pvcapacity/internal"
	"pvcapacity/internal/analysis"
	"pvcapacity/ports"
)

// RunsHandler serves completed Monte Carlo outputs read-only
type RunsHandler struct {
	source ports.SampleSource
	logger *internal.Logger
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(source ports.SampleSource) *RunsHandler {
	return &RunsHandler{source: source, logger: internal.DefaultLogger.With("api")}
}

// Register mounts the routes under /api
func (h *RunsHandler) Register(r gin.IRouter) {
	g := r.Group("/api")
	g.GET("/runs", h.ListRuns)
	g.GET("/runs/:name", h.GetManifest)
	g.GET("/runs/:name/summary", h.GetSummary)
	g.GET("/runs/:name/samples", h.GetSamples)
}

// NewEngine builds a gin engine serving the handler
func NewEngine(h *RunsHandler) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	h.Register(engine)
	return engine
}

// ListRuns returns the names of every completed output
func (h *RunsHandler) ListRuns(c *gin.Context) {
	names, err := h.source.List()
	if err != nil {
		h.fail(c, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": names})
}

// GetManifest returns the manifest of one output
func (h *RunsHandler) GetManifest(c *gin.Context) {
	m, err := h.source.ReadManifest(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// GetSamples returns the samples of one output
func (h *RunsHandler) GetSamples(c *gin.Context) {
	samples, err := h.source.ReadSamples(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": c.Param("name"), "samples": samples})
}

// GetSummary returns summary statistics and quantile seeds. The optional
// percentiles query takes a comma-separated list, e.g. ?percentiles=5,50,95
func (h *RunsHandler) GetSummary(c *gin.Context) {
	var percents []float64
	if raw := c.Query("percentiles"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			p, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid percentile " + part})
				return
			}
			percents = append(percents, p)
		}
	}

	samples, err := h.source.ReadSamples(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	summary, err := analysis.Summarize(samples, percents)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *RunsHandler) fail(c *gin.Context, err error) {
	switch {
	case os.IsNotExist(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
	case core.IsConfigurationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
