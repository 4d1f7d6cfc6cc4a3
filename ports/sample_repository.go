package ports

import (
	"context"

	"pvcapacity/domain/core"
	"pvcapacity/domain/montecarlo"
	"pvcapacity/domain/run"
	"pvcapacity/domain/sitelist"
)

// SampleRepository persists Monte Carlo outputs in a database
type SampleRepository interface {
	SaveRun(ctx context.Context, m *run.Manifest) error
	SaveSamples(ctx context.Context, id core.SimulationID, samples []montecarlo.Sample) error
	ListSamples(ctx context.Context, id core.SimulationID) ([]montecarlo.Sample, error)
	SaveSiteList(ctx context.Context, id core.SimulationID, label string, records []sitelist.Record) error
}
