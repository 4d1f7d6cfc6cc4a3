package ports

import (
	"pvcapacity/domain/montecarlo"
	"pvcapacity/domain/run"
)

// SampleSink is the append-only destination of a Monte Carlo driver.
// It is written from a single goroutine.
type SampleSink interface {
	// Create claims the output identity. It fails with an output collision
	// if the identity already exists or was claimed earlier in this process.
	Create(name string) error

	// WriteManifest stores the manifest next to the samples
	WriteManifest(m *run.Manifest) error

	// Append writes one batch and flushes it to stable storage
	Append(samples []montecarlo.Sample) error

	// Close releases the output; safe to call more than once
	Close() error
}

// SampleSource reads back a completed output
type SampleSource interface {
	ReadSamples(name string) ([]montecarlo.Sample, error)
	ReadManifest(name string) (*run.Manifest, error)
	List() ([]string, error)
}
