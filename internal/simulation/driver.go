package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"pvcapacity/domain/core"
	"pvcapacity/domain/montecarlo"
	"pvcapacity/domain/run"
	"pvcapacity/domain/sitelist"
	"pvcapacity/internal"
	"pvcapacity/ports"
)

// Seed sources recorded in the manifest
const (
	SeedSourceSupplied = "supplied"
	SeedSourceClock    = "clock"
)

// DriverOptions configure a Monte Carlo driver
type DriverOptions struct {
	OutputName  string
	BatchSize   int
	Workers     int
	CutoffMW    float64
	CodeVersion string

	// Clock feeds clock-derived seeds; defaults to time.Now
	Clock func() time.Time

	// Progress is called after every flushed batch
	Progress func(done, total int)
}

// Driver repeats simulation runs over a fixed base site list and streams the
// samples to a sink.
type Driver struct {
	runner *Runner
	base   *sitelist.SiteList
	sink   ports.SampleSink
	opts   DriverOptions
	logger *internal.Logger

	siteListHash core.SiteListHash
	specHash     core.SpecHash
}

// NewDriver creates a driver. The hashes identify the inputs in the manifest.
func NewDriver(
	runner *Runner,
	base *sitelist.SiteList,
	sink ports.SampleSink,
	siteListHash core.SiteListHash,
	specHash core.SpecHash,
	opts DriverOptions,
	logger *internal.Logger,
) *Driver {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Driver{
		runner:       runner,
		base:         base,
		sink:         sink,
		opts:         opts,
		logger:       logger.With("driver"),
		siteListHash: siteListHash,
		specHash:     specHash,
	}
}

// Run executes n runs. seeds, when given, must have exactly n entries;
// otherwise unique seeds are derived from the clock. Argument and output
// checks happen before any run. Samples are flushed every BatchSize runs, so
// on failure or cancellation every completed batch is already on disk.
func (d *Driver) Run(ctx context.Context, n int, seeds []int64) (samples []montecarlo.Sample, err error) {
	if n <= 0 {
		return nil, core.NewConfigurationError("number of runs must be positive, got %d", n)
	}
	source := SeedSourceSupplied
	if seeds == nil {
		seeds = ClockSeeds(d.opts.Clock, n)
		source = SeedSourceClock
	} else if len(seeds) != n {
		return nil, core.NewConfigurationError("%d seeds supplied for %d runs", len(seeds), n)
	}
	if d.opts.OutputName == "" {
		return nil, core.NewConfigurationError("output name is required")
	}

	if err := d.sink.Create(d.opts.OutputName); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := d.sink.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	manifest := run.NewManifest(
		core.NewSimulationID(),
		d.opts.OutputName,
		seeds,
		source,
		d.opts.CutoffMW,
		d.runner.Order(),
		d.base.Len(),
		d.siteListHash,
		d.specHash,
		d.opts.CodeVersion,
	)
	if err := d.sink.WriteManifest(manifest); err != nil {
		return nil, err
	}
	d.logger.Info("simulation %s: %d runs into %s (batch %d, workers %d)",
		manifest.SimulationID, n, d.opts.OutputName, d.opts.BatchSize, d.opts.Workers)

	samples = make([]montecarlo.Sample, 0, n)
	for start := 0; start < n; start += d.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			d.logger.Warn("cancelled after %d of %d runs", len(samples), n)
			return samples, err
		}
		end := start + d.opts.BatchSize
		if end > n {
			end = n
		}

		batch, err := d.runBatch(ctx, seeds, start, end)
		if err != nil {
			return samples, err
		}
		if err := d.sink.Append(batch); err != nil {
			return samples, err
		}
		samples = append(samples, batch...)
		if d.opts.Progress != nil {
			d.opts.Progress(len(samples), n)
		}
	}

	d.logger.Info("simulation %s complete", manifest.SimulationID)
	return samples, nil
}

// runBatch runs seeds[start:end] and returns the samples ordered by index
func (d *Driver) runBatch(ctx context.Context, seeds []int64, start, end int) ([]montecarlo.Sample, error) {
	batch := make([]montecarlo.Sample, end-start)

	if d.opts.Workers == 1 {
		for i := start; i < end; i++ {
			s, err := d.runOne(ctx, i, seeds[i])
			if err != nil {
				return nil, err
			}
			batch[i-start] = s
		}
		return batch, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)
	for i := start; i < end; i++ {
		i := i
		g.Go(func() error {
			s, err := d.runOne(gctx, i, seeds[i])
			if err != nil {
				return err
			}
			batch[i-start] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batch, nil
}

func (d *Driver) runOne(ctx context.Context, index int, seed int64) (montecarlo.Sample, error) {
	res, err := d.runner.Run(ctx, d.base, seed)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return montecarlo.Sample{}, err
		}
		return montecarlo.Sample{}, fmt.Errorf("run %d: %w", index, err)
	}
	return montecarlo.Sample{Index: index, Seed: seed, NationalCapacityMW: res.NationalCapacityMW}, nil
}

// ClockSeeds derives n seeds from clock in nanoseconds. Each seed is strictly
// greater than the previous one even when the clock does not advance.
func ClockSeeds(clock func() time.Time, n int) []int64 {
	seeds := make([]int64, n)
	var prev int64
	for i := range seeds {
		s := clock().UnixNano()
		if i > 0 && s <= prev {
			s = prev + 1
		}
		seeds[i] = s
		prev = s
	}
	return seeds
}
