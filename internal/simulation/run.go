package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"pvcapacity/domain/core"
	"pvcapacity/domain/errordist"
	"pvcapacity/domain/montecarlo"
	"pvcapacity/domain/sitelist"
	"pvcapacity/internal"
	"pvcapacity/ports"
)

// RunStream names the generator stream of a simulation run
const RunStream = "capacity_run"

// Result is one realization: the seed, the national total and the realized
// site list it was summed from.
type Result struct {
	Seed               int64
	NationalCapacityMW float64
	SiteList           *sitelist.SiteList
	Added              map[string]int
}

// RunnerOptions configure a Runner
type RunnerOptions struct {
	Order            []errordist.Category
	Bands            []montecarlo.Band
	Engine           EngineOptions
	JohnsonSURetries int
}

// Runner executes single simulation runs against an immutable spec
type Runner struct {
	engine *Engine
	order  []errordist.Category
	bands  []montecarlo.Band
	rng    ports.RNGPort
	logger *internal.Logger
}

// NewRunner validates the error distributions against the stage order and the bands, and
// returns a runner. Missing distributions are reported here, before any run.
func NewRunner(spec *errordist.Spec, rng ports.RNGPort, opts RunnerOptions, logger *internal.Logger) (*Runner, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if rng == nil {
		return nil, core.NewConfigurationError("runner needs a random number source")
	}
	order := opts.Order
	if len(order) == 0 {
		order = errordist.DefaultOrder
	}
	seen := make(map[errordist.Category]bool, len(order))
	for _, c := range order {
		if !c.Valid() {
			return nil, core.NewConfigurationError("unknown category %q in stage order", c)
		}
		if c == errordist.Unreported {
			return nil, core.NewConfigurationError("%s is applied through unreported bands, not the stage order", c)
		}
		if seen[c] {
			return nil, core.NewConfigurationError("category %s appears twice in the stage order", c)
		}
		seen[c] = true
	}
	if err := spec.Validate(order); err != nil {
		return nil, err
	}
	gaps, err := montecarlo.ValidateBands(opts.Bands)
	if err != nil {
		return nil, err
	}
	for _, g := range gaps {
		logger.Warn("capacities in [%g, %g) MW are not covered by any unreported band (%s)", g.MinMW, g.MaxMW, g.Name)
	}

	return &Runner{
		engine: NewEngine(NewDistributionModel(spec, opts.JohnsonSURetries), opts.Engine, logger),
		order:  append([]errordist.Category(nil), order...),
		bands:  append([]montecarlo.Band(nil), opts.Bands...),
		rng:    rng,
		logger: logger.With("run"),
	}, nil
}

// Order returns the stage order of the runner
func (r *Runner) Order() []errordist.Category {
	return append([]errordist.Category(nil), r.order...)
}

// Run produces one realization from base, which is left untouched. The same
// seed always yields the same result.
func (r *Runner) Run(ctx context.Context, base *sitelist.SiteList, seed int64) (*Result, error) {
	rng, err := r.rng.SeededStream(ctx, RunStream, seed)
	if err != nil {
		return nil, err
	}

	sl := base.Clone()
	added, err := Augment(sl, r.bands, rng)
	if err != nil {
		return nil, fmt.Errorf("seed %d: %w", seed, err)
	}

	for _, category := range r.order {
		if err := r.engine.Apply(category, sl, rng); err != nil {
			return nil, fmt.Errorf("seed %d: %w", seed, err)
		}
	}

	total := sl.TotalCapacity()
	if !(total >= 0) || math.IsInf(total, 1) {
		return nil, fmt.Errorf("seed %d: %w", seed, core.NewNegativeCapacityError("total", "national", total))
	}
	r.logger.Debug("seed %d: %.3f MW from %d records", seed, total, sl.Len())

	return &Result{Seed: seed, NationalCapacityMW: total, SiteList: sl, Added: added}, nil
}

// Augment synthesizes unreported systems: for each band it samples Count
// original records in the band without replacement and appends copies marked
// simulated. Bands are processed in the given order.
func Augment(sl *sitelist.SiteList, bands []montecarlo.Band, rng *rand.Rand) (map[string]int, error) {
	added := make(map[string]int, len(bands))
	serial := 0
	for _, band := range bands {
		b := band
		picks, err := sl.SampleWhere(func(rec sitelist.Record) bool {
			return rec.Unreported == sitelist.Original && b.Contains(rec.Capacity)
		}, b.Count, b.Name, rng)
		if err != nil {
			return nil, err
		}
		for _, i := range picks {
			c := sl.Records[i].Copy()
			serial++
			c.SiteID = sitelist.SimulatedID(c.SiteID, serial)
			c.Unreported = sitelist.Simulated
			c.Decommissioned = false
			sl.Append(c)
		}
		added[b.Name] = len(picks)
	}
	return added, nil
}

// Replay regenerates the realization behind a stored sample. The total must
// reproduce exactly; a mismatch means the inputs or the code changed.
func (r *Runner) Replay(ctx context.Context, base *sitelist.SiteList, s montecarlo.Sample) (*Result, error) {
	res, err := r.Run(ctx, base, s.Seed)
	if err != nil {
		return nil, err
	}
	if res.NationalCapacityMW != s.NationalCapacityMW {
		return nil, fmt.Errorf("%w: seed %d replays to %.6f MW, sample %d holds %.6f MW",
			core.ErrInvariantViolation, s.Seed, res.NationalCapacityMW, s.Index, s.NationalCapacityMW)
	}
	return res, nil
}
