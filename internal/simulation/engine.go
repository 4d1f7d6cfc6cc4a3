package simulation

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"pvcapacity/domain/core"
	"pvcapacity/domain/errordist"
	"pvcapacity/domain/sitelist"
	"pvcapacity/internal"
)

// DaysPerYear is the number of daily outage trials per record
const DaysPerYear = 365

// StringOutageParams parameterises inverter/string failures for one system type
type StringOutageParams struct {
	FailureMean  float64
	FailureSD    float64
	DurationMean float64
	DurationSD   float64
}

// EngineOptions tune the categories that are not driven by configured distributions
type EngineOptions struct {
	// Verbose logs the start and end of every stage
	Verbose bool

	// NetworkOutageFactor multiplies the capacity of NetworkOutageType records
	NetworkOutageFactor float64
	NetworkOutageType   sitelist.SystemType

	StringOutage map[sitelist.SystemType]StringOutageParams
}

// DefaultEngineOptions returns the outage parameters used in the capacity study
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		NetworkOutageFactor: 0.99,
		NetworkOutageType:   sitelist.Domestic,
		StringOutage: map[sitelist.SystemType]StringOutageParams{
			sitelist.Domestic:    {FailureMean: 0.02, FailureSD: 0.06, DurationMean: 56, DurationSD: 28},
			sitelist.NonDomestic: {FailureMean: 0.01, FailureSD: 0.03, DurationMean: 14, DurationSD: 7},
		},
	}
}

// Engine applies one error category at a time to a site list
type Engine struct {
	model  *DistributionModel
	opts   EngineOptions
	logger *internal.Logger
}

// NewEngine creates an engine drawing from model
func NewEngine(model *DistributionModel, opts EngineOptions, logger *internal.Logger) *Engine {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Engine{model: model, opts: opts, logger: logger.With("engine")}
}

// Apply mutates sl in place for one category and checks that no capacity
// went negative or stopped being finite.
func (e *Engine) Apply(category errordist.Category, sl *sitelist.SiteList, rng *rand.Rand) error {
	if e.opts.Verbose {
		e.logger.Info("stage %s start: %d records, %.3f MW", category, sl.Len(), sl.TotalCapacity())
	}

	affected := 0
	for _, st := range sitelist.SystemTypes {
		idx := sl.Indices(st)
		var (
			n   int
			err error
		)
		switch category {
		case errordist.Decommissioned:
			n, err = e.decommission(sl, idx, st, rng)
		case errordist.Offline:
			n, err = e.offline(sl, idx, st, rng)
		case errordist.StringOutage:
			n, err = e.stringOutage(sl, idx, st, rng)
		case errordist.NetworkOutage:
			n = e.networkOutage(sl, idx, st)
		case errordist.SiteUncertainty, errordist.RevisedUp, errordist.RevisedDown:
			n, err = e.perturb(category, sl, idx, st, rng)
		default:
			return core.NewConfigurationError("category %q cannot be applied to a site list", category)
		}
		if err != nil {
			return fmt.Errorf("%s/%s: %w", category, st, err)
		}
		affected += n
	}

	if err := sl.CheckNonNegative(string(category)); err != nil {
		return err
	}

	if e.opts.Verbose {
		e.logger.Info("stage %s end: %d affected, %.3f MW", category, affected, sl.TotalCapacity())
	}
	return nil
}

// occurrence draws the p1 probability for (category, st)
func (e *Engine) occurrence(category errordist.Category, st sitelist.SystemType, rng *rand.Rand) (float64, error) {
	p, err := e.model.Sample(category, st, errordist.P1, 1, &errordist.ProbabilityBounds, rng)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// perturb is the generic p1/p2 algorithm: one occurrence probability, one
// effect per record, and a uniform draw per record deciding who is hit.
func (e *Engine) perturb(category errordist.Category, sl *sitelist.SiteList, idx []int, st sitelist.SystemType, rng *rand.Rand) (int, error) {
	p, err := e.occurrence(category, st, rng)
	if err != nil {
		return 0, err
	}
	effects, err := e.model.Sample(category, st, errordist.P2, len(idx), nil, rng)
	if err != nil {
		return 0, err
	}
	mode := e.model.Spec().EffectFor(category, st)

	n := 0
	for k, i := range idx {
		if rng.Float64() >= p {
			continue
		}
		r := &sl.Records[i]
		switch mode {
		case errordist.EffectOffset:
			r.Capacity += effects[k]
		case errordist.EffectFactor:
			r.Capacity *= effects[k]
		default:
			r.Capacity *= 1 + effects[k]
		}
		n++
	}
	return n, nil
}

// decommission flags affected records; their capacity is kept but they no
// longer count toward the total.
func (e *Engine) decommission(sl *sitelist.SiteList, idx []int, st sitelist.SystemType, rng *rand.Rand) (int, error) {
	p, err := e.occurrence(errordist.Decommissioned, st, rng)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, i := range idx {
		if rng.Float64() < p {
			sl.Records[i].Decommissioned = true
			n++
		}
	}
	return n, nil
}

// offline treats p1 as a daily probability and de-rates each record by the
// fraction of days it was down. Days down are one binomial draw per record.
func (e *Engine) offline(sl *sitelist.SiteList, idx []int, st sitelist.SystemType, rng *rand.Rand) (int, error) {
	p, err := e.occurrence(errordist.Offline, st, rng)
	if err != nil {
		return 0, err
	}
	if p <= 0 {
		return 0, nil
	}
	days := distuv.Binomial{N: DaysPerYear, P: p, Src: rng}
	n := 0
	for _, i := range idx {
		down := DaysPerYear
		if p < 1 {
			down = int(days.Rand())
		}
		if down > 0 {
			sl.Records[i].Capacity *= float64(DaysPerYear-down) / DaysPerYear
			n++
		}
	}
	return n, nil
}

func (e *Engine) stringOutage(sl *sitelist.SiteList, idx []int, st sitelist.SystemType, rng *rand.Rand) (int, error) {
	params, ok := e.opts.StringOutage[st]
	if !ok {
		return 0, core.NewConfigurationError("no string outage parameters for %s", st)
	}
	if len(idx) == 0 {
		return 0, nil
	}

	failure := distuv.Normal{Mu: params.FailureMean, Sigma: params.FailureSD, Src: rng}
	n := 0
	for _, i := range idx {
		if rng.Float64() >= failure.Rand() {
			continue
		}
		d, err := TruncatedNormal(params.DurationMean, params.DurationSD, errordist.Bounds{Lo: 0, Hi: DaysPerYear}, 1, rng)
		if err != nil {
			return n, err
		}
		factor := math.Min(math.Max((DaysPerYear-d[0])/DaysPerYear, 0), 1)
		sl.Records[i].Capacity *= factor
		n++
	}
	return n, nil
}

func (e *Engine) networkOutage(sl *sitelist.SiteList, idx []int, st sitelist.SystemType) int {
	if st != e.opts.NetworkOutageType {
		return 0
	}
	for _, i := range idx {
		sl.Records[i].Capacity *= e.opts.NetworkOutageFactor
	}
	return len(idx)
}
