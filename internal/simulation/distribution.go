package simulation

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"pvcapacity/domain/core"
	"pvcapacity/domain/errordist"
	"pvcapacity/domain/sitelist"
)

// DefaultJohnsonSURetries caps redraws of a single out-of-bound Johnson SU value
const DefaultJohnsonSURetries = 1000

// johnsonSUScale converts fitted percentages to fractions
const johnsonSUScale = 100.0

// DistributionModel draws error parameters from an immutable spec. It holds
// no random state; every draw consumes the generator the caller passes in.
type DistributionModel struct {
	spec    *errordist.Spec
	retries int
}

// NewDistributionModel creates a model over spec. A retries value <= 0
// selects DefaultJohnsonSURetries.
func NewDistributionModel(spec *errordist.Spec, retries int) *DistributionModel {
	if retries <= 0 {
		retries = DefaultJohnsonSURetries
	}
	return &DistributionModel{spec: spec, retries: retries}
}

// Spec returns the distributions the model draws from
func (m *DistributionModel) Spec() *errordist.Spec {
	return m.spec
}

// Sample draws size values for (category, systemType, slot).
//
// bounds truncates normal draws and bounds Johnson SU rejection; nil falls
// back to the distribution's configured bounds and then to the kind default.
func (m *DistributionModel) Sample(
	category errordist.Category,
	systemType sitelist.SystemType,
	slot errordist.Slot,
	size int,
	bounds *errordist.Bounds,
	rng *rand.Rand,
) ([]float64, error) {
	if size < 0 {
		return nil, core.NewConfigurationError("negative sample size %d for %s/%s/%s", size, category, systemType, slot)
	}
	d, err := m.spec.Lookup(category, systemType, slot)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, core.NewConfigurationError("%s/%s/%s: %v", category, systemType, slot, err)
	}

	switch d.Kind {
	case errordist.KindUniform:
		out := make([]float64, size)
		for i := range out {
			out[i] = d.Params[0]
		}
		return out, nil

	case errordist.KindNormal:
		b := resolveBounds(bounds, d.Bounds, errordist.DefaultNormalBounds)
		out, err := TruncatedNormal(d.Params[0], d.Params[1], b, size, rng)
		if err != nil {
			return nil, fmt.Errorf("%s/%s/%s: %w", category, systemType, slot, err)
		}
		return out, nil

	case errordist.KindJohnsonSU:
		b := resolveBounds(bounds, d.Bounds, errordist.DefaultJohnsonSUBounds)
		return m.johnsonSU(category, systemType, d.Params, b, size, rng)
	}
	return nil, core.NewConfigurationError("unknown distribution kind %q", d.Kind)
}

func resolveBounds(explicit, configured *errordist.Bounds, fallback errordist.Bounds) errordist.Bounds {
	if explicit != nil {
		return *explicit
	}
	if configured != nil {
		return *configured
	}
	return fallback
}

// TruncatedNormal draws size values from Normal(mean, sd) restricted to b by
// inverting the CDF over [CDF(lo), CDF(hi)]. Every value lies in b.
func TruncatedNormal(mean, sd float64, b errordist.Bounds, size int, rng *rand.Rand) ([]float64, error) {
	if b.Lo > b.Hi {
		return nil, core.NewConfigurationError("bounds [%g, %g] are inverted", b.Lo, b.Hi)
	}
	out := make([]float64, size)
	if sd == 0 {
		if !b.Contains(mean) {
			return nil, core.NewConfigurationError("degenerate normal at %g lies outside [%g, %g]", mean, b.Lo, b.Hi)
		}
		for i := range out {
			out[i] = mean
		}
		return out, nil
	}

	n := distuv.Normal{Mu: mean, Sigma: sd}
	lo, hi := n.CDF(b.Lo), n.CDF(b.Hi)
	if hi-lo <= 0 {
		return nil, core.NewConfigurationError("normal(%g, %g) has no mass in [%g, %g]", mean, sd, b.Lo, b.Hi)
	}
	u := distuv.Uniform{Min: lo, Max: hi, Src: rng}
	for i := range out {
		v := n.Quantile(u.Rand())
		// floating error at the tails can step just past an edge
		out[i] = math.Min(math.Max(v, b.Lo), b.Hi)
	}
	return out, nil
}

// johnsonSU draws x = loc + scale*sinh((z-gamma)/delta) and redraws values
// outside b. Accepted values are returned as fractions.
func (m *DistributionModel) johnsonSU(
	category errordist.Category,
	systemType sitelist.SystemType,
	params []float64,
	b errordist.Bounds,
	size int,
	rng *rand.Rand,
) ([]float64, error) {
	gamma, delta, loc, scale := params[0], params[1], params[2], params[3]
	z := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}

	out := make([]float64, size)
	for i := range out {
		accepted := false
		for attempt := 0; attempt < m.retries; attempt++ {
			x := loc + scale*math.Sinh((z.Rand()-gamma)/delta)
			if b.Contains(x) {
				out[i] = x / johnsonSUScale
				accepted = true
				break
			}
		}
		if !accepted {
			return nil, core.NewRetryExhaustedError(string(category), string(systemType), m.retries, b.Lo, b.Hi)
		}
	}
	return out, nil
}
