package testkit

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"pvcapacity/domain/core"
	"pvcapacity/domain/errordist"
	"pvcapacity/domain/montecarlo"
	"pvcapacity/domain/run"
	"pvcapacity/domain/sitelist"
)

// DefaultCutoffMW splits domestic from non-domestic systems in fixtures
const DefaultCutoffMW = 10.0

// ScenarioSiteList returns three classified sites of 2, 15 and 60 MW
func ScenarioSiteList() *sitelist.SiteList {
	sl := sitelist.New([]sitelist.Record{
		{SiteID: "site-a", Capacity: 2},
		{SiteID: "site-b", Capacity: 15},
		{SiteID: "site-c", Capacity: 60},
	})
	sl.Classify(DefaultCutoffMW)
	return sl
}

// SyntheticSiteList generates n classified sites spread over the default
// unreported bands. The same seed yields the same list.
func SyntheticSiteList(n int, seed int64) *sitelist.SiteList {
	r := rand.New(rand.NewPCG(uint64(seed), 0))
	records := make([]sitelist.Record, n)
	for i := range records {
		var capacity float64
		switch u := r.Float64(); {
		case u < 0.7:
			capacity = r.Float64() * 4
		case u < 0.85:
			capacity = 4 + r.Float64()*6
		case u < 0.95:
			capacity = 10 + r.Float64()*30
		default:
			capacity = 50 + r.Float64()*950
		}
		records[i] = sitelist.Record{SiteID: fmt.Sprintf("site-%05d", i), Capacity: capacity}
	}
	sl := sitelist.New(records)
	sl.Classify(DefaultCutoffMW)
	return sl
}

func uniform(v float64) errordist.Distribution {
	return errordist.Distribution{Kind: errordist.KindUniform, Params: []float64{v}}
}

func normal(mean, sd float64) errordist.Distribution {
	return errordist.Distribution{Kind: errordist.KindNormal, Params: []float64{mean, sd}}
}

// SpecBuilder assembles an errordist.Spec for tests
type SpecBuilder struct {
	spec *errordist.Spec
}

// NewSpecBuilder starts from a spec in which every default stage has zero
// probability of occurring.
func NewSpecBuilder() *SpecBuilder {
	b := &SpecBuilder{spec: &errordist.Spec{
		Distributions: map[errordist.Category]map[sitelist.SystemType]map[errordist.Slot]errordist.Distribution{},
		Effects:       map[errordist.Category]map[sitelist.SystemType]errordist.Effect{},
	}}
	for _, c := range errordist.DefaultOrder {
		for _, slot := range errordist.RequiredSlots(c) {
			for _, st := range sitelist.SystemTypes {
				b.Set(c, st, slot, uniform(0))
			}
		}
	}
	return b
}

// Set configures one slot
func (b *SpecBuilder) Set(c errordist.Category, st sitelist.SystemType, slot errordist.Slot, d errordist.Distribution) *SpecBuilder {
	if b.spec.Distributions[c] == nil {
		b.spec.Distributions[c] = map[sitelist.SystemType]map[errordist.Slot]errordist.Distribution{}
	}
	if b.spec.Distributions[c][st] == nil {
		b.spec.Distributions[c][st] = map[errordist.Slot]errordist.Distribution{}
	}
	b.spec.Distributions[c][st][slot] = d
	return b
}

// SetBoth configures one slot for both system types
func (b *SpecBuilder) SetBoth(c errordist.Category, slot errordist.Slot, d errordist.Distribution) *SpecBuilder {
	for _, st := range sitelist.SystemTypes {
		b.Set(c, st, slot, d)
	}
	return b
}

// Uniform configures a constant for both system types
func (b *SpecBuilder) Uniform(c errordist.Category, slot errordist.Slot, v float64) *SpecBuilder {
	return b.SetBoth(c, slot, uniform(v))
}

// Normal configures a truncated normal for both system types
func (b *SpecBuilder) Normal(c errordist.Category, slot errordist.Slot, mean, sd float64) *SpecBuilder {
	return b.SetBoth(c, slot, normal(mean, sd))
}

// Effect overrides the effect mode of one pair
func (b *SpecBuilder) Effect(c errordist.Category, st sitelist.SystemType, e errordist.Effect) *SpecBuilder {
	if b.spec.Effects[c] == nil {
		b.spec.Effects[c] = map[sitelist.SystemType]errordist.Effect{}
	}
	b.spec.Effects[c][st] = e
	return b
}

// Build returns the built Spec
func (b *SpecBuilder) Build() *errordist.Spec {
	return b.spec
}

// ZeroSpec is a spec under which no default stage changes anything
func ZeroSpec() *errordist.Spec {
	return NewSpecBuilder().Build()
}

// StudySpec mirrors the distributions of configs/capacity_error.json
func StudySpec() *errordist.Spec {
	const domestic, nonDomestic = 964926.0, 33315.0
	jsu := errordist.Distribution{
		Kind:   errordist.KindJohnsonSU,
		Params: []float64{0.245073, 0.6974654, 3.6488511, 8.3220805},
		Bounds: &errordist.Bounds{Lo: -100, Hi: 100},
	}
	return NewSpecBuilder().
		Set(errordist.Decommissioned, sitelist.Domestic, errordist.P1, normal(1000/domestic, 300/domestic)).
		Set(errordist.Decommissioned, sitelist.NonDomestic, errordist.P1, normal(100/nonDomestic, 30/nonDomestic)).
		Set(errordist.RevisedUp, sitelist.Domestic, errordist.P1, normal(10000/domestic, 3000/domestic)).
		Set(errordist.RevisedUp, sitelist.NonDomestic, errordist.P1, normal(1000/nonDomestic, 300/nonDomestic)).
		Normal(errordist.RevisedUp, errordist.P2, 0.4, 0.1).
		Set(errordist.RevisedDown, sitelist.Domestic, errordist.P1, normal(10000/domestic, 3000/domestic)).
		Set(errordist.RevisedDown, sitelist.NonDomestic, errordist.P1, normal(1000/nonDomestic, 300/nonDomestic)).
		Normal(errordist.RevisedDown, errordist.P2, -0.2, 0.1).
		Set(errordist.SiteUncertainty, sitelist.Domestic, errordist.P1, uniform(1)).
		Set(errordist.SiteUncertainty, sitelist.Domestic, errordist.P2, normal(0.5, 0.2)).
		Set(errordist.SiteUncertainty, sitelist.NonDomestic, errordist.P1, uniform(437.0/705.0)).
		Set(errordist.SiteUncertainty, sitelist.NonDomestic, errordist.P2, jsu).
		Set(errordist.Offline, sitelist.Domestic, errordist.P1, normal(0.1, 0.03)).
		Set(errordist.Offline, sitelist.NonDomestic, errordist.P1, normal(0.015, 0.006)).
		Build()
}

// SmallBands returns bands with counts that a SyntheticSiteList of a few
// hundred records can satisfy
func SmallBands() []montecarlo.Band {
	bands := montecarlo.DefaultBands()
	counts := []int{5, 3, 2, 1}
	for i := range bands {
		bands[i].Count = counts[i]
	}
	return bands
}

// MemorySink is an in-memory ports.SampleSink
type MemorySink struct {
	mu       sync.Mutex
	claimed  map[string]bool
	current  string
	Batches  map[string][][]montecarlo.Sample
	Manifest map[string]*run.Manifest
	Closed   int
	// FailAppendAfter makes Append fail once this many batches were written; 0 disables
	FailAppendAfter int
}

// NewMemorySink creates an empty sink
func NewMemorySink() *MemorySink {
	return &MemorySink{
		claimed:  map[string]bool{},
		Batches:  map[string][][]montecarlo.Sample{},
		Manifest: map[string]*run.Manifest{},
	}
}

func (m *MemorySink) Create(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimed[name] {
		return core.NewOutputCollisionError(name)
	}
	m.claimed[name] = true
	m.current = name
	return nil
}

func (m *MemorySink) WriteManifest(man *run.Manifest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Manifest[m.current] = man
	return nil
}

func (m *MemorySink) Append(samples []montecarlo.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAppendAfter > 0 && len(m.Batches[m.current]) >= m.FailAppendAfter {
		return fmt.Errorf("sink full")
	}
	m.Batches[m.current] = append(m.Batches[m.current], append([]montecarlo.Sample(nil), samples...))
	return nil
}

func (m *MemorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed++
	return nil
}

// Samples flattens the batches written under name
func (m *MemorySink) Samples(name string) []montecarlo.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []montecarlo.Sample
	for _, b := range m.Batches[name] {
		out = append(out, b...)
	}
	return out
}
