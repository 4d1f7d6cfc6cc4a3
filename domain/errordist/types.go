package errordist

import (
	"encoding/json"
	"fmt"
	"sort"

	"pvcapacity/domain/core"
	"pvcapacity/domain/sitelist"
)

// Category names one source of reporting error
type Category string

const (
	Decommissioned  Category = "decommissioned"
	Unreported      Category = "unreported"
	SiteUncertainty Category = "site_uncertainty"
	RevisedUp       Category = "revised_up"
	RevisedDown     Category = "revised_down"
	Offline         Category = "offline"
	StringOutage    Category = "string_outage"
	NetworkOutage   Category = "network_outage"
)

// Categories lists every known category
var Categories = []Category{
	Decommissioned,
	Unreported,
	SiteUncertainty,
	RevisedUp,
	RevisedDown,
	Offline,
	StringOutage,
	NetworkOutage,
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// DefaultOrder is the compounding order of a run. Each stage multiplies the
// capacity left by the previous one, so reordering changes the result.
var DefaultOrder = []Category{
	Decommissioned,
	SiteUncertainty,
	RevisedUp,
	RevisedDown,
	Offline,
	NetworkOutage,
}

// Slot selects which parameter of a category is drawn
type Slot string

const (
	// P1 is the probability of occurrence
	P1 Slot = "p1"
	// P2 is the effect magnitude
	P2 Slot = "p2"
)

// Kind is the family of a configured distribution
type Kind string

const (
	KindNormal    Kind = "normal"
	KindUniform   Kind = "uniform"
	KindJohnsonSU Kind = "johnson_su"
)

// Effect says how a p2 draw changes capacity
type Effect string

const (
	// EffectRelative multiplies capacity by 1 + draw
	EffectRelative Effect = "relative"
	// EffectFactor multiplies capacity by draw
	EffectFactor Effect = "factor"
	// EffectOffset adds draw to capacity
	EffectOffset Effect = "offset"
)

// Bounds is a closed numeric interval
type Bounds struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Contains reports lo <= v <= hi
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lo && v <= b.Hi
}

var (
	// DefaultNormalBounds truncates normal draws when no bounds are given
	DefaultNormalBounds = Bounds{Lo: -1, Hi: 1}
	// ProbabilityBounds truncates occurrence probabilities
	ProbabilityBounds = Bounds{Lo: 0, Hi: 1}
	// DefaultJohnsonSUBounds rejects pathological Johnson SU tails
	DefaultJohnsonSUBounds = Bounds{Lo: -100, Hi: 100}
)

// Distribution is one configured (kind, parameters) pair
type Distribution struct {
	Kind   Kind      `json:"kind"`
	Params []float64 `json:"params"`
	// Bounds overrides the kind's default bound when set
	Bounds *Bounds `json:"bounds,omitempty"`
}

// UnmarshalJSON accepts both the object form and the tuple form
// ["johnson_su", [g, d, loc, scale, [-100, 100]]] written by the config
// generator scripts.
func (d *Distribution) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err == nil {
		return d.fromTuple(tuple)
	}
	type plain Distribution
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return core.NewConfigurationError("distribution: %v", err)
	}
	*d = Distribution(p)
	return nil
}

func (d *Distribution) fromTuple(tuple []json.RawMessage) error {
	if len(tuple) < 2 || len(tuple) > 3 {
		return core.NewConfigurationError("distribution tuple must be [kind, params] or [kind, params, bounds]")
	}
	var kind string
	if err := json.Unmarshal(tuple[0], &kind); err != nil {
		return core.NewConfigurationError("distribution kind: %v", err)
	}
	d.Kind = Kind(kind)

	var raw []json.RawMessage
	if err := json.Unmarshal(tuple[1], &raw); err != nil {
		return core.NewConfigurationError("distribution params: %v", err)
	}
	for _, r := range raw {
		var f float64
		if err := json.Unmarshal(r, &f); err == nil {
			d.Params = append(d.Params, f)
			continue
		}
		var pair [2]float64
		if err := json.Unmarshal(r, &pair); err != nil {
			return core.NewConfigurationError("distribution param %s is neither a number nor a bound pair", string(r))
		}
		d.Bounds = &Bounds{Lo: pair[0], Hi: pair[1]}
	}

	if len(tuple) == 3 {
		var pair [2]float64
		if err := json.Unmarshal(tuple[2], &pair); err != nil {
			return core.NewConfigurationError("distribution bounds: %v", err)
		}
		d.Bounds = &Bounds{Lo: pair[0], Hi: pair[1]}
	}
	return nil
}

// Validate checks the parameter count for the kind
func (d Distribution) Validate() error {
	switch d.Kind {
	case KindUniform:
		if len(d.Params) != 1 {
			return fmt.Errorf("uniform takes exactly one value, got %d", len(d.Params))
		}
	case KindNormal:
		if len(d.Params) != 2 {
			return fmt.Errorf("normal takes mean and sd, got %d values", len(d.Params))
		}
		if d.Params[1] < 0 {
			return fmt.Errorf("normal sd must be >= 0, got %g", d.Params[1])
		}
	case KindJohnsonSU:
		if len(d.Params) != 4 {
			return fmt.Errorf("johnson_su takes gamma, delta, location, scale, got %d values", len(d.Params))
		}
		if d.Params[1] <= 0 || d.Params[3] <= 0 {
			return fmt.Errorf("johnson_su delta and scale must be > 0")
		}
	default:
		return fmt.Errorf("unknown distribution kind %q", d.Kind)
	}
	if d.Bounds != nil && d.Bounds.Lo > d.Bounds.Hi {
		return fmt.Errorf("bounds [%g, %g] are inverted", d.Bounds.Lo, d.Bounds.Hi)
	}
	return nil
}

// Key addresses one slot of an error distribution Spec
type Key struct {
	Category   Category
	SystemType sitelist.SystemType
	Slot       Slot
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Category, k.SystemType, k.Slot)
}

// Spec maps (category, system type, slot) to a distribution. Loaded once and
// read-only afterwards.
type Spec struct {
	Distributions map[Category]map[sitelist.SystemType]map[Slot]Distribution `json:"distributions"`
	Effects       map[Category]map[sitelist.SystemType]Effect                 `json:"effects,omitempty"`
}

// Lookup resolves one distribution
func (s *Spec) Lookup(category Category, systemType sitelist.SystemType, slot Slot) (Distribution, error) {
	byType, ok := s.Distributions[category]
	if !ok {
		return Distribution{}, core.NewMissingDistributionError(string(category), string(systemType), string(slot))
	}
	bySlot, ok := byType[systemType]
	if !ok {
		return Distribution{}, core.NewMissingDistributionError(string(category), string(systemType), string(slot))
	}
	d, ok := bySlot[slot]
	if !ok {
		return Distribution{}, core.NewMissingDistributionError(string(category), string(systemType), string(slot))
	}
	return d, nil
}

// EffectFor returns the configured effect mode, defaulting to an additive
// offset for domestic site uncertainty and a relative change otherwise.
func (s *Spec) EffectFor(category Category, systemType sitelist.SystemType) Effect {
	if byType, ok := s.Effects[category]; ok {
		if e, ok := byType[systemType]; ok {
			return e
		}
	}
	if category == SiteUncertainty && systemType == sitelist.Domestic {
		return EffectOffset
	}
	return EffectRelative
}

// RequiredSlots lists the slots the engine draws for each category
func RequiredSlots(category Category) []Slot {
	switch category {
	case SiteUncertainty, RevisedUp, RevisedDown:
		return []Slot{P1, P2}
	case Decommissioned, Offline:
		return []Slot{P1}
	default:
		// string_outage and network_outage are parameterised by run options
		return nil
	}
}

// Validate checks that every category in order resolves for both system
// types and that every configured entry is well formed.
func (s *Spec) Validate(order []Category) error {
	if s == nil || len(s.Distributions) == 0 {
		return core.NewConfigurationError("error distribution spec is empty")
	}
	for _, category := range order {
		for _, st := range sitelist.SystemTypes {
			for _, slot := range RequiredSlots(category) {
				if _, err := s.Lookup(category, st, slot); err != nil {
					return err
				}
			}
			switch e := s.EffectFor(category, st); e {
			case EffectRelative, EffectFactor, EffectOffset:
			default:
				return core.NewConfigurationError("%s/%s has unknown effect %q", category, st, e)
			}
		}
	}
	for _, key := range s.Keys() {
		d, _ := s.Lookup(key.Category, key.SystemType, key.Slot)
		if err := d.Validate(); err != nil {
			return core.NewConfigurationError("%s: %v", key, err)
		}
	}
	return nil
}

// Keys returns every configured key in a stable order
func (s *Spec) Keys() []Key {
	var keys []Key
	for c, byType := range s.Distributions {
		for st, bySlot := range byType {
			for slot := range bySlot {
				keys = append(keys, Key{Category: c, SystemType: st, Slot: slot})
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}
