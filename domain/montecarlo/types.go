package montecarlo

import (
	"fmt"
	"sort"

	"pvcapacity/domain/core"
	"pvcapacity/domain/errordist"
)

// Sample is one Monte Carlo realization. Never mutated after creation.
type Sample struct {
	Index              int     `json:"index" db:"sample_index"`
	Seed               int64   `json:"seed" db:"seed"`
	NationalCapacityMW float64 `json:"national_capacity_mw" db:"national_capacity_mw"`
}

// Band is a capacity range used to synthesize unreported systems.
// Membership is MinMW <= capacity < MaxMW.
type Band struct {
	Name  string  `json:"name"`
	MinMW float64 `json:"min_mw"`
	MaxMW float64 `json:"max_mw"`
	Count int     `json:"count"`
}

// Contains reports whether capacity falls in the band
func (b Band) Contains(capacity float64) bool {
	return capacity >= b.MinMW && capacity < b.MaxMW
}

// DefaultBands keeps the literal boundaries of the installation statistics
// the counts were derived from. The names do not match the edges (10to50 ends
// at 40) and nothing covers 40-50; both are left as found.
func DefaultBands() []Band {
	return []Band{
		{Name: "0to4", MinMW: 0, MaxMW: 4},
		{Name: "4to10", MinMW: 4, MaxMW: 10},
		{Name: "10to50", MinMW: 10, MaxMW: 40},
		{Name: "50to5", MinMW: 50, MaxMW: 5000},
	}
}

// ValidateBands rejects malformed bands and returns the uncovered gaps
// between consecutive bands so callers can report them.
func ValidateBands(bands []Band) ([]Band, error) {
	seen := make(map[string]struct{}, len(bands))
	for _, b := range bands {
		if b.Name == "" {
			return nil, core.NewConfigurationError("unreported band without a name")
		}
		if _, dup := seen[b.Name]; dup {
			return nil, core.NewConfigurationError("duplicate unreported band %s", b.Name)
		}
		seen[b.Name] = struct{}{}
		if b.MinMW >= b.MaxMW {
			return nil, core.NewConfigurationError("band %s has min %g >= max %g", b.Name, b.MinMW, b.MaxMW)
		}
		if b.Count < 0 {
			return nil, core.NewConfigurationError("band %s has negative count %d", b.Name, b.Count)
		}
	}

	sorted := make([]Band, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinMW < sorted[j].MinMW })

	var gaps []Band
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.MinMW < prev.MaxMW {
			return nil, core.NewConfigurationError("bands %s and %s overlap", prev.Name, cur.Name)
		}
		if cur.MinMW > prev.MaxMW {
			gaps = append(gaps, Band{
				Name:  fmt.Sprintf("gap(%s,%s)", prev.Name, cur.Name),
				MinMW: prev.MaxMW,
				MaxMW: cur.MinMW,
			})
		}
	}
	return gaps, nil
}

// ErrorConfig is the on-disk error configuration: the distribution spec plus
// the unreported-system bands.
type ErrorConfig struct {
	errordist.Spec
	UnreportedBands []Band `json:"unreported_bands"`
}
