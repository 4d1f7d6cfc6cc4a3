package sitelist

import (
	"fmt"
	"math"
	"math/rand/v2"

	"pvcapacity/domain/core"

	"gonum.org/v1/gonum/stat/sampleuv"
)

// SystemType classifies an installation by a single capacity cutoff
type SystemType string

const (
	Domestic    SystemType = "domestic"
	NonDomestic SystemType = "non_domestic"
)

// SystemTypes lists both partitions in the order the engine visits them
var SystemTypes = []SystemType{Domestic, NonDomestic}

// ParseSystemType accepts the canonical names plus the hyphenated spelling
// used by older site-list exports.
func ParseSystemType(s string) (SystemType, error) {
	switch s {
	case "domestic":
		return Domestic, nil
	case "non_domestic", "non-domestic":
		return NonDomestic, nil
	}
	return "", core.NewConfigurationError("unknown system type %q", s)
}

// UnreportedFlag marks whether a record came from the site list or was
// synthesized to stand in for an unreported installation
type UnreportedFlag string

const (
	Original  UnreportedFlag = "original"
	Simulated UnreportedFlag = "simulated"
)

// Location is an optional pair of British National Grid and/or WGS84 coordinates
type Location struct {
	Eastings  *float64 `json:"eastings,omitempty"`
	Northings *float64 `json:"northings,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// HasGrid reports whether eastings and northings are both present
func (l Location) HasGrid() bool {
	return l.Eastings != nil && l.Northings != nil
}

// HasLatLon reports whether latitude and longitude are both present
func (l Location) HasLatLon() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// Record is one PV installation. Capacity is in MW and is mutated in place
// by the error stages of a run.
type Record struct {
	SiteID         string         `json:"site_id"`
	Capacity       float64        `json:"capacity"`
	Location       Location       `json:"location"`
	SystemType     SystemType     `json:"system_type"`
	Unreported     UnreportedFlag `json:"unreported"`
	Decommissioned bool           `json:"decommissioned"`
}

// SiteList is the in-memory collection of PV systems
type SiteList struct {
	Records []Record `json:"records"`
}

// New builds a site list from records, marking them original.
func New(records []Record) *SiteList {
	out := make([]Record, len(records))
	copy(out, records)
	for i := range out {
		if out[i].Unreported == "" {
			out[i].Unreported = Original
		}
	}
	return &SiteList{Records: out}
}

// Len returns the number of records
func (s *SiteList) Len() int {
	return len(s.Records)
}

// Classify assigns every record a system type: capacity < cutoff is domestic.
func (s *SiteList) Classify(cutoffMW float64) {
	for i := range s.Records {
		if s.Records[i].Capacity < cutoffMW {
			s.Records[i].SystemType = Domestic
		} else {
			s.Records[i].SystemType = NonDomestic
		}
	}
}

// Clone returns a deep copy. Runs mutate the clone, never the base list.
func (s *SiteList) Clone() *SiteList {
	out := make([]Record, len(s.Records))
	copy(out, s.Records)
	for i := range out {
		out[i].Location = cloneLocation(out[i].Location)
	}
	return &SiteList{Records: out}
}

// Copy returns a deep copy of the record
func (r Record) Copy() Record {
	r.Location = cloneLocation(r.Location)
	return r
}

func cloneLocation(l Location) Location {
	cp := func(p *float64) *float64 {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	return Location{
		Eastings:  cp(l.Eastings),
		Northings: cp(l.Northings),
		Latitude:  cp(l.Latitude),
		Longitude: cp(l.Longitude),
	}
}

// Indices returns the positions of records of the given system type
func (s *SiteList) Indices(systemType SystemType) []int {
	var idx []int
	for i := range s.Records {
		if s.Records[i].SystemType == systemType {
			idx = append(idx, i)
		}
	}
	return idx
}

// CountBy returns the number of records of each system type
func (s *SiteList) CountBy() map[SystemType]int {
	counts := make(map[SystemType]int, len(SystemTypes))
	for i := range s.Records {
		counts[s.Records[i].SystemType]++
	}
	return counts
}

// SampleWhere draws n distinct records matching pred, uniformly and without
// replacement. The returned indices refer to s.Records.
func (s *SiteList) SampleWhere(pred func(Record) bool, n int, label string, rng *rand.Rand) ([]int, error) {
	if n < 0 {
		return nil, core.NewConfigurationError("negative sample size %d for %s", n, label)
	}
	var eligible []int
	for i := range s.Records {
		if pred(s.Records[i]) {
			eligible = append(eligible, i)
		}
	}
	if n > len(eligible) {
		return nil, core.NewSamplingExhaustionError(label, n, len(eligible))
	}
	if n == 0 {
		return nil, nil
	}

	picks := make([]int, n)
	sampleuv.WithoutReplacement(picks, len(eligible), rng)
	out := make([]int, n)
	for i, p := range picks {
		out[i] = eligible[p]
	}
	return out, nil
}

// Append adds a record to the list
func (s *SiteList) Append(r Record) {
	s.Records = append(s.Records, r)
}

// TotalCapacity sums the capacity of every record that is not decommissioned
func (s *SiteList) TotalCapacity() float64 {
	total := 0.0
	for i := range s.Records {
		if !s.Records[i].Decommissioned {
			total += s.Records[i].Capacity
		}
	}
	return total
}

// CheckNonNegative fails on the first record whose capacity is negative or
// not finite
func (s *SiteList) CheckNonNegative(category string) error {
	for i := range s.Records {
		if !validCapacity(s.Records[i].Capacity) {
			return core.NewNegativeCapacityError(category, s.Records[i].SiteID, s.Records[i].Capacity)
		}
	}
	return nil
}

// Validate checks the records coming out of ingestion
func (s *SiteList) Validate() error {
	if len(s.Records) == 0 {
		return core.NewConfigurationError("site list is empty")
	}
	seen := make(map[string]struct{}, len(s.Records))
	for i, r := range s.Records {
		if r.SiteID == "" {
			return core.NewConfigurationError("record %d has no site id", i)
		}
		if _, dup := seen[r.SiteID]; dup {
			return core.NewConfigurationError("duplicate site id %s", r.SiteID)
		}
		seen[r.SiteID] = struct{}{}
		if !validCapacity(r.Capacity) {
			return core.NewConfigurationError("site %s has invalid capacity %g", r.SiteID, r.Capacity)
		}
	}
	return nil
}

// validCapacity is false for negative values, NaN and infinities
func validCapacity(c float64) bool {
	return c >= 0 && !math.IsInf(c, 1)
}

// SimulatedID derives the identifier of the n-th synthesized copy of a site
func SimulatedID(siteID string, n int) string {
	return fmt.Sprintf("%s#u%d", siteID, n)
}
