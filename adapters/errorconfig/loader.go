package errorconfig

import (
	"bytes"
	"encoding/json"
	"os"

	"pvcapacity/domain/core"
	"pvcapacity/domain/errordist"
	"pvcapacity/domain/montecarlo"
	"pvcapacity/domain/sitelist"
	"pvcapacity/internal"
)

// Loader reads error configurations from JSON files. Two layouts are
// accepted: the full document with "distributions", "effects" and
// "unreported_bands", and the bare category map written by the older config
// generator, which gets the default bands with zero counts.
type Loader struct {
	logger *internal.Logger
}

// NewLoader creates a JSON error config loader
func NewLoader() *Loader {
	return &Loader{logger: internal.DefaultLogger.With("errorconfig")}
}

// LoadErrorConfig reads and decodes path
func (l *Loader) LoadErrorConfig(path string) (*montecarlo.ErrorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewConfigurationError("error config %s: %v", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	l.logger.Info("error config %s: %d distributions, %d unreported bands", path, len(cfg.Keys()), len(cfg.UnreportedBands))
	return cfg, nil
}

// Parse decodes an error configuration document
func Parse(data []byte) (*montecarlo.ErrorConfig, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, core.NewConfigurationError("error config is not a JSON object: %v", err)
	}

	cfg := &montecarlo.ErrorConfig{}
	if _, full := top["distributions"]; full {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, core.NewConfigurationError("error config: %v", err)
		}
	} else {
		var dists map[errordist.Category]map[sitelist.SystemType]map[errordist.Slot]errordist.Distribution
		if err := json.Unmarshal(data, &dists); err != nil {
			return nil, core.NewConfigurationError("error config: %v", err)
		}
		cfg.Distributions = dists
		cfg.UnreportedBands = montecarlo.DefaultBands()
	}

	for c := range cfg.Distributions {
		if !c.Valid() {
			return nil, core.NewConfigurationError("error config: unknown category %q", c)
		}
		for st := range cfg.Distributions[c] {
			if parsed, err := sitelist.ParseSystemType(string(st)); err != nil || parsed != st {
				return nil, core.NewConfigurationError("error config: %s: system type must be one of %v, got %q", c, sitelist.SystemTypes, st)
			}
		}
	}
	return cfg, nil
}
