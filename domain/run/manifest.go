package run

import (
	"pvcapacity/domain/core"
	"pvcapacity/domain/errordist"
)

// Manifest is the record written next to a Monte Carlo output. It names
// every input needed to replay the output from its seeds.
type Manifest struct {
	SimulationID core.SimulationID    `json:"simulation_id"`
	OutputName   string               `json:"output_name"`
	Runs         int                  `json:"runs"`
	Seeds        []int64              `json:"seeds"`
	SeedSource   string               `json:"seed_source"` // "supplied" or "clock"
	CutoffMW     float64              `json:"cutoff_mw"`
	StageOrder   []errordist.Category `json:"stage_order"`
	SiteCount    int                  `json:"site_count"`
	CodeVersion  string               `json:"code_version"`
	Fingerprint  RunFingerprint       `json:"fingerprint"`
	CreatedAt    core.Timestamp       `json:"created_at"`
}

// NewManifest creates a manifest for one driver invocation
func NewManifest(
	simulationID core.SimulationID,
	outputName string,
	seeds []int64,
	seedSource string,
	cutoffMW float64,
	order []errordist.Category,
	siteCount int,
	siteListHash core.SiteListHash,
	specHash core.SpecHash,
	codeVersion string,
) *Manifest {
	return &Manifest{
		SimulationID: simulationID,
		OutputName:   outputName,
		Runs:         len(seeds),
		Seeds:        seeds,
		SeedSource:   seedSource,
		CutoffMW:     cutoffMW,
		StageOrder:   order,
		SiteCount:    siteCount,
		CodeVersion:  codeVersion,
		Fingerprint:  NewRunFingerprint(siteListHash, specHash, order, seeds, codeVersion),
		CreatedAt:    core.Now(),
	}
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.SimulationID).IsEmpty() {
		return core.NewConfigurationError("run_manifest: simulation_id cannot be empty")
	}
	if m.OutputName == "" {
		return core.NewConfigurationError("run_manifest: output_name cannot be empty")
	}
	if m.Runs != len(m.Seeds) {
		return core.NewConfigurationError("run_manifest: %d runs but %d seeds", m.Runs, len(m.Seeds))
	}
	if m.Fingerprint.SiteListHash == "" {
		return core.NewConfigurationError("run_manifest: site_list_hash cannot be empty")
	}
	if m.Fingerprint.SpecHash == "" {
		return core.NewConfigurationError("run_manifest: spec_hash cannot be empty")
	}
	if m.CodeVersion == "" {
		return core.NewConfigurationError("run_manifest: code_version cannot be empty")
	}
	return nil
}

// CheckInputs reports whether the site list and spec hashes are the ones
// the output was produced from. Replaying against other inputs would yield
// different samples.
func (m *Manifest) CheckInputs(siteListHash core.SiteListHash, specHash core.SpecHash) error {
	if m.Fingerprint.SiteListHash != siteListHash {
		return core.NewConfigurationError("output %s was produced from another site list (%s, now %s)",
			m.OutputName, core.Hash(m.Fingerprint.SiteListHash).Short(), core.Hash(siteListHash).Short())
	}
	if m.Fingerprint.SpecHash != specHash {
		return core.NewConfigurationError("output %s was produced from another error configuration (%s, now %s)",
			m.OutputName, core.Hash(m.Fingerprint.SpecHash).Short(), core.Hash(specHash).Short())
	}
	return nil
}
