package run

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"pvcapacity/domain/core"
	"pvcapacity/domain/errordist"
)

// RunFingerprint ensures deterministic replay: equal fingerprints mean the
// same site list, spec, stage order and seeds, so the samples must match.
type RunFingerprint struct {
	SiteListHash core.SiteListHash `json:"site_list_hash"`
	SpecHash     core.SpecHash     `json:"spec_hash"`
	StageOrder   string            `json:"stage_order"`
	SeedsHash    core.Hash         `json:"seeds_hash"`
	CodeVersion  string            `json:"code_version"`
	Fingerprint  core.Hash         `json:"fingerprint"` // Hash of all above
}

// NewRunFingerprint creates a fingerprint from determinism parameters
func NewRunFingerprint(siteListHash core.SiteListHash, specHash core.SpecHash,
	order []errordist.Category, seeds []int64, codeVersion string) RunFingerprint {

	stageOrder := joinOrder(order)
	seedsHash := hashSeeds(seeds)

	return RunFingerprint{
		SiteListHash: siteListHash,
		SpecHash:     specHash,
		StageOrder:   stageOrder,
		SeedsHash:    seedsHash,
		CodeVersion:  codeVersion,
		Fingerprint:  computeRunFingerprint(siteListHash, specHash, stageOrder, seedsHash, codeVersion),
	}
}

func computeRunFingerprint(siteListHash core.SiteListHash, specHash core.SpecHash,
	stageOrder string, seedsHash core.Hash, codeVersion string) core.Hash {

	data := fmt.Sprintf("site_list:%s|spec:%s|order:%s|seeds:%s|code:%s",
		siteListHash, specHash, stageOrder, seedsHash, codeVersion)

	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}

func joinOrder(order []errordist.Category) string {
	parts := make([]string, len(order))
	for i, c := range order {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

func hashSeeds(seeds []int64) core.Hash {
	var b strings.Builder
	for i, s := range seeds {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", s)
	}
	return core.NewHash([]byte(b.String()))
}
