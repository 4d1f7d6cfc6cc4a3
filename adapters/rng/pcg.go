package rng

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"pvcapacity/domain/core"
)

// PCGAdapter implements ports.RNGPort with PCG generators. The seed selects
// the state and the stream name selects the increment, so differently named
// operations sharing a seed draw independent sequences.
type PCGAdapter struct{}

// NewPCGAdapter creates a PCG-backed RNG port
func NewPCGAdapter() *PCGAdapter {
	return &PCGAdapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (a *PCGAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewPCG(uint64(seed), hashString(name))), nil
}

// ValidateSeed regenerates the first len(expected) uniforms of the stream and
// compares them with expected.
func (a *PCGAdapter) ValidateSeed(ctx context.Context, name string, seed int64, expected []float64) error {
	r, err := a.SeededStream(ctx, name, seed)
	if err != nil {
		return err
	}
	for i, want := range expected {
		got := r.Float64()
		if math.Abs(got-want) > 1e-15 {
			return fmt.Errorf("%w: stream %s seed %d diverges at draw %d: got %v want %v",
				core.ErrInvariantViolation, name, seed, i, got, want)
		}
	}
	return nil
}

// hashString is djb2 widened to 64 bits
func hashString(s string) uint64 {
	var hash uint64 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint64(c)
	}
	return hash
}
