package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// ErrConfiguration covers a missing or malformed distribution spec,
	// site-list schema or driver argument. Never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvariantViolation is raised for a negative capacity or a rejection
	// sampler that cannot satisfy its bound within the retry cap.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrOutputCollision is raised before any run when the output identity
	// already exists.
	ErrOutputCollision = errors.New("output collision")

	// ErrSamplingExhaustion is raised when more records are requested from a
	// capacity band than it holds.
	ErrSamplingExhaustion = errors.New("sampling exhaustion")
)

// Error constructors with context
func NewConfigurationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func NewMissingDistributionError(category, systemType, slot string) error {
	return fmt.Errorf("%w: no distribution for %s/%s/%s", ErrConfiguration, category, systemType, slot)
}

func NewNegativeCapacityError(category, siteID string, capacity float64) error {
	return fmt.Errorf("%w: capacity of site %s is %g after %s", ErrInvariantViolation, siteID, capacity, category)
}

func NewRetryExhaustedError(category, systemType string, attempts int, lo, hi float64) error {
	return fmt.Errorf("%w: %s/%s johnson_su draw outside [%g, %g] after %d attempts",
		ErrInvariantViolation, category, systemType, lo, hi, attempts)
}

func NewOutputCollisionError(name string) error {
	return fmt.Errorf("%w: output %q already exists, choose a new output name", ErrOutputCollision, name)
}

func NewSamplingExhaustionError(band string, requested, eligible int) error {
	return fmt.Errorf("%w: band %s requested %d records but only %d are eligible",
		ErrSamplingExhaustion, band, requested, eligible)
}

// Error checking helpers
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

func IsOutputCollision(err error) bool {
	return errors.Is(err, ErrOutputCollision)
}

func IsSamplingExhaustion(err error) bool {
	return errors.Is(err, ErrSamplingExhaustion)
}
