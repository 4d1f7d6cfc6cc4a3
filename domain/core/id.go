package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// SimulationID identifies one driver invocation (one output file).
type SimulationID ID

func (id SimulationID) String() string { return ID(id).String() }

// NewSimulationID returns a fresh time-ordered simulation ID.
func NewSimulationID() SimulationID {
	return SimulationID(NewID())
}

// ParseSimulationID parses a string into SimulationID
func ParseSimulationID(s string) (SimulationID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("simulation ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("simulation ID %q: %w", s, err)
	}
	return SimulationID(s), nil
}
