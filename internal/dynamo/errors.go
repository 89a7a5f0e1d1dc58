package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for geodesic operations.
var (
	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrStepTooSmall indicates adaptive step became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive step below minimum")

	// ErrTooManySteps indicates the step budget of a single leg ran out.
	ErrTooManySteps = errors.New("dynamo: step budget exhausted")

	// ErrDimensionMismatch indicates mismatched batch or grid shapes.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrDirection indicates an extension against the direction of the record.
	ErrDirection = errors.New("dynamo: extension opposes trajectory direction")
)

// SimulationError wraps an error with the element and parameter it occurred at.
type SimulationError struct {
	Element int
	Lambda  float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("element %d (lambda=%.6g): %v", e.Element, e.Lambda, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
