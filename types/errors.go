package types

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalLane is returned when work is assigned to a lane that does not exist.
	// It is a programming error and is never retried.
	ErrIllegalLane = errors.New("illegal lane")

	// ErrUnsupportedOperation is returned by recording sinks for operations that cannot be deferred
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrInterruptedWait is returned when waiting for lane completion was interrupted.
	// The wait must not be retried.
	ErrInterruptedWait = errors.New("interrupted while awaiting completion")
)

// UnitExecutionError wraps an error raised by a work unit's own body
type UnitExecutionError struct {
	UnitID string
	Lane   int
	Err    error
}

func (e *UnitExecutionError) Error() string {
	return fmt.Sprintf("unit %s on lane %d failed: %v", e.UnitID, e.Lane, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *UnitExecutionError) Unwrap() error {
	return e.Err
}

// NewUnitExecutionError creates a new UnitExecutionError
func NewUnitExecutionError(unitID string, lane int, err error) *UnitExecutionError {
	return &UnitExecutionError{UnitID: unitID, Lane: lane, Err: err}
}

// IsUnitExecutionError checks if the error is or wraps a UnitExecutionError
func IsUnitExecutionError(err error) bool {
	var unitErr *UnitExecutionError
	return err != nil && errors.As(err, &unitErr)
}
