// Package exitcodes defines the standard exit codes used by op-lanes.
package exitcodes

import (
	"errors"

	"github.com/ethereum-optimism/infra/op-lanes/types"
)

// Exit code constants used by op-lanes
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when all work units pass
// * TestFailure (1): Used when one or more work units fail
// * RuntimeErr (2): Used for runtime errors such as illegal lanes or interrupted runs
const (
	Success     = 0 // All units pass
	TestFailure = 1 // Unit failures
	RuntimeErr  = 2 // Runtime errors or interruptions
)

// FromError maps the error returned by a run to an exit code. Unit failures map to
// TestFailure unless a runtime condition is wrapped in the same error.
func FromError(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, types.ErrIllegalLane), errors.Is(err, types.ErrInterruptedWait):
		return RuntimeErr
	case types.IsUnitExecutionError(err):
		return TestFailure
	default:
		return RuntimeErr
	}
}

// FromStatus maps a run status to an exit code
func FromStatus(status types.TestStatus) int {
	switch status {
	case types.TestStatusPass, types.TestStatusSkip:
		return Success
	case types.TestStatusFail:
		return TestFailure
	default:
		return RuntimeErr
	}
}
