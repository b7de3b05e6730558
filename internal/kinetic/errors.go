package kinetic

import "errors"

// Domain errors for integration operations. These never cross the
// simulator boundary; the simulator converts them to nil results.
var (
	// ErrSolverFailure indicates the underlying solver rejected the step
	// budget or broke down numerically.
	ErrSolverFailure = errors.New("kinetic: solver failure")

	// ErrNoSteadyState indicates the horizon schedule was exhausted before
	// the convergence criterion was met.
	ErrNoSteadyState = errors.New("kinetic: no steady state within bounds")

	// ErrStepTooSmall indicates the adaptive timestep fell below minimum.
	ErrStepTooSmall = errors.New("kinetic: adaptive timestep below minimum")

	// ErrDimensionMismatch indicates mismatched state/model dimensions.
	ErrDimensionMismatch = errors.New("kinetic: dimension mismatch between state and model")
)
