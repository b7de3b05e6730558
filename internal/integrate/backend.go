package integrate

import "github.com/san-kum/kinfit/internal/kinetic"

// DefaultSteps is the number of output points used by Integrate when the
// caller does not specify a resolution.
const DefaultSteps = 100

// Options carries solver tolerances and backend-specific controls. The
// zero value is not useful; start from DefaultOptions.
type Options struct {
	Atol float64
	Rtol float64

	// MaxErrFailures and MaxConvFailures bound repeated error-test and
	// Newton-convergence failures in the implicit backend. The explicit
	// backend only honours MaxErrFailures.
	MaxErrFailures  int
	MaxConvFailures int

	// Verbosity > 0 is reserved for backend diagnostics on stderr.
	Verbosity int
}

func DefaultOptions() Options {
	return Options{
		Atol:            1e-8,
		Rtol:            1e-8,
		MaxErrFailures:  7,
		MaxConvFailures: 3,
	}
}

// SteadyStateOptions configures steady-state detection. StepSize and
// MaxSteps drive the explicit backend's linear horizon schedule; TMax
// bounds the implicit backend's geometric schedule.
type SteadyStateOptions struct {
	Tolerance float64
	RelNorm   bool
	StepSize  float64
	MaxSteps  int
	TMax      float64
}

func DefaultSteadyStateOptions() SteadyStateOptions {
	return SteadyStateOptions{
		Tolerance: 1e-6,
		StepSize:  100,
		MaxSteps:  1000,
		TMax:      1e9,
	}
}

// Backend is an interchangeable ODE-solving strategy. Implementations own
// the live (t, y) pair: Integrate and IntegrateTimeCourse continue from
// where the previous call ended, Reset restores the construction-time
// initial condition.
//
// Failures are reported as sentinel errors ([kinetic.ErrSolverFailure],
// [kinetic.ErrNoSteadyState]) with a nil result; no backend-internal error
// ever propagates to callers.
type Backend interface {
	// Integrate advances to tEnd, emitting steps+1 evenly spaced output
	// points (DefaultSteps if steps <= 0).
	Integrate(tEnd float64, steps int) (*kinetic.TimeCourse, error)

	// IntegrateTimeCourse integrates through an ascending sequence of
	// explicit time points.
	IntegrateTimeCourse(points []float64) (*kinetic.TimeCourse, error)

	// Reset restores t=0 and the original initial condition.
	Reset()

	// IntegrateToSteadyState drives the system through the backend's
	// horizon schedule until successive snapshots converge.
	IntegrateToSteadyState(opts SteadyStateOptions) (*kinetic.SteadyState, error)
}

// Constructor builds a backend for a fresh simulator run. Selecting the
// backend here keeps the rest of the system free of type branching.
type Constructor func(rhs kinetic.RHS, y0 kinetic.State, opts Options) Backend

// steadyDiff computes the convergence metric between two snapshots:
// the L2 norm of (y2-y1)/y2 under relative normalisation, of y2-y1
// otherwise. The division is by the new state, matching the historical
// behaviour; a zero component in y2 yields a non-finite norm and thus
// non-convergence.
func steadyDiff(y1, y2 kinetic.State, relNorm bool) float64 {
	diff := y2.Sub(y1)
	if relNorm {
		diff = diff.Div(y2)
	}
	return diff.Norm()
}
