// Package kinetic provides core primitives for ODE-based kinetic models.
//
// The package defines the shared vocabulary of the simulation and fitting
// subsystems:
//
//   - [State]: vector of dynamic variables (concentrations)
//   - [RHS]: right-hand side of an ODE system dy/dt = f(t, y)
//   - [TimeCourse]: parallel time points and states from an integration
//   - [SteadyState]: a settled (time, state) pair
//
// # Failure signalling
//
// Integration failures surface as sentinel errors ([ErrSolverFailure],
// [ErrNoSteadyState]) at the backend boundary and as nil results past the
// simulator. Callers cannot distinguish a solver breakdown from slow
// convergence; both mean "no usable result".
package kinetic
