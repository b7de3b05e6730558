package kinetic

import "math"

// State is an ordered vector of dynamic variables (concentrations) at a
// point in time. Ordering is fixed by the model for the lifetime of a
// simulation.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Norm returns the Euclidean (L2) norm.
func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] - other[i]
	}
	return result
}

// Div divides elementwise by other. A zero in other produces Inf or NaN in
// the result; callers relying on Norm will then see a non-finite value.
func (s State) Div(other State) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] / other[i]
	}
	return result
}

// RHS is the right-hand side of an ODE system dy/dt = f(t, y). It must be
// free of side effects so backends can evaluate it repeatedly.
type RHS func(t float64, y State) State

// TimeCourse holds parallel time points and states produced by an
// integration call.
type TimeCourse struct {
	Times  []float64
	States []State
}

// Last returns the final time point and state of the trajectory.
func (tc *TimeCourse) Last() (float64, State) {
	n := len(tc.Times)
	return tc.Times[n-1], tc.States[n-1]
}

// SteadyState is the settled point found by steady-state detection.
type SteadyState struct {
	Time  float64
	State State
}
