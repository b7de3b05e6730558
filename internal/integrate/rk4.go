package integrate

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/kinfit/internal/kinetic"
)

const rk4DefaultStep = 1e-3

// RK4 is the classic fixed-step fourth-order Runge-Kutta backend. It has
// no error control; it serves as a predictable reference for checking the
// adaptive backends on cheap, non-stiff systems.
type RK4 struct {
	rhs kinetic.RHS

	t0 float64
	y0 kinetic.State
	dt float64

	orig kinetic.State
}

// NewRK4 is a [Constructor] for the fixed-step backend. Options carry no
// tolerances for it; the step size is fixed at construction.
func NewRK4(rhs kinetic.RHS, y0 kinetic.State, opts Options) Backend {
	return &RK4{
		rhs:  rhs,
		y0:   y0.Clone(),
		orig: y0.Clone(),
		dt:   rk4DefaultStep,
	}
}

func (r *RK4) Reset() {
	r.t0 = 0
	r.y0 = r.orig.Clone()
}

func (r *RK4) Integrate(tEnd float64, steps int) (*kinetic.TimeCourse, error) {
	n := steps + 1
	if steps <= 0 {
		n = DefaultSteps
	}
	points := make([]float64, n)
	floats.Span(points, r.t0, tEnd)
	return r.IntegrateTimeCourse(points)
}

func (r *RK4) IntegrateTimeCourse(points []float64) (*kinetic.TimeCourse, error) {
	times := make([]float64, 0, len(points))
	states := make([]kinetic.State, 0, len(points))

	t := r.t0
	y := r.y0.Clone()
	for _, target := range points {
		if target > t {
			var err error
			y, err = r.advance(t, target, y)
			if err != nil {
				return nil, err
			}
			t = target
		}
		times = append(times, target)
		states = append(states, y.Clone())
	}

	r.t0 = t
	r.y0 = y
	return &kinetic.TimeCourse{Times: times, States: states}, nil
}

// IntegrateToSteadyState uses the same linear horizon schedule as the
// explicit adaptive backend.
func (r *RK4) IntegrateToSteadyState(opts SteadyStateOptions) (*kinetic.SteadyState, error) {
	r.Reset()

	y1 := r.y0.Clone()
	t := r.t0 + opts.StepSize
	for i := 0; i < opts.MaxSteps; i++ {
		tc, err := r.IntegrateTimeCourse([]float64{t})
		if err != nil {
			return nil, err
		}
		_, y2 := tc.Last()
		if steadyDiff(y1, y2, opts.RelNorm) < opts.Tolerance {
			return &kinetic.SteadyState{Time: t, State: y2.Clone()}, nil
		}
		y1 = y2
		t += opts.StepSize
	}
	return nil, kinetic.ErrNoSteadyState
}

func (r *RK4) advance(t, tEnd float64, y kinetic.State) (kinetic.State, error) {
	n := len(y)
	steps := int(math.Ceil((tEnd - t) / r.dt))
	if steps < 1 {
		steps = 1
	}
	h := (tEnd - t) / float64(steps)

	for s := 0; s < steps; s++ {
		k1 := r.rhs(t, y)

		y2 := make(kinetic.State, n)
		for i := 0; i < n; i++ {
			y2[i] = y[i] + 0.5*h*k1[i]
		}
		k2 := r.rhs(t+0.5*h, y2)

		y3 := make(kinetic.State, n)
		for i := 0; i < n; i++ {
			y3[i] = y[i] + 0.5*h*k2[i]
		}
		k3 := r.rhs(t+0.5*h, y3)

		y4 := make(kinetic.State, n)
		for i := 0; i < n; i++ {
			y4[i] = y[i] + h*k3[i]
		}
		k4 := r.rhs(t+h, y4)

		yNew := make(kinetic.State, n)
		for i := 0; i < n; i++ {
			yNew[i] = y[i] + h/6.0*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
		}
		if !yNew.IsValid() {
			return nil, kinetic.ErrSolverFailure
		}
		y = yNew
		t += h
	}
	return y, nil
}
