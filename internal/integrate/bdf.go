package integrate

import (
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/kinfit/internal/kinetic"
)

// BDF coefficients: y_n = sum_j alpha[j]*y_{n-1-j} + beta*h*f(t_n, y_n),
// indexed by order 1..5.
var (
	bdfAlpha = [6][]float64{
		nil,
		{1},
		{4.0 / 3.0, -1.0 / 3.0},
		{18.0 / 11.0, -9.0 / 11.0, 2.0 / 11.0},
		{48.0 / 25.0, -36.0 / 25.0, 16.0 / 25.0, -3.0 / 25.0},
		{300.0 / 137.0, -300.0 / 137.0, 200.0 / 137.0, -75.0 / 137.0, 12.0 / 137.0},
	}
	bdfBeta = [6]float64{0, 1, 2.0 / 3.0, 6.0 / 11.0, 12.0 / 25.0, 60.0 / 137.0}
)

const (
	bdfMaxOrder      = 5
	newtonMaxIters   = 4
	geomSchedulePts  = 3
	geomScheduleFrom = 1000.0
)

// BDF is the stiff implicit backend: a variable-order backward
// differentiation formula (orders 1-5) with modified-Newton iteration,
// finite-difference Jacobians and LU linear solves. Stiff kinetics that
// defeat the explicit backend integrate efficiently here, at the cost of
// a Jacobian factorisation per refresh.
type BDF struct {
	rhs  kinetic.RHS
	opts Options

	t0 float64
	y0 kinetic.State

	// orig is the construction-time snapshot used by Reset.
	orig kinetic.State

	// integration state: step size, current order and the uniform-step
	// history y_{n-1}, y_{n-2}, ... that the formula differentiates.
	h       float64
	order   int
	history []kinetic.State

	lu       mat.LU
	jacFresh bool
}

// NewBDF is a [Constructor] for the stiff implicit backend.
func NewBDF(rhs kinetic.RHS, y0 kinetic.State, opts Options) Backend {
	b := &BDF{
		rhs:  rhs,
		opts: opts,
		y0:   y0.Clone(),
		orig: y0.Clone(),
	}
	b.restart(1e-4)
	return b
}

func (b *BDF) Reset() {
	b.t0 = 0
	b.y0 = b.orig.Clone()
	b.restart(1e-4)
}

// restart drops the step history, falling back to order 1. Required after
// any step-size change since the history is only valid on a uniform grid.
func (b *BDF) restart(h float64) {
	b.h = h
	b.order = 1
	b.history = b.history[:0]
	b.jacFresh = false
}

func (b *BDF) Integrate(tEnd float64, steps int) (*kinetic.TimeCourse, error) {
	n := steps + 1
	if steps <= 0 {
		n = DefaultSteps
	}
	points := make([]float64, n)
	floats.Span(points, b.t0, tEnd)
	return b.IntegrateTimeCourse(points)
}

func (b *BDF) IntegrateTimeCourse(points []float64) (*kinetic.TimeCourse, error) {
	times := make([]float64, 0, len(points))
	states := make([]kinetic.State, 0, len(points))

	t := b.t0
	y := b.y0.Clone()
	for _, target := range points {
		if target > t {
			var err error
			y, err = b.advance(t, target, y)
			if err != nil {
				if b.opts.Verbosity > 0 {
					fmt.Fprintf(os.Stderr, "bdf: integration failed at t=%g: %v\n", t, err)
				}
				return nil, err
			}
			t = target
		}
		times = append(times, target)
		states = append(states, y.Clone())
	}

	b.t0 = t
	b.y0 = y
	return &kinetic.TimeCourse{Times: times, States: states}, nil
}

// IntegrateToSteadyState probes a 3-point geometric progression of
// horizons from 1000 up to TMax, comparing the last two trajectory rows
// after each jump. Implicit solvers take large horizons cheaply, so the
// schedule is coarse by design.
func (b *BDF) IntegrateToSteadyState(opts SteadyStateOptions) (*kinetic.SteadyState, error) {
	b.Reset()

	schedule := make([]float64, geomSchedulePts)
	floats.LogSpan(schedule, geomScheduleFrom, opts.TMax)
	for _, tEnd := range schedule {
		tc, err := b.Integrate(tEnd, 0)
		if err != nil {
			return nil, err
		}
		n := len(tc.States)
		y1, y2 := tc.States[n-2], tc.States[n-1]
		if steadyDiff(y1, y2, opts.RelNorm) < opts.Tolerance {
			return &kinetic.SteadyState{Time: tc.Times[n-1], State: y2.Clone()}, nil
		}
	}
	return nil, kinetic.ErrNoSteadyState
}

// advance integrates from t to tEnd, adapting step size and order.
func (b *BDF) advance(t, tEnd float64, y kinetic.State) (kinetic.State, error) {
	errFailures := 0
	convFailures := 0

	for t < tEnd {
		h := b.h
		truncated := false
		if h > tEnd-t {
			h, truncated = tEnd-t, true
		}

		yNew, converged := b.newtonStep(t+h, y, h)
		if !converged {
			convFailures++
			if convFailures > b.opts.MaxConvFailures {
				return nil, kinetic.ErrSolverFailure
			}
			b.restart(h * 0.25)
			if b.h < minStep {
				return nil, kinetic.ErrStepTooSmall
			}
			continue
		}

		errNorm := b.errorEstimate(t, h, y, yNew)
		if errNorm > 1 || !yNew.IsValid() {
			errFailures++
			if errFailures > b.opts.MaxErrFailures {
				return nil, kinetic.ErrSolverFailure
			}
			b.restart(h * 0.25)
			if b.h < minStep {
				return nil, kinetic.ErrStepTooSmall
			}
			continue
		}

		errFailures = 0
		convFailures = 0

		b.pushHistory(y)
		if b.order < bdfMaxOrder && len(b.history) >= b.order+1 {
			b.order++
		}
		t += h
		y = yNew

		// Grow the step only on comfortable accepts; a growth restarts
		// the uniform-grid history so it must pay for itself.
		if !truncated && errNorm < 0.05 {
			b.restart(h * 2)
		} else if truncated {
			b.restart(b.h)
		}
	}
	return y, nil
}

// newtonStep solves y = sum_j alpha_j y_hist[j] + beta*h*f(t, y) by
// modified Newton iteration, reusing the factorised iteration matrix
// until it stops converging.
func (b *BDF) newtonStep(t float64, yPrev kinetic.State, h float64) (kinetic.State, bool) {
	n := len(yPrev)
	k := b.order
	beta := bdfBeta[k]

	// Constant part of the formula from the history (yPrev is y_{n-1}).
	rhsSum := make(kinetic.State, n)
	for i := 0; i < n; i++ {
		rhsSum[i] = bdfAlpha[k][0] * yPrev[i]
	}
	for j := 1; j < k; j++ {
		yj := b.history[j-1]
		for i := 0; i < n; i++ {
			rhsSum[i] += bdfAlpha[k][j] * yj[i]
		}
	}

	if !b.jacFresh {
		if !b.refreshJacobian(t, yPrev, beta*h) {
			return nil, false
		}
	}

	y := yPrev.Clone()
	resid := mat.NewVecDense(n, nil)
	delta := mat.NewVecDense(n, nil)
	for iter := 0; iter < newtonMaxIters; iter++ {
		f := b.rhs(t, y)
		for i := 0; i < n; i++ {
			resid.SetVec(i, y[i]-beta*h*f[i]-rhsSum[i])
		}
		if err := b.lu.SolveVecTo(delta, false, resid); err != nil {
			b.jacFresh = false
			return nil, false
		}

		norm := 0.0
		for i := 0; i < n; i++ {
			y[i] -= delta.AtVec(i)
			sc := b.opts.Atol + b.opts.Rtol*math.Abs(y[i])
			norm += (delta.AtVec(i) / sc) * (delta.AtVec(i) / sc)
		}
		if math.Sqrt(norm/float64(n)) < 0.1 {
			return y, y.IsValid()
		}
	}
	b.jacFresh = false
	return nil, false
}

// refreshJacobian factorises M = I - gamma*J with J approximated by
// forward differences at (t, y).
func (b *BDF) refreshJacobian(t float64, y kinetic.State, gamma float64) bool {
	n := len(y)
	f0 := b.rhs(t, y)
	m := mat.NewDense(n, n, nil)
	pert := y.Clone()
	for j := 0; j < n; j++ {
		dj := math.Sqrt(b.opts.Atol) * math.Max(1, math.Abs(y[j]))
		pert[j] = y[j] + dj
		fj := b.rhs(t, pert)
		pert[j] = y[j]
		for i := 0; i < n; i++ {
			jij := (fj[i] - f0[i]) / dj
			if i == j {
				m.Set(i, j, 1-gamma*jij)
			} else {
				m.Set(i, j, -gamma*jij)
			}
		}
	}
	b.lu.Factorize(m)
	b.jacFresh = b.lu.Cond() < 1/1e-16
	return b.jacFresh
}

// errorEstimate applies the Milne device: the gap between the implicit
// corrector and an explicit predictor bounds the local truncation error.
// The predictor is linear extrapolation through the history when one
// exists, an explicit Euler step otherwise.
func (b *BDF) errorEstimate(t, h float64, yPrev, yNew kinetic.State) float64 {
	n := len(yPrev)
	pred := make(kinetic.State, n)
	if len(b.history) > 0 {
		prev2 := b.history[0]
		for i := 0; i < n; i++ {
			pred[i] = 2*yPrev[i] - prev2[i]
		}
	} else {
		f := b.rhs(t, yPrev)
		for i := 0; i < n; i++ {
			pred[i] = yPrev[i] + h*f[i]
		}
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		e := (yNew[i] - pred[i]) / float64(b.order+1)
		sc := b.opts.Atol + b.opts.Rtol*math.Max(math.Abs(yPrev[i]), math.Abs(yNew[i]))
		sum += (e / sc) * (e / sc)
	}
	return math.Sqrt(sum / float64(n))
}

// pushHistory prepends y to the uniform-step history, capped at the
// maximum order's depth.
func (b *BDF) pushHistory(y kinetic.State) {
	b.history = append([]kinetic.State{y.Clone()}, b.history...)
	if len(b.history) > bdfMaxOrder {
		b.history = b.history[:bdfMaxOrder]
	}
}
