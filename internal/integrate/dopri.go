package integrate

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/kinfit/internal/kinetic"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

const (
	safety   = 0.9
	minScale = 0.2
	maxScale = 10.0
	minStep  = 1e-14
)

// DormandPrince is the explicit adaptive backend: an embedded RK45 pair
// with step-size control, suited to non-stiff kinetics.
type DormandPrince struct {
	rhs  kinetic.RHS
	opts Options

	t0 float64
	y0 kinetic.State
	dt float64

	// orig is an immutable snapshot of the construction-time initial
	// condition, never aliased with the live y0.
	orig kinetic.State
}

// NewDormandPrince is a [Constructor] for the explicit backend.
func NewDormandPrince(rhs kinetic.RHS, y0 kinetic.State, opts Options) Backend {
	return &DormandPrince{
		rhs:  rhs,
		opts: opts,
		y0:   y0.Clone(),
		orig: y0.Clone(),
		dt:   1e-3,
	}
}

func (d *DormandPrince) Reset() {
	d.t0 = 0
	d.y0 = d.orig.Clone()
	d.dt = 1e-3
}

func (d *DormandPrince) Integrate(tEnd float64, steps int) (*kinetic.TimeCourse, error) {
	n := steps + 1
	if steps <= 0 {
		n = DefaultSteps
	}
	points := make([]float64, n)
	floats.Span(points, d.t0, tEnd)
	return d.IntegrateTimeCourse(points)
}

func (d *DormandPrince) IntegrateTimeCourse(points []float64) (*kinetic.TimeCourse, error) {
	times := make([]float64, 0, len(points))
	states := make([]kinetic.State, 0, len(points))

	t := d.t0
	y := d.y0.Clone()
	for _, target := range points {
		if target > t {
			var err error
			y, err = d.advance(t, target, y)
			if err != nil {
				return nil, err
			}
			t = target
		}
		times = append(times, target)
		states = append(states, y.Clone())
	}

	d.t0 = t
	d.y0 = y
	return &kinetic.TimeCourse{Times: times, States: states}, nil
}

func (d *DormandPrince) IntegrateToSteadyState(opts SteadyStateOptions) (*kinetic.SteadyState, error) {
	d.Reset()

	y1 := d.y0.Clone()
	t := d.t0 + opts.StepSize
	for i := 0; i < opts.MaxSteps; i++ {
		tc, err := d.IntegrateTimeCourse([]float64{t})
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

// advance integrates from t to tEnd without emitting intermediate output,
// carrying the adaptive step size across calls.
func (d *DormandPrince) advance(t, tEnd float64, y kinetic.State) (kinetic.State, error) {
	dt := d.dt
	failures := 0
	for t < tEnd {
		if dt > tEnd-t {
			dt = tEnd - t
		}
		yNew, errNorm := d.attempt(t, y, dt)
		if errNorm <= 1 && yNew.IsValid() {
			t += dt
			y = yNew
			failures = 0
			scale := maxScale
			if errNorm > 0 {
				scale = math.Min(maxScale, safety*math.Pow(errNorm, -0.2))
			}
			dt *= scale
			continue
		}

		failures++
		if failures > d.opts.MaxErrFailures {
			return nil, kinetic.ErrSolverFailure
		}
		scale := minScale
		if errNorm > 1 && !math.IsInf(errNorm, 1) && !math.IsNaN(errNorm) {
			scale = math.Max(minScale, safety*math.Pow(errNorm, -0.25))
		}
		dt *= scale
		if dt < minStep {
			return nil, kinetic.ErrStepTooSmall
		}
	}
	d.dt = dt
	return y, nil
}

// attempt takes a single trial step of size dt and returns the candidate
// state together with the scaled error norm (<= 1 means accept).
func (d *DormandPrince) attempt(t float64, y kinetic.State, dt float64) (kinetic.State, float64) {
	n := len(y)

	k1 := d.rhs(t, y)

	y2 := make(kinetic.State, n)
	for i := 0; i < n; i++ {
		y2[i] = y[i] + dt*b21*k1[i]
	}
	k2 := d.rhs(t+a2*dt, y2)

	y3 := make(kinetic.State, n)
	for i := 0; i < n; i++ {
		y3[i] = y[i] + dt*(b31*k1[i]+b32*k2[i])
	}
	k3 := d.rhs(t+a3*dt, y3)

	y4 := make(kinetic.State, n)
	for i := 0; i < n; i++ {
		y4[i] = y[i] + dt*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4 := d.rhs(t+a4*dt, y4)

	y5 := make(kinetic.State, n)
	for i := 0; i < n; i++ {
		y5[i] = y[i] + dt*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5 := d.rhs(t+a5*dt, y5)

	y6 := make(kinetic.State, n)
	for i := 0; i < n; i++ {
		y6[i] = y[i] + dt*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6 := d.rhs(t+dt, y6)

	yNew := make(kinetic.State, n)
	for i := 0; i < n; i++ {
		yNew[i] = y[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}

	k7 := d.rhs(t+dt, yNew)

	errSum := 0.0
	for i := 0; i < n; i++ {
		errEst := dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		sc := d.opts.Atol + d.opts.Rtol*math.Max(math.Abs(y[i]), math.Abs(yNew[i]))
		errSum += (errEst / sc) * (errEst / sc)
	}
	return yNew, math.Sqrt(errSum / float64(n))
}
