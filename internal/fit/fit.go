// Package fit estimates model parameters from experimental observations
// by repeatedly re-simulating the model under a minimizer.
//
// Two structurally identical loops are provided: [SteadyState] fits
// against a single steady-state observation, [TimeCourse] against a
// time-indexed table. Both restore the model's original parameters on
// every exit path, so repeated fits against the same model are idempotent
// with respect to model state. Minimizer failure yields NaN-filled
// parameters; callers detect it with math.IsNaN rather than error
// handling.
package fit

import (
	"github.com/san-kum/kinfit/internal/integrate"
	"github.com/san-kum/kinfit/internal/model"
	"github.com/san-kum/kinfit/internal/table"
)

// InitialGuess maps parameter names to starting values.
type InitialGuess map[string]float64

// ResidualFn maps a candidate parameter vector to a scalar loss. The
// vector is ordered by [ParamNames].
type ResidualFn func(parValues []float64) float64

// MinimizeFn is the pluggable minimizer strategy.
type MinimizeFn func(residual ResidualFn, p0 InitialGuess) map[string]float64

// Options carries the fixed calling context of a fit. The zero value
// selects the stiff backend, the stock Nelder-Mead minimizer, RMSE losses
// and default steady-state detection.
type Options struct {
	// Y0 overrides the model's initial concentrations.
	Y0 map[string]float64

	// Backend selects the integrator; nil means the stiff implicit one.
	Backend integrate.Constructor

	// Minimize replaces the default minimizer strategy.
	Minimize MinimizeFn

	// SteadyState configures detection for steady-state fits. The zero
	// value means defaults.
	SteadyState integrate.SteadyStateOptions

	SSLoss SSLoss
	TCLoss TCLoss

	// Observe, when set, is called with every residual evaluation.
	// Used by the live progress view.
	Observe func(parValues []float64, residual float64)
}

func (o *Options) fillDefaults() {
	if o.Minimize == nil {
		o.Minimize = DefaultMinimize
	}
	if o.SteadyState.Tolerance == 0 {
		o.SteadyState = integrate.DefaultSteadyStateOptions()
	}
	if o.SSLoss == nil {
		o.SSLoss = RMSESteadyState
	}
	if o.TCLoss == nil {
		o.TCLoss = RMSETimeCourse
	}
}

// SteadyState fits parameters so the model's steady state matches the
// observed values in data.
func SteadyState(m *model.Model, p0 InitialGuess, data *table.Series, opts Options) map[string]float64 {
	opts.fillDefaults()
	names := ParamNames(p0)

	orig := m.Parameters()
	defer m.UpdateParameters(orig)

	residual := func(parValues []float64) float64 {
		r := steadyStateResidual(parValues, names, data, m, opts.Y0, opts.Backend, opts.SteadyState, opts.SSLoss)
		if opts.Observe != nil {
			opts.Observe(parValues, r)
		}
		return r
	}
	return opts.Minimize(residual, p0)
}

// TimeCourse fits parameters so the model's trajectory over the data's
// time index matches the observed time course.
func TimeCourse(m *model.Model, p0 InitialGuess, data *table.Frame, opts Options) map[string]float64 {
	opts.fillDefaults()
	names := ParamNames(p0)

	orig := m.Parameters()
	defer m.UpdateParameters(orig)

	residual := func(parValues []float64) float64 {
		r := timeCourseResidual(parValues, names, data, m, opts.Y0, opts.Backend, opts.TCLoss)
		if opts.Observe != nil {
			opts.Observe(parValues, r)
		}
		return r
	}
	return opts.Minimize(residual, p0)
}
