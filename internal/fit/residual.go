package fit

import (
	"math"

	"github.com/san-kum/kinfit/internal/integrate"
	"github.com/san-kum/kinfit/internal/model"
	"github.com/san-kum/kinfit/internal/sim"
	"github.com/san-kum/kinfit/internal/table"
)

// SSLoss scores simulated steady-state results against observed values.
type SSLoss func(data *table.Series, results *table.Frame) float64

// TCLoss scores a simulated time course against an observed one.
type TCLoss func(data *table.Frame, results *table.Frame) float64

// RMSESteadyState is the root-mean-square error between a steady-state
// observation and the matching result columns. Unmatched observation
// labels are dropped, not an error.
func RMSESteadyState(data *table.Series, results *table.Frame) float64 {
	sel := results.Select(data.Labels)
	if len(sel.Columns) == 0 {
		return math.NaN()
	}
	sum, n := 0.0, 0
	for _, row := range sel.Data {
		for j, col := range sel.Columns {
			obs, _ := data.Get(col)
			d := obs - row[j]
			sum += d * d
			n++
		}
	}
	return math.Sqrt(sum / float64(n))
}

// RMSETimeCourse is the root-mean-square error between a time-course
// observation and the matching result columns, row-aligned by index.
func RMSETimeCourse(data *table.Frame, results *table.Frame) float64 {
	sel := results.Select(data.Columns)
	if len(sel.Columns) == 0 || len(sel.Data) != len(data.Data) {
		return math.NaN()
	}

	colIdx := make(map[string]int, len(data.Columns))
	for j, c := range data.Columns {
		colIdx[c] = j
	}

	sum, n := 0.0, 0
	for i, row := range sel.Data {
		for j, col := range sel.Columns {
			d := data.Data[i][colIdx[col]] - row[j]
			sum += d * d
			n++
		}
	}
	return math.Sqrt(sum / float64(n))
}

// steadyStateResidual maps a candidate parameter vector, through a fresh
// simulator run to steady state, to a scalar discrepancy. Any failure
// along the way returns +Inf so bounded minimizers route around the
// region instead of crashing the search.
func steadyStateResidual(
	parValues []float64,
	parNames []string,
	data *table.Series,
	m *model.Model,
	y0 map[string]float64,
	construct integrate.Constructor,
	ssOpts integrate.SteadyStateOptions,
	loss SSLoss,
) float64 {
	s, err := sim.New(m.UpdateParameters(zip(parNames, parValues)), y0, construct)
	if err != nil {
		return math.Inf(1)
	}
	s.SteadyStateOpts = ssOpts

	concs, fluxes := s.SimulateToSteadyState().FullConcsAndFluxes()
	if concs == nil || fluxes == nil {
		return math.Inf(1)
	}
	results, err := table.Concat(concs, fluxes)
	if err != nil {
		return math.Inf(1)
	}
	return loss(data, results)
}

// timeCourseResidual is the time-course variant: it simulates over the
// observation's time index and scores the aligned trajectories.
func timeCourseResidual(
	parValues []float64,
	parNames []string,
	data *table.Frame,
	m *model.Model,
	y0 map[string]float64,
	construct integrate.Constructor,
	loss TCLoss,
) float64 {
	s, err := sim.New(m.UpdateParameters(zip(parNames, parValues)), y0, construct)
	if err != nil {
		return math.Inf(1)
	}

	concs, fluxes := s.SimulateTimeCourse(data.Index).FullConcsAndFluxes()
	if concs == nil || fluxes == nil {
		return math.Inf(1)
	}
	results, err := table.Concat(concs, fluxes)
	if err != nil {
		return math.Inf(1)
	}
	return loss(data, results)
}

// zip pairs names and values positionally. Names and values always travel
// together in this order; reordering either alone is a correctness bug.
func zip(names []string, values []float64) map[string]float64 {
	out := make(map[string]float64, len(names))
	for i, name := range names {
		out[name] = values[i]
	}
	return out
}
