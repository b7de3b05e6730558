// Package scan sweeps a model parameter across a range and records the
// steady state at every point, fanning the points out over a bounded
// worker pool. Points where the solver fails or no steady state exists
// within bounds come back as NaN rows rather than aborting the sweep.
package scan

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/kinfit/internal/integrate"
	"github.com/san-kum/kinfit/internal/model"
	"github.com/san-kum/kinfit/internal/sim"
	"github.com/san-kum/kinfit/internal/table"
)

// Options carries the fixed context of a sweep. The zero value selects
// the stiff backend, default solver options, default steady-state
// detection, linear spacing and one worker per CPU.
type Options struct {
	// Y0 overrides the model's initial concentrations at every point.
	Y0 map[string]float64

	// Backend selects the integrator; nil means the stiff implicit one.
	Backend integrate.Constructor

	Solver      integrate.Options
	SteadyState integrate.SteadyStateOptions

	// Log spaces the parameter values geometrically instead of linearly.
	// The range must be positive.
	Log bool

	// Workers bounds the pool; 0 means GOMAXPROCS.
	Workers int
}

func (o *Options) fillDefaults() {
	if o.Solver.Atol == 0 && o.Solver.Rtol == 0 {
		o.Solver = integrate.DefaultOptions()
	}
	if o.SteadyState.Tolerance == 0 {
		o.SteadyState = integrate.DefaultSteadyStateOptions()
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
}

// Values builds the parameter grid of a sweep without running it.
func Values(from, to float64, points int, log bool) ([]float64, error) {
	if points < 2 {
		return nil, fmt.Errorf("scan: need at least 2 points, got %d", points)
	}
	dst := make([]float64, points)
	if log {
		if from <= 0 || to <= 0 {
			return nil, fmt.Errorf("scan: log spacing needs a positive range, got [%g, %g]", from, to)
		}
		return floats.LogSpan(dst, from, to), nil
	}
	return floats.Span(dst, from, to), nil
}

// SteadyState sweeps the named parameter from from to to and returns a
// frame indexed by parameter value: one column per species followed by
// one per reaction flux, NaN-filled where the point failed.
func SteadyState(ctx context.Context, m *model.Model, param string, from, to float64, points int, opts Options) (*table.Frame, error) {
	if _, ok := m.Parameters()[param]; !ok {
		return nil, fmt.Errorf("scan: unknown parameter %q", param)
	}
	opts.fillDefaults()

	values, err := Values(from, to, points, opts.Log)
	if err != nil {
		return nil, err
	}

	species := m.Species()
	reactions := m.ReactionNames()
	width := len(species) + len(reactions)
	data := make([][]float64, points)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				data[i] = runPoint(m.Clone().UpdateParameters(map[string]float64{param: values[i]}), width, opts)
			}
		}()
	}

	var canceled error
feed:
	for i := 0; i < points; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			canceled = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	if canceled != nil {
		return nil, canceled
	}

	return table.NewFrame(values, append(species, reactions...), data)
}

func runPoint(m *model.Model, width int, opts Options) []float64 {
	s, err := sim.NewWithOptions(m, opts.Y0, opts.Backend, opts.Solver)
	if err != nil {
		return nanRow(width)
	}
	s.SteadyStateOpts = opts.SteadyState

	concs, fluxes := s.SimulateToSteadyState().FullConcsAndFluxes()
	if concs == nil || fluxes == nil {
		return nanRow(width)
	}
	row := make([]float64, 0, width)
	row = append(row, concs.Data[0]...)
	row = append(row, fluxes.Data[0]...)
	return row
}

func nanRow(width int) []float64 {
	row := make([]float64, width)
	for i := range row {
		row[i] = math.NaN()
	}
	return row
}
