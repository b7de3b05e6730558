// Package sim orchestrates a model and an integrator backend: it runs
// time-course and steady-state simulations and extracts labeled
// concentration and flux trajectories.
package sim

import (
	"github.com/san-kum/kinfit/internal/integrate"
	"github.com/san-kum/kinfit/internal/kinetic"
	"github.com/san-kum/kinfit/internal/model"
	"github.com/san-kum/kinfit/internal/table"
)

// Simulator binds a model to one backend instance for the duration of a
// run. It is not safe for concurrent use; clone the model and build a new
// Simulator per goroutine.
type Simulator struct {
	model   *model.Model
	backend integrate.Backend

	// SteadyStateOpts configures steady-state detection for this run.
	SteadyStateOpts integrate.SteadyStateOptions

	result *kinetic.TimeCourse
	failed bool
}

// New builds a simulator with default solver options. A nil constructor
// selects the stiff implicit backend. Entries in y0 override the model's
// registered initial concentrations.
func New(m *model.Model, y0 map[string]float64, construct integrate.Constructor) (*Simulator, error) {
	return NewWithOptions(m, y0, construct, integrate.DefaultOptions())
}

func NewWithOptions(m *model.Model, y0 map[string]float64, construct integrate.Constructor, opts integrate.Options) (*Simulator, error) {
	if construct == nil {
		construct = integrate.NewBDF
	}
	state, err := m.InitialState(y0)
	if err != nil {
		return nil, err
	}
	return &Simulator{
		model:           m,
		backend:         construct(m.RHS(), state, opts),
		SteadyStateOpts: integrate.DefaultSteadyStateOptions(),
	}, nil
}

// SimulateToSteadyState drives the system to steady state. Failure is
// recorded, not returned; FullConcsAndFluxes reports it as nil tables.
func (s *Simulator) SimulateToSteadyState() *Simulator {
	ss, err := s.backend.IntegrateToSteadyState(s.SteadyStateOpts)
	if err != nil {
		s.failed = true
		s.result = nil
		return s
	}
	s.failed = false
	s.result = &kinetic.TimeCourse{
		Times:  []float64{ss.Time},
		States: []kinetic.State{ss.State},
	}
	return s
}

// SimulateTimeCourse integrates through the given ascending time points.
func (s *Simulator) SimulateTimeCourse(points []float64) *Simulator {
	tc, err := s.backend.IntegrateTimeCourse(points)
	if err != nil {
		s.failed = true
		s.result = nil
		return s
	}
	s.failed = false
	s.result = tc
	return s
}

// Failed reports whether the last simulation call failed.
func (s *Simulator) Failed() bool { return s.failed }

// FullConcsAndFluxes returns the concentration and flux trajectories of
// the last simulation, labeled by species and reaction names. Both are
// nil when the simulation failed or nothing has been simulated.
func (s *Simulator) FullConcsAndFluxes() (*table.Frame, *table.Frame) {
	if s.failed || s.result == nil {
		return nil, nil
	}

	species := s.model.Species()
	reactions := s.model.ReactionNames()

	concs := make([][]float64, len(s.result.Times))
	fluxes := make([][]float64, len(s.result.Times))
	for i, t := range s.result.Times {
		y := s.result.States[i]
		concs[i] = append([]float64{}, y...)
		fluxes[i] = s.model.Fluxes(t, y)
	}

	concFrame := &table.Frame{Index: s.result.Times, Columns: species, Data: concs}
	fluxFrame := &table.Frame{Index: s.result.Times, Columns: reactions, Data: fluxes}
	return concFrame, fluxFrame
}
