package model

import (
	"fmt"

	"github.com/san-kum/kinfit/internal/kinetic"
)

// RateFn computes the rate of a single reaction from the current
// parameters and species concentrations.
type RateFn func(pars map[string]float64, concs map[string]float64) float64

// Reaction couples a named rate law with its stoichiometry. A species
// absent from Stoichiometry is unaffected by the reaction.
type Reaction struct {
	Name          string
	Rate          RateFn
	Stoichiometry map[string]float64
}

// Model is a reaction-network kinetic model: named species with initial
// concentrations, named parameters, and reactions whose stoichiometry-
// weighted rates assemble the ODE right-hand side.
type Model struct {
	species    []string
	index      map[string]int
	initial    map[string]float64
	parameters map[string]float64
	reactions  []Reaction
}

func New() *Model {
	return &Model{
		index:      make(map[string]int),
		initial:    make(map[string]float64),
		parameters: make(map[string]float64),
	}
}

// AddSpecies registers a dynamic variable with its initial concentration.
// Species order is fixed by registration order and determines the state
// vector layout for every simulation of this model.
func (m *Model) AddSpecies(name string, initial float64) *Model {
	if _, ok := m.index[name]; ok {
		return m
	}
	m.index[name] = len(m.species)
	m.species = append(m.species, name)
	m.initial[name] = initial
	return m
}

func (m *Model) AddParameter(name string, value float64) *Model {
	m.parameters[name] = value
	return m
}

func (m *Model) AddReaction(name string, rate RateFn, stoichiometry map[string]float64) *Model {
	m.reactions = append(m.reactions, Reaction{Name: name, Rate: rate, Stoichiometry: stoichiometry})
	return m
}

func (m *Model) Species() []string {
	out := make([]string, len(m.species))
	copy(out, m.species)
	return out
}

func (m *Model) ReactionNames() []string {
	out := make([]string, len(m.reactions))
	for i, r := range m.reactions {
		out[i] = r.Name
	}
	return out
}

// Clone returns an independent copy of the model. Rate functions are
// shared; they are pure in the parameter and concentration maps they are
// handed, so sharing is safe across goroutines.
func (m *Model) Clone() *Model {
	c := &Model{
		species:    append([]string{}, m.species...),
		index:      make(map[string]int, len(m.index)),
		initial:    make(map[string]float64, len(m.initial)),
		parameters: make(map[string]float64, len(m.parameters)),
		reactions:  append([]Reaction{}, m.reactions...),
	}
	for k, v := range m.index {
		c.index[k] = v
	}
	for k, v := range m.initial {
		c.initial[k] = v
	}
	for k, v := range m.parameters {
		c.parameters[k] = v
	}
	return c
}

// Parameters returns a copy of the current parameter map for save/restore
// around fitting.
func (m *Model) Parameters() map[string]float64 {
	out := make(map[string]float64, len(m.parameters))
	for k, v := range m.parameters {
		out[k] = v
	}
	return out
}

// UpdateParameters overwrites the named parameters in place and returns
// the model for chaining.
func (m *Model) UpdateParameters(pars map[string]float64) *Model {
	for k, v := range pars {
		m.parameters[k] = v
	}
	return m
}

// InitialState builds the state vector in species order. Entries in y0
// override the registered initial concentrations; unknown names in y0 are
// an error since they would silently be dropped otherwise.
func (m *Model) InitialState(y0 map[string]float64) (kinetic.State, error) {
	for name := range y0 {
		if _, ok := m.index[name]; !ok {
			return nil, fmt.Errorf("model: unknown species %q in initial conditions", name)
		}
	}
	state := make(kinetic.State, len(m.species))
	for i, name := range m.species {
		v, ok := y0[name]
		if !ok {
			v = m.initial[name]
		}
		state[i] = v
	}
	return state, nil
}

// RHS assembles the ODE right-hand side by summing stoichiometry-weighted
// reaction rates. The returned function is pure with respect to the model:
// evaluating it mutates nothing.
func (m *Model) RHS() kinetic.RHS {
	return func(t float64, y kinetic.State) kinetic.State {
		concs := m.concMap(y)
		dydt := make(kinetic.State, len(m.species))
		for _, r := range m.reactions {
			v := r.Rate(m.parameters, concs)
			for name, coeff := range r.Stoichiometry {
				dydt[m.index[name]] += coeff * v
			}
		}
		return dydt
	}
}

// Fluxes evaluates every reaction rate at the given state, in reaction
// registration order.
func (m *Model) Fluxes(t float64, y kinetic.State) []float64 {
	concs := m.concMap(y)
	out := make([]float64, len(m.reactions))
	for i, r := range m.reactions {
		out[i] = r.Rate(m.parameters, concs)
	}
	return out
}

func (m *Model) concMap(y kinetic.State) map[string]float64 {
	concs := make(map[string]float64, len(m.species))
	for i, name := range m.species {
		concs[name] = y[i]
	}
	return concs
}
