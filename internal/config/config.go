package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/kinfit/internal/integrate"
	"github.com/san-kum/kinfit/internal/model"
)

const (
	DefaultAtol        = 1e-8
	DefaultRtol        = 1e-8
	DefaultTolerance   = 1e-6
	DefaultLowerBound  = 1e-12
	DefaultUpperBound  = 1e6
	DefaultFitMethod   = "neldermead"
	DefaultBackendName = "bdf"
)

type Config struct {
	Backend     string            `yaml:"backend"`
	Atol        float64           `yaml:"atol"`
	Rtol        float64           `yaml:"rtol"`
	SteadyState SteadyStateConfig `yaml:"steady_state"`
	Fit         FitConfig         `yaml:"fit"`
	Model       ModelConfig       `yaml:"model"`
}

type SteadyStateConfig struct {
	Tolerance float64 `yaml:"tolerance"`
	RelNorm   bool    `yaml:"rel_norm"`
	StepSize  float64 `yaml:"step_size"`
	MaxSteps  int     `yaml:"max_steps"`
	TMax      float64 `yaml:"t_max"`
}

type FitConfig struct {
	Method     string  `yaml:"method"`
	LowerBound float64 `yaml:"lower_bound"`
	UpperBound float64 `yaml:"upper_bound"`
}

type SpeciesConfig struct {
	Name    string  `yaml:"name"`
	Initial float64 `yaml:"initial"`
}

// ReactionConfig describes one reaction: a rate law from the registry,
// the parameter names it reads (law-specific order), the species it
// consumes, and its stoichiometry.
type ReactionConfig struct {
	Name          string             `yaml:"name"`
	RateLaw       string             `yaml:"rate_law"`
	Parameters    []string           `yaml:"parameters"`
	Substrates    []string           `yaml:"substrates"`
	Stoichiometry map[string]float64 `yaml:"stoichiometry"`
}

type ModelConfig struct {
	Species    []SpeciesConfig    `yaml:"species"`
	Parameters map[string]float64 `yaml:"parameters"`
	Reactions  []ReactionConfig   `yaml:"reactions"`
}

func DefaultConfig() *Config {
	return &Config{
		Backend: DefaultBackendName,
		Atol:    DefaultAtol,
		Rtol:    DefaultRtol,
		SteadyState: SteadyStateConfig{
			Tolerance: DefaultTolerance,
			StepSize:  100,
			MaxSteps:  1000,
			TMax:      1e9,
		},
		Fit: FitConfig{
			Method:     DefaultFitMethod,
			LowerBound: DefaultLowerBound,
			UpperBound: DefaultUpperBound,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Constructor maps the configured backend name to its constructor.
func (c *Config) Constructor() integrate.Constructor {
	switch c.Backend {
	case "dopri":
		return integrate.NewDormandPrince
	case "rk4":
		return integrate.NewRK4
	default:
		return integrate.NewBDF
	}
}

func (c *Config) IntegratorOptions() integrate.Options {
	opts := integrate.DefaultOptions()
	if c.Atol > 0 {
		opts.Atol = c.Atol
	}
	if c.Rtol > 0 {
		opts.Rtol = c.Rtol
	}
	return opts
}

func (c *Config) SteadyStateOptions() integrate.SteadyStateOptions {
	opts := integrate.DefaultSteadyStateOptions()
	if c.SteadyState.Tolerance > 0 {
		opts.Tolerance = c.SteadyState.Tolerance
	}
	opts.RelNorm = c.SteadyState.RelNorm
	if c.SteadyState.StepSize > 0 {
		opts.StepSize = c.SteadyState.StepSize
	}
	if c.SteadyState.MaxSteps > 0 {
		opts.MaxSteps = c.SteadyState.MaxSteps
	}
	if c.SteadyState.TMax > 0 {
		opts.TMax = c.SteadyState.TMax
	}
	return opts
}

// BuildModel assembles a reaction-network model from its configuration.
func BuildModel(mc ModelConfig) (*model.Model, error) {
	m := model.New()
	for _, sp := range mc.Species {
		m.AddSpecies(sp.Name, sp.Initial)
	}
	for name, value := range mc.Parameters {
		m.AddParameter(name, value)
	}
	for _, rc := range mc.Reactions {
		rate, err := buildRate(rc)
		if err != nil {
			return nil, err
		}
		m.AddReaction(rc.Name, rate, rc.Stoichiometry)
	}
	return m, nil
}

func buildRate(rc ReactionConfig) (model.RateFn, error) {
	switch rc.RateLaw {
	case "mass_action":
		if len(rc.Parameters) != 1 {
			return nil, fmt.Errorf("config: reaction %s: mass_action needs 1 parameter, got %d", rc.Name, len(rc.Parameters))
		}
		return model.MassAction(rc.Parameters[0], rc.Substrates...), nil
	case "michaelis_menten":
		if len(rc.Parameters) != 2 || len(rc.Substrates) != 1 {
			return nil, fmt.Errorf("config: reaction %s: michaelis_menten needs 2 parameters (vmax, km) and 1 substrate", rc.Name)
		}
		return model.MichaelisMenten(rc.Parameters[0], rc.Parameters[1], rc.Substrates[0]), nil
	case "constant":
		if len(rc.Parameters) != 1 {
			return nil, fmt.Errorf("config: reaction %s: constant needs 1 parameter, got %d", rc.Name, len(rc.Parameters))
		}
		return model.Constant(rc.Parameters[0]), nil
	default:
		return nil, fmt.Errorf("config: reaction %s: unknown rate law %q", rc.Name, rc.RateLaw)
	}
}
