package config

// Presets are ready-made model definitions for the CLI.
var Presets = map[string]ModelConfig{
	"decay": {
		Species:    []SpeciesConfig{{Name: "S", Initial: 1.0}},
		Parameters: map[string]float64{"k": 0.5},
		Reactions: []ReactionConfig{
			{
				Name: "v_decay", RateLaw: "mass_action",
				Parameters: []string{"k"}, Substrates: []string{"S"},
				Stoichiometry: map[string]float64{"S": -1},
			},
		},
	},
	"linear_chain": {
		Species:    []SpeciesConfig{{Name: "A", Initial: 1.0}, {Name: "B", Initial: 0.0}},
		Parameters: map[string]float64{"k1": 1.0, "k2": 2.0},
		Reactions: []ReactionConfig{
			{
				Name: "v1", RateLaw: "mass_action",
				Parameters: []string{"k1"}, Substrates: []string{"A"},
				Stoichiometry: map[string]float64{"A": -1, "B": 1},
			},
			{
				Name: "v2", RateLaw: "mass_action",
				Parameters: []string{"k2"}, Substrates: []string{"B"},
				Stoichiometry: map[string]float64{"B": -1},
			},
		},
	},
	"open_chain": {
		Species:    []SpeciesConfig{{Name: "A", Initial: 0.1}, {Name: "B", Initial: 0.1}},
		Parameters: map[string]float64{"v_in": 1.0, "k1": 1.0, "k2": 2.0},
		Reactions: []ReactionConfig{
			{
				Name: "v_in", RateLaw: "constant",
				Parameters:    []string{"v_in"},
				Stoichiometry: map[string]float64{"A": 1},
			},
			{
				Name: "v1", RateLaw: "mass_action",
				Parameters: []string{"k1"}, Substrates: []string{"A"},
				Stoichiometry: map[string]float64{"A": -1, "B": 1},
			},
			{
				Name: "v2", RateLaw: "mass_action",
				Parameters: []string{"k2"}, Substrates: []string{"B"},
				Stoichiometry: map[string]float64{"B": -1},
			},
		},
	},
	"michaelis": {
		Species:    []SpeciesConfig{{Name: "S", Initial: 2.0}, {Name: "P", Initial: 0.0}},
		Parameters: map[string]float64{"vmax": 1.0, "km": 0.5},
		Reactions: []ReactionConfig{
			{
				Name: "v_enzyme", RateLaw: "michaelis_menten",
				Parameters: []string{"vmax", "km"}, Substrates: []string{"S"},
				Stoichiometry: map[string]float64{"S": -1, "P": 1},
			},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil if unknown.
func GetPreset(name string) *ModelConfig {
	mc, ok := Presets[name]
	if !ok {
		return nil
	}
	return &mc
}

// ListPresets names the available presets.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
