package config

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/san-kum/kinfit/internal/kinetic"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Backend = "dopri"
	cfg.Atol = 1e-10
	cfg.SteadyState.RelNorm = true
	cfg.Model = Presets["decay"]

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Backend != "dopri" || loaded.Atol != 1e-10 {
		t.Errorf("solver settings lost: %+v", loaded)
	}
	if !loaded.SteadyState.RelNorm {
		t.Error("rel_norm lost in round trip")
	}
	if len(loaded.Model.Reactions) != 1 || loaded.Model.Reactions[0].RateLaw != "mass_action" {
		t.Errorf("model lost in round trip: %+v", loaded.Model)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	if err := Save(path, &Config{Backend: "dopri"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	opts := cfg.SteadyStateOptions()
	if opts.Tolerance != DefaultTolerance || opts.MaxSteps != 1000 {
		t.Errorf("defaults not applied: %+v", opts)
	}
}

func TestBuildModel_Presets(t *testing.T) {
	for name, mc := range Presets {
		if _, err := BuildModel(mc); err != nil {
			t.Errorf("preset %s does not build: %v", name, err)
		}
	}
}

func TestBuildModel_LinearChainRHS(t *testing.T) {
	m, err := BuildModel(Presets["linear_chain"])
	if err != nil {
		t.Fatalf("BuildModel failed: %v", err)
	}

	rhs := m.RHS()
	dydt := rhs(0, kinetic.State{1.0, 0.0})
	if math.Abs(dydt[0]-(-1.0)) > 1e-12 || math.Abs(dydt[1]-1.0) > 1e-12 {
		t.Errorf("unexpected derivative %v at the initial state", dydt)
	}
}

func TestBuildModel_UnknownRateLaw(t *testing.T) {
	mc := ModelConfig{
		Species: []SpeciesConfig{{Name: "S", Initial: 1}},
		Reactions: []ReactionConfig{
			{Name: "v", RateLaw: "hill", Parameters: []string{"k"}},
		},
	}
	if _, err := BuildModel(mc); err == nil {
		t.Error("unknown rate law should fail")
	}
}

func TestBuildModel_ArityChecks(t *testing.T) {
	bad := []ReactionConfig{
		{Name: "v", RateLaw: "mass_action", Parameters: []string{"a", "b"}},
		{Name: "v", RateLaw: "michaelis_menten", Parameters: []string{"vmax"}, Substrates: []string{"S"}},
		{Name: "v", RateLaw: "constant", Parameters: nil},
	}
	for _, rc := range bad {
		mc := ModelConfig{Reactions: []ReactionConfig{rc}}
		if _, err := BuildModel(mc); err == nil {
			t.Errorf("%s with wrong arity should fail", rc.RateLaw)
		}
	}
}

func TestGetPreset(t *testing.T) {
	if GetPreset("nope") != nil {
		t.Error("unknown preset should be nil")
	}

	mc := GetPreset("decay")
	if mc == nil {
		t.Fatal("decay preset missing")
	}
	if mc.Parameters["k"] != 0.5 {
		t.Errorf("unexpected decay preset parameters %v", mc.Parameters)
	}

	if len(ListPresets()) != 4 {
		t.Errorf("expected 4 presets, got %d", len(ListPresets()))
	}
}
