package store

import (
	"testing"

	"github.com/san-kum/kinfit/internal/table"
)

func sampleFrames(t *testing.T) (*table.Frame, *table.Frame) {
	t.Helper()
	concs, err := table.NewFrame(
		[]float64{0, 1, 2},
		[]string{"A", "B"},
		[][]float64{{1, 0}, {0.5, 0.3}, {0.25, 0.4}},
	)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	fluxes, err := table.NewFrame(
		[]float64{0, 1, 2},
		[]string{"v1"},
		[][]float64{{1}, {0.5}, {0.25}},
	)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	return concs, fluxes
}

func TestSaveAndLoad(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	concs, fluxes := sampleFrames(t)
	meta := RunMetadata{
		Kind:    "timecourse",
		Model:   "linear_chain",
		Backend: "dopri",
		Atol:    1e-8,
		Rtol:    1e-8,
	}
	runID, err := s.Save(meta, concs, fluxes)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Load(runID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.ID != runID || loaded.Kind != "timecourse" || loaded.Model != "linear_chain" {
		t.Errorf("unexpected metadata %+v", loaded)
	}
	if loaded.Timestamp.IsZero() {
		t.Error("timestamp not stamped on save")
	}
}

func TestFrameRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	concs, fluxes := sampleFrames(t)
	runID, err := s.Save(RunMetadata{Kind: "timecourse", Model: "m"}, concs, fluxes)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.LoadFrame(runID, "concentrations")
	if err != nil {
		t.Fatalf("LoadFrame failed: %v", err)
	}
	if len(got.Columns) != 2 || got.Columns[0] != "A" {
		t.Errorf("unexpected columns %v", got.Columns)
	}
	for i := range concs.Index {
		if got.Index[i] != concs.Index[i] {
			t.Errorf("index[%d] = %g, want %g", i, got.Index[i], concs.Index[i])
		}
		for j := range concs.Columns {
			if got.Data[i][j] != concs.Data[i][j] {
				t.Errorf("data[%d][%d] = %g, want %g", i, j, got.Data[i][j], concs.Data[i][j])
			}
		}
	}
}

func TestSaveWithoutFrames(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	fitted := map[string]float64{"k1": 1.02, "k2": 1.97}
	runID, err := s.Save(RunMetadata{Kind: "fit", Model: "m", Fitted: fitted}, nil, nil)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Load(runID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Fitted["k2"] != 1.97 {
		t.Errorf("fitted parameters lost: %v", loaded.Fitted)
	}
	if _, err := s.LoadFrame(runID, "concentrations"); err == nil {
		t.Error("no trajectory was saved; LoadFrame should fail")
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	// Listing an uninitialized store is empty, not an error.
	runs, err := s.List()
	if err != nil {
		t.Fatalf("List on missing dir failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}

	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := s.Save(RunMetadata{Kind: "steadystate", Model: "m"}, nil, nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	runs, err = s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Kind != "steadystate" {
		t.Errorf("unexpected runs %+v", runs)
	}
}
