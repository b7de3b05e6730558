package table

import "testing"

func testFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := NewFrame(
		[]float64{0, 1, 2},
		[]string{"A", "B", "C"},
		[][]float64{
			{1, 10, 100},
			{2, 20, 200},
			{3, 30, 300},
		},
	)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	return f
}

func TestNewFrame_ShapeValidation(t *testing.T) {
	if _, err := NewFrame([]float64{0, 1}, []string{"A"}, [][]float64{{1}}); err == nil {
		t.Error("row/index mismatch should fail")
	}
	if _, err := NewFrame([]float64{0}, []string{"A", "B"}, [][]float64{{1}}); err == nil {
		t.Error("row width mismatch should fail")
	}
}

func TestFrameColumn(t *testing.T) {
	f := testFrame(t)

	b := f.Column("B")
	if len(b) != 3 || b[0] != 10 || b[2] != 30 {
		t.Errorf("unexpected column %v", b)
	}
	if f.Column("missing") != nil {
		t.Error("absent column should be nil")
	}
}

func TestFrameSelect(t *testing.T) {
	f := testFrame(t)

	// Order follows the requested names, not the frame's layout.
	sel := f.Select([]string{"C", "A"})
	if len(sel.Columns) != 2 || sel.Columns[0] != "C" || sel.Columns[1] != "A" {
		t.Fatalf("unexpected columns %v", sel.Columns)
	}
	if sel.Data[1][0] != 200 || sel.Data[1][1] != 2 {
		t.Errorf("unexpected row %v", sel.Data[1])
	}
}

func TestFrameSelect_DropsUnknownNames(t *testing.T) {
	f := testFrame(t)

	sel := f.Select([]string{"A", "nope", "B"})
	if len(sel.Columns) != 2 || sel.Columns[0] != "A" || sel.Columns[1] != "B" {
		t.Errorf("unknown names should be dropped, got %v", sel.Columns)
	}

	if empty := f.Select([]string{"nope"}); len(empty.Columns) != 0 {
		t.Errorf("expected no columns, got %v", empty.Columns)
	}
}

func TestConcat(t *testing.T) {
	a := testFrame(t)
	b, err := NewFrame(
		[]float64{0, 1, 2},
		[]string{"v1"},
		[][]float64{{7}, {8}, {9}},
	)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}

	joined, err := Concat(a, b)
	if err != nil {
		t.Fatalf("Concat failed: %v", err)
	}
	if len(joined.Columns) != 4 || joined.Columns[3] != "v1" {
		t.Errorf("unexpected columns %v", joined.Columns)
	}
	if joined.Data[2][3] != 9 || joined.Data[2][0] != 3 {
		t.Errorf("unexpected row %v", joined.Data[2])
	}
}

func TestConcat_RowMismatch(t *testing.T) {
	a := testFrame(t)
	b := &Frame{Index: []float64{0}, Columns: []string{"x"}, Data: [][]float64{{1}}}

	if _, err := Concat(a, b); err == nil {
		t.Error("row count mismatch should fail")
	}
}

func TestSeries(t *testing.T) {
	s, err := NewSeries([]string{"A", "B"}, []float64{1.5, 2.5})
	if err != nil {
		t.Fatalf("NewSeries failed: %v", err)
	}

	if v, ok := s.Get("B"); !ok || v != 2.5 {
		t.Errorf("Get(B) = %v, %v", v, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Error("absent label should report false")
	}

	if _, err := NewSeries([]string{"A"}, []float64{1, 2}); err == nil {
		t.Error("label/value mismatch should fail")
	}
}
