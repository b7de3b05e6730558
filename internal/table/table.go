// Package table provides small labeled containers for experimental data
// and simulated trajectories: a Series of named values and a Frame of
// named columns over a time index.
package table

import "fmt"

// Series is an ordered set of labeled values, e.g. observed steady-state
// concentrations keyed by variable name.
type Series struct {
	Labels []string
	Values []float64
}

func NewSeries(labels []string, values []float64) (*Series, error) {
	if len(labels) != len(values) {
		return nil, fmt.Errorf("table: %d labels for %d values", len(labels), len(values))
	}
	return &Series{Labels: labels, Values: values}, nil
}

func (s *Series) Get(label string) (float64, bool) {
	for i, l := range s.Labels {
		if l == label {
			return s.Values[i], true
		}
	}
	return 0, false
}

// Frame is a table of named columns over a shared float index (time
// offsets for trajectories and time-course data).
type Frame struct {
	Index   []float64
	Columns []string
	// Data is row-major: Data[i][j] is row i, column j.
	Data [][]float64

	// IndexName labels the index on export; empty means "time".
	IndexName string
}

func NewFrame(index []float64, columns []string, data [][]float64) (*Frame, error) {
	if len(data) != len(index) {
		return nil, fmt.Errorf("table: %d rows for %d index entries", len(data), len(index))
	}
	for _, row := range data {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("table: row width %d for %d columns", len(row), len(columns))
		}
	}
	return &Frame{Index: index, Columns: columns, Data: data}, nil
}

// Column returns the named column, or nil if absent.
func (f *Frame) Column(name string) []float64 {
	for j, c := range f.Columns {
		if c == name {
			out := make([]float64, len(f.Data))
			for i, row := range f.Data {
				out[i] = row[j]
			}
			return out
		}
	}
	return nil
}

// Select restricts the frame to the named columns, preserving their given
// order. Names with no matching column are dropped silently; data columns
// not named are excluded.
func (f *Frame) Select(names []string) *Frame {
	idx := make([]int, 0, len(names))
	kept := make([]string, 0, len(names))
	for _, name := range names {
		for j, c := range f.Columns {
			if c == name {
				idx = append(idx, j)
				kept = append(kept, name)
				break
			}
		}
	}

	data := make([][]float64, len(f.Data))
	for i, row := range f.Data {
		sel := make([]float64, len(idx))
		for k, j := range idx {
			sel[k] = row[j]
		}
		data[i] = sel
	}
	return &Frame{Index: f.Index, Columns: kept, Data: data}
}

// Concat joins two frames column-wise over a shared index. Panics are
// avoided: mismatched row counts return an error since the frames came
// from the same trajectory and should always align.
func Concat(a, b *Frame) (*Frame, error) {
	if len(a.Data) != len(b.Data) {
		return nil, fmt.Errorf("table: concat row mismatch %d vs %d", len(a.Data), len(b.Data))
	}
	columns := append(append([]string{}, a.Columns...), b.Columns...)
	data := make([][]float64, len(a.Data))
	for i := range a.Data {
		row := make([]float64, 0, len(columns))
		row = append(row, a.Data[i]...)
		row = append(row, b.Data[i]...)
		data[i] = row
	}
	return &Frame{Index: a.Index, Columns: columns, Data: data}, nil
}
