// Package viz renders trajectories: asciigraph plots for the terminal and
// PNG/SVG images via gonum/plot.
package viz

import (
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/kinfit/internal/table"
)

// ASCII renders every column of a frame as an overlaid terminal graph.
func ASCII(f *table.Frame, height int, caption string) string {
	series := make([][]float64, len(f.Columns))
	for j, name := range f.Columns {
		series[j] = f.Column(name)
	}

	colors := make([]asciigraph.AnsiColor, len(f.Columns))
	palette := []asciigraph.AnsiColor{
		asciigraph.Green, asciigraph.Red, asciigraph.Blue,
		asciigraph.Yellow, asciigraph.Magenta, asciigraph.Cyan,
	}
	for j := range colors {
		colors[j] = palette[j%len(palette)]
	}

	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(f.Columns...),
	)
}
