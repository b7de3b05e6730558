package viz

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/kinfit/internal/table"
)

// Export writes every column of a frame as a line plot. The image format
// follows the file extension; png and svg are the useful ones.
func Export(path string, f *table.Frame, title string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = f.IndexName
	if p.X.Label.Text == "" {
		p.X.Label.Text = "time"
	}
	p.Y.Label.Text = "value"

	for j, name := range f.Columns {
		col := f.Column(name)
		pts := make(plotter.XYs, len(f.Index))
		for i := range f.Index {
			pts[i].X = f.Index[i]
			pts[i].Y = col[i]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(j)
		p.Add(line)
		p.Legend.Add(name, line)
	}

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
