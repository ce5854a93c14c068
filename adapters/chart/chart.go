package chart

import (
	"bytes"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/satriahrh/asreval/domain/entities"
)

// Renderer draws history views as PNG line charts, one series per column
type Renderer struct {
	Width  vg.Length
	Height vg.Length
}

// NewRenderer creates a renderer with a wide landscape canvas
func NewRenderer() *Renderer {
	return &Renderer{Width: 10 * vg.Inch, Height: 4 * vg.Inch}
}

func (r *Renderer) Render(view entities.HistoryView, title string) ([]byte, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "error rate"
	p.X.Tick.Marker = plot.TimeTicks{Format: entities.DateLayout}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	if len(view.Dates) > 0 {
		for i, column := range view.Columns {
			pts := make(plotter.XYs, len(view.Dates))
			for row, date := range view.Dates {
				pts[row].X = float64(date.Unix())
				pts[row].Y = view.Values[i][row]
			}

			line, points, err := plotter.NewLinePoints(pts)
			if err != nil {
				return nil, fmt.Errorf("failed to build %s series: %w", column, err)
			}
			line.Color = plotutil.Color(i)
			points.Color = plotutil.Color(i)
			points.Shape = plotutil.Shape(i)

			p.Add(line, points)
			p.Legend.Add(column, line, points)
		}
	}

	w, err := p.WriterTo(r.Width, r.Height, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}
	return buf.Bytes(), nil
}
