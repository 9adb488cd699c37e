package charts

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"bikepulse/internal/analysis"
)

// HourlyLine plots the mean rentals per hour of day.
func HourlyLine(points []analysis.HourPoint) ([]byte, error) {
	if len(points) == 0 {
		return Empty()
	}

	p := newPlot("Average Bike Rentals by Hour", "Hour of day", "Average rentals")

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = float64(pt.Hour)
		xys[i].Y = pt.MeanTotal
	}

	line, scatter, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, fmt.Errorf("failed to build hourly line: %w", err)
	}
	line.Color = paletteColor(0)
	line.Width = vg.Points(2)
	scatter.Shape = draw.CircleGlyph{}
	scatter.Color = paletteColor(0)

	p.Add(plotter.NewGrid(), line, scatter)
	p.X.Min, p.X.Max = 0, 23
	p.Y.Min = 0
	p.X.Tick.Marker = hourTicks{}
	return render(p)
}

// hourTicks labels every other hour of the day.
type hourTicks struct{}

func (hourTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for h := 0; h <= 23; h++ {
		t := plot.Tick{Value: float64(h)}
		if h%2 == 0 {
			t.Label = fmt.Sprintf("%d", h)
		}
		ticks = append(ticks, t)
	}
	return ticks
}
