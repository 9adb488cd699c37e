package charts

import (
	"fmt"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"bikepulse/internal/analysis"
)

var glyphs = []draw.GlyphDrawer{
	draw.CircleGlyph{},
	draw.SquareGlyph{},
	draw.TriangleGlyph{},
	draw.PlusGlyph{},
}

// WeatherScatter plots rentals against one weather measurement with a series
// per weather situation.
func WeatherScatter(series []analysis.WeatherSeries, v analysis.Variable) ([]byte, error) {
	if len(series) == 0 {
		return Empty()
	}

	p := newPlot(fmt.Sprintf("Rentals vs %s", v.Label()), v.Label(), "Rentals per hour")
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for i, s := range series {
		xys := make(plotter.XYs, len(s.Points))
		for j, pt := range s.Points {
			xys[j].X, xys[j].Y = pt.X, pt.Y
		}

		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s scatter: %w", s.Label, err)
		}
		sc.GlyphStyle.Color = paletteColor(int(s.Weather) - 1)
		sc.GlyphStyle.Shape = glyphs[i%len(glyphs)]
		sc.GlyphStyle.Radius = vg.Points(2)

		p.Add(sc)
		p.Legend.Add(s.Label, sc)
	}

	p.X.Min, p.X.Max = 0, 1
	p.Y.Min = 0
	return render(p)
}

// UsageClusters plots each month by casual and registered totals, coloured
// by usage class and labelled with the month.
func UsageClusters(months []analysis.ClassifiedMonth) ([]byte, error) {
	if len(months) == 0 {
		return Empty()
	}

	p := newPlot("Monthly Usage Clusters", "Casual rentals", "Registered rentals")
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true

	colors := map[analysis.UsageClass]int{
		analysis.ClassLow:    2,
		analysis.ClassMedium: 1,
		analysis.ClassHigh:   3,
	}

	for _, class := range analysis.Classes() {
		var xys plotter.XYs
		var labels []string
		for _, m := range months {
			if m.Class != class {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(m.Casual), Y: float64(m.Registered)})
			labels = append(labels, m.Label)
		}
		if len(xys) == 0 {
			continue
		}

		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s cluster: %w", class, err)
		}
		sc.GlyphStyle.Color = paletteColor(colors[class])
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(5)

		lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
		if err != nil {
			return nil, fmt.Errorf("failed to label %s cluster: %w", class, err)
		}
		for i := range lbl.TextStyle {
			lbl.TextStyle[i].XAlign = draw.XCenter
		}
		lbl.Offset = vg.Point{Y: vg.Points(6)}

		p.Add(sc, lbl)
		p.Legend.Add(string(class), sc)
	}

	p.X.Min, p.Y.Min = 0, 0
	return render(p)
}
