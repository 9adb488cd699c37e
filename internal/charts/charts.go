// Package charts renders the dashboard views as PNG images.
package charts

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// NoDataTitle is the title of a chart rendered from an empty selection.
const NoDataTitle = "No data for the selected filters"

// Default image size.
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 4.5 * vg.Inch
)

// Kind names a chart endpoint.
type Kind string

const (
	KindHourly      Kind = "hourly"
	KindWeather     Kind = "weather"
	KindWorkingDay  Kind = "workingday"
	KindWeekday     Kind = "weekday"
	KindSeasonal    Kind = "seasonal"
	KindDayType     Kind = "daytype"
	KindWeatherYear Kind = "weather-year"
	KindClusters    Kind = "clusters"
)

// Kinds lists every chart kind.
func Kinds() []Kind {
	return []Kind{KindHourly, KindWeather, KindWorkingDay, KindWeekday, KindSeasonal, KindDayType, KindWeatherYear, KindClusters}
}

// ParseKind validates a chart kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

var palette = []color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 255, G: 127, B: 14, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
	color.RGBA{R: 148, G: 103, B: 189, A: 255},
}

func paletteColor(i int) color.Color {
	return palette[i%len(palette)]
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

// Empty renders a blank chart titled NoDataTitle.
func Empty() ([]byte, error) {
	p := newPlot(NoDataTitle, "", "")
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.HideAxes()
	return render(p)
}

func render(p *plot.Plot) ([]byte, error) {
	w, err := p.WriterTo(DefaultWidth, DefaultHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create chart canvas: %w", err)
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}
	return buf.Bytes(), nil
}
