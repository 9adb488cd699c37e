package charts

import (
	"bytes"
	"fmt"

	chart "github.com/wcharczuk/go-chart/v2"

	"bikepulse/internal/analysis"
)

const pieSize = 480

// DayTypePie renders the share of rentals per day type. Labels carry the
// percentage of the total.
func DayTypePie(totals []analysis.LabelValue) ([]byte, error) {
	var sum float64
	for _, t := range totals {
		sum += t.Value
	}
	if sum <= 0 {
		return Empty()
	}

	values := make([]chart.Value, 0, len(totals))
	for _, t := range totals {
		if t.Value <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Value: t.Value,
			Label: fmt.Sprintf("%s (%.1f%%)", t.Label, t.Value/sum*100),
		})
	}

	pie := chart.PieChart{
		Title:  "Share of Rentals by Day Type",
		Width:  pieSize,
		Height: pieSize,
		Values: values,
		Background: chart.Style{
			Padding: chart.Box{Top: 30, Left: 10, Right: 10, Bottom: 10},
		},
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render pie chart: %w", err)
	}
	return buf.Bytes(), nil
}
