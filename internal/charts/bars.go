package charts

import (
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"bikepulse/internal/analysis"
)

var barWidth = vg.Points(24)

// WorkingDayBar plots the mean daily rentals per day type.
func WorkingDayBar(values []analysis.LabelValue) ([]byte, error) {
	return labelBars("Average Daily Rentals: Working Day vs Weekend/Holiday", "Day type", "Average rentals per day", values)
}

// WeekdayBar plots the mean daily rentals per weekday.
func WeekdayBar(values []analysis.LabelValue) ([]byte, error) {
	return labelBars("Average Daily Rentals by Weekday", "Weekday", "Average rentals per day", values)
}

func labelBars(title, xLabel, yLabel string, values []analysis.LabelValue) ([]byte, error) {
	if len(values) == 0 {
		return Empty()
	}

	p := newPlot(title, xLabel, yLabel)

	vals := make(plotter.Values, len(values))
	labels := make([]string, len(values))
	for i, v := range values {
		vals[i] = v.Value
		labels[i] = v.Label
	}

	bars, err := plotter.NewBarChart(vals, barWidth*2)
	if err != nil {
		return nil, fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.Color = paletteColor(0)
	bars.LineStyle.Width = vg.Length(0)

	p.Add(plotter.NewGrid(), bars)
	p.NominalX(labels...)
	p.Y.Min = 0
	return render(p)
}

// SeasonYearBars plots total rentals per season, one bar per year.
func SeasonYearBars(groups []analysis.GroupTotal) ([]byte, error) {
	return groupedBars("Total Rentals by Season and Year", "Season", groups)
}

// WeatherYearBars plots total rentals per weather situation, one bar per year.
func WeatherYearBars(groups []analysis.GroupTotal) ([]byte, error) {
	return groupedBars("Total Rentals by Weather and Year", "Weather", groups)
}

func groupedBars(title, xLabel string, groups []analysis.GroupTotal) ([]byte, error) {
	if len(groups) == 0 {
		return Empty()
	}

	// categories in code order, years ascending
	var codes, years []int
	labelOf := make(map[int]string)
	seenYear := make(map[int]bool)
	totals := make(map[[2]int]float64)
	for _, g := range groups {
		if _, ok := labelOf[g.Code]; !ok {
			labelOf[g.Code] = g.Group
			codes = append(codes, g.Code)
		}
		if !seenYear[g.Year] {
			seenYear[g.Year] = true
			years = append(years, g.Year)
		}
		totals[[2]int{g.Code, g.Year}] += float64(g.Total)
	}
	sort.Ints(codes)
	sort.Ints(years)

	p := newPlot(title, xLabel, "Total rentals")
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for i, year := range years {
		vals := make(plotter.Values, len(codes))
		for j, code := range codes {
			vals[j] = totals[[2]int{code, year}]
		}

		bars, err := plotter.NewBarChart(vals, barWidth)
		if err != nil {
			return nil, fmt.Errorf("failed to build bars for %d: %w", year, err)
		}
		bars.Color = paletteColor(i)
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = barWidth * vg.Length(float64(i)-float64(len(years)-1)/2)

		p.Add(bars)
		p.Legend.Add(strconv.Itoa(year), bars)
	}

	labels := make([]string, len(codes))
	for i, code := range codes {
		labels[i] = labelOf[code]
	}
	p.NominalX(labels...)
	p.Y.Min = 0
	return render(p)
}
