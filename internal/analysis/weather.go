package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"bikepulse/internal/dataset"
)

// Variable names a normalized weather measurement.
type Variable string

const (
	VarTemp      Variable = "temp"
	VarFeelsLike Variable = "atemp"
	VarHumidity  Variable = "hum"
	VarWindSpeed Variable = "windspeed"
)

// Variables lists the measurements in display order.
func Variables() []Variable {
	return []Variable{VarTemp, VarFeelsLike, VarHumidity, VarWindSpeed}
}

// ParseVariable accepts the column name of a measurement.
func ParseVariable(s string) (Variable, error) {
	for _, v := range Variables() {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariable, s)
}

// Label returns the axis label of the measurement.
func (v Variable) Label() string {
	switch v {
	case VarTemp:
		return "Temperature (normalized)"
	case VarFeelsLike:
		return "Feels-like temperature (normalized)"
	case VarHumidity:
		return "Humidity (normalized)"
	case VarWindSpeed:
		return "Wind speed (normalized)"
	}
	return string(v)
}

func (v Variable) of(r dataset.DayRecord) float64 {
	switch v {
	case VarFeelsLike:
		return r.FeelsLike
	case VarHumidity:
		return r.Humidity
	case VarWindSpeed:
		return r.WindSpeed
	}
	return r.Temp
}

// Point is one (measurement, rentals) pair.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WeatherSeries holds the scatter points of one weather situation.
type WeatherSeries struct {
	Weather dataset.Weather `json:"weather"`
	Label   string          `json:"label"`
	Points  []Point         `json:"points"`
}

// WeatherPoints pairs the chosen measurement with the hourly total, one
// series per weather situation present in the input.
func WeatherPoints(hours []dataset.HourRecord, v Variable) []WeatherSeries {
	byWeather := make(map[dataset.Weather][]Point)
	for _, r := range hours {
		byWeather[r.Weather] = append(byWeather[r.Weather], Point{X: v.of(r.DayRecord), Y: float64(r.Total)})
	}

	out := make([]WeatherSeries, 0, len(byWeather))
	for _, w := range dataset.AllWeathers() {
		if pts, ok := byWeather[w]; ok {
			out = append(out, WeatherSeries{Weather: w, Label: w.String(), Points: pts})
		}
	}
	return out
}

// Correlation is the Pearson coefficient between a measurement and the
// hourly total. Defined is false when it cannot be computed.
type Correlation struct {
	Variable Variable `json:"variable"`
	R        float64  `json:"r"`
	Defined  bool     `json:"defined"`
}

// Correlations computes the Pearson r of total rentals against every
// measurement.
func Correlations(hours []dataset.HourRecord) []Correlation {
	totals := make([]float64, len(hours))
	for i, r := range hours {
		totals[i] = float64(r.Total)
	}

	out := make([]Correlation, 0, len(Variables()))
	for _, v := range Variables() {
		c := Correlation{Variable: v}
		if len(hours) >= 2 {
			xs := make([]float64, len(hours))
			for i, r := range hours {
				xs[i] = v.of(r.DayRecord)
			}
			r := stat.Correlation(xs, totals, nil)
			if !math.IsNaN(r) && !math.IsInf(r, 0) {
				c.R, c.Defined = r, true
			}
		}
		out = append(out, c)
	}
	return out
}
