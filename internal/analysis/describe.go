package analysis

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"bikepulse/internal/dataset"
)

// ColumnStats summarizes one numeric column.
type ColumnStats struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

// Frame converts daily rows into a dataframe of their numeric columns.
func Frame(days []dataset.DayRecord) dataframe.DataFrame {
	n := len(days)
	temp := make([]float64, n)
	atemp := make([]float64, n)
	hum := make([]float64, n)
	wind := make([]float64, n)
	casual := make([]int, n)
	registered := make([]int, n)
	total := make([]int, n)
	for i, r := range days {
		temp[i], atemp[i], hum[i], wind[i] = r.Temp, r.FeelsLike, r.Humidity, r.WindSpeed
		casual[i], registered[i], total[i] = r.Casual, r.Registered, r.Total
	}

	return dataframe.New(
		series.New(temp, series.Float, dataset.ColTemp),
		series.New(atemp, series.Float, dataset.ColFeelsLike),
		series.New(hum, series.Float, dataset.ColHumidity),
		series.New(wind, series.Float, dataset.ColWindSpeed),
		series.New(casual, series.Int, dataset.ColCasual),
		series.New(registered, series.Int, dataset.ColRegistered),
		series.New(total, series.Int, dataset.ColTotal),
	)
}

// Describe returns count, mean, standard deviation, quartiles and extremes of
// every numeric column of the daily table. Empty input yields no rows.
func Describe(days []dataset.DayRecord) []ColumnStats {
	if len(days) == 0 {
		return []ColumnStats{}
	}

	df := Frame(days)
	out := make([]ColumnStats, 0, df.Ncol())
	for _, name := range df.Names() {
		col := df.Col(name)
		out = append(out, ColumnStats{
			Column: name,
			Count:  col.Len(),
			Mean:   finite(col.Mean()),
			Std:    finite(col.StdDev()),
			Min:    finite(col.Min()),
			Q25:    finite(col.Quantile(0.25)),
			Median: finite(col.Quantile(0.5)),
			Q75:    finite(col.Quantile(0.75)),
			Max:    finite(col.Max()),
		})
	}
	return out
}

// finite maps NaN and infinities to zero so results stay JSON encodable.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
