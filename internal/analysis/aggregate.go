package analysis

import (
	"sort"

	"bikepulse/internal/dataset"
)

// HourPoint is the mean rental count of one hour of the day.
type HourPoint struct {
	Hour           int     `json:"hour"`
	MeanTotal      float64 `json:"mean_total"`
	MeanCasual     float64 `json:"mean_casual"`
	MeanRegistered float64 `json:"mean_registered"`
	Count          int     `json:"count"`
}

// GroupTotal is the summed rental count of one category within one year.
type GroupTotal struct {
	Group string `json:"group"`
	Code  int    `json:"code"`
	Year  int    `json:"year"`
	Total int    `json:"total"`
}

// LabelValue is a labelled scalar used by bar and pie charts.
type LabelValue struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// MonthUsers holds the casual and registered sums of one month.
type MonthUsers struct {
	Month      int    `json:"month"`
	Label      string `json:"label"`
	Casual     int    `json:"casual"`
	Registered int    `json:"registered"`
}

// HourlyMean averages rentals per hour of day. Only hours present in the
// input appear, in ascending order.
func HourlyMean(hours []dataset.HourRecord) []HourPoint {
	type acc struct {
		total, casual, registered, n int
	}
	var buckets [24]acc
	for _, r := range hours {
		if r.Hour < 0 || r.Hour > 23 {
			continue
		}
		b := &buckets[r.Hour]
		b.total += r.Total
		b.casual += r.Casual
		b.registered += r.Registered
		b.n++
	}

	points := make([]HourPoint, 0, 24)
	for h, b := range buckets {
		if b.n == 0 {
			continue
		}
		n := float64(b.n)
		points = append(points, HourPoint{
			Hour:           h,
			MeanTotal:      float64(b.total) / n,
			MeanCasual:     float64(b.casual) / n,
			MeanRegistered: float64(b.registered) / n,
			Count:          b.n,
		})
	}
	return points
}

type yearKey struct {
	code, year int
}

func sumByYear(days []dataset.DayRecord, code func(dataset.DayRecord) int, label func(int) string) []GroupTotal {
	sums := make(map[yearKey]int)
	for _, r := range days {
		sums[yearKey{code(r), r.Year}] += r.Total
	}

	out := make([]GroupTotal, 0, len(sums))
	for k, total := range sums {
		out = append(out, GroupTotal{Group: label(k.code), Code: k.code, Year: k.year, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].Year < out[j].Year
	})
	return out
}

// SeasonByYear sums rentals per (season, year).
func SeasonByYear(days []dataset.DayRecord) []GroupTotal {
	return sumByYear(days,
		func(r dataset.DayRecord) int { return int(r.Season) },
		func(c int) string { return dataset.Season(c).String() })
}

// WeatherByYear sums rentals per (weather, year).
func WeatherByYear(days []dataset.DayRecord) []GroupTotal {
	return sumByYear(days,
		func(r dataset.DayRecord) int { return int(r.Weather) },
		func(c int) string { return dataset.Weather(c).String() })
}

// DayTypeTotals sums rentals per day type. Absent day types are omitted.
func DayTypeTotals(days []dataset.DayRecord) []LabelValue {
	sums := make(map[dataset.DayType]int)
	for _, r := range days {
		sums[r.DayType()] += r.Total
	}

	out := make([]LabelValue, 0, len(sums))
	for _, dt := range dataset.AllDayTypes() {
		if v, ok := sums[dt]; ok {
			out = append(out, LabelValue{Label: dt.String(), Value: float64(v)})
		}
	}
	return out
}

// DayTypeShares converts DayTypeTotals into percentages. It returns an empty
// slice when there are no rentals at all.
func DayTypeShares(days []dataset.DayRecord) []LabelValue {
	totals := DayTypeTotals(days)

	var sum float64
	for _, t := range totals {
		sum += t.Value
	}
	if sum == 0 {
		return []LabelValue{}
	}

	shares := make([]LabelValue, len(totals))
	for i, t := range totals {
		shares[i] = LabelValue{Label: t.Label, Value: t.Value / sum * 100}
	}
	return shares
}

// WorkingDayMeans averages the daily total per day type.
func WorkingDayMeans(days []dataset.DayRecord) []LabelValue {
	type acc struct{ sum, n int }
	groups := make(map[dataset.DayType]*acc)
	for _, r := range days {
		a, ok := groups[r.DayType()]
		if !ok {
			a = &acc{}
			groups[r.DayType()] = a
		}
		a.sum += r.Total
		a.n++
	}

	out := make([]LabelValue, 0, len(groups))
	for _, dt := range dataset.AllDayTypes() {
		if a, ok := groups[dt]; ok {
			out = append(out, LabelValue{Label: dt.String(), Value: float64(a.sum) / float64(a.n)})
		}
	}
	return out
}

// MonthlyUsers sums casual and registered rentals per calendar month across
// all years in the input, in month order.
func MonthlyUsers(days []dataset.DayRecord) []MonthUsers {
	var months [12]MonthUsers
	var seen [12]bool
	for _, r := range days {
		if r.Month < 1 || r.Month > 12 {
			continue
		}
		m := &months[r.Month-1]
		m.Casual += r.Casual
		m.Registered += r.Registered
		seen[r.Month-1] = true
	}

	out := make([]MonthUsers, 0, 12)
	for i, m := range months {
		if !seen[i] {
			continue
		}
		m.Month = i + 1
		m.Label = dataset.MonthLabel(i + 1)
		out = append(out, m)
	}
	return out
}

// WeekdayMeans averages the daily total per weekday, Sunday first.
func WeekdayMeans(days []dataset.DayRecord) []LabelValue {
	var sums, counts [7]int
	for _, r := range days {
		if r.Weekday < 0 || r.Weekday > 6 {
			continue
		}
		sums[r.Weekday] += r.Total
		counts[r.Weekday]++
	}

	out := make([]LabelValue, 0, 7)
	for d := range sums {
		if counts[d] == 0 {
			continue
		}
		out = append(out, LabelValue{Label: dataset.WeekdayLabel(d), Value: float64(sums[d]) / float64(counts[d])})
	}
	return out
}
