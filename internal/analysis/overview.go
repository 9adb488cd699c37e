package analysis

import (
	"time"

	"bikepulse/internal/dataset"
)

// Overview is the KPI block shown above every view.
type Overview struct {
	TotalRentals    int        `json:"total_rentals"`
	Casual          int        `json:"casual"`
	Registered      int        `json:"registered"`
	CasualShare     float64    `json:"casual_share"`
	Days            int        `json:"days"`
	MeanPerDay      float64    `json:"mean_per_day"`
	PeakHour        int        `json:"peak_hour"`
	PeakHourMean    float64    `json:"peak_hour_mean"`
	BusiestDay      *time.Time `json:"busiest_day,omitempty"`
	BusiestDayTotal int        `json:"busiest_day_total"`
}

// Summarize computes the KPIs of already filtered tables. PeakHour is -1
// when there are no hourly rows.
func Summarize(days []dataset.DayRecord, hours []dataset.HourRecord) Overview {
	o := Overview{PeakHour: -1, Days: len(days)}

	var busiest *dataset.DayRecord
	for i := range days {
		r := &days[i]
		o.TotalRentals += r.Total
		o.Casual += r.Casual
		o.Registered += r.Registered
		if busiest == nil || r.Total > busiest.Total {
			busiest = r
		}
	}
	if busiest != nil {
		d := busiest.Date
		o.BusiestDay = &d
		o.BusiestDayTotal = busiest.Total
	}
	if o.Days > 0 {
		o.MeanPerDay = float64(o.TotalRentals) / float64(o.Days)
	}
	if o.TotalRentals > 0 {
		o.CasualShare = float64(o.Casual) / float64(o.TotalRentals) * 100
	}

	for _, p := range HourlyMean(hours) {
		if o.PeakHour < 0 || p.MeanTotal > o.PeakHourMean {
			o.PeakHour, o.PeakHourMean = p.Hour, p.MeanTotal
		}
	}
	return o
}
