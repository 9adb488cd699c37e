package analysis

import (
	"time"

	"bikepulse/internal/dataset"
)

// RFMRow is the recency/frequency/monetary summary of one day. Frequency and
// Monetary both carry the daily total.
type RFMRow struct {
	Date        time.Time `json:"date"`
	RecencyDays int       `json:"recency_days"`
	Frequency   int       `json:"frequency"`
	Monetary    int       `json:"monetary"`
}

// RFM summarizes each day relative to asOf. A zero asOf uses the latest date
// in the input.
func RFM(days []dataset.DayRecord, asOf time.Time) []RFMRow {
	if asOf.IsZero() {
		for _, r := range days {
			if r.Date.After(asOf) {
				asOf = r.Date
			}
		}
	}

	out := make([]RFMRow, len(days))
	for i, r := range days {
		out[i] = RFMRow{
			Date:        r.Date,
			RecencyDays: int(asOf.Sub(r.Date).Hours() / 24),
			Frequency:   r.Total,
			Monetary:    r.Total,
		}
	}
	return out
}
