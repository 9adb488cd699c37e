package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"bikepulse/internal/dataset"
	"bikepulse/internal/exporter"
)

// SampleDays returns six daily records covering both years, all seasons,
// three weather situations and both day types.
func SampleDays() []dataset.DayRecord {
	rows := []struct {
		date       string
		season     dataset.Season
		holiday    bool
		weekday    int
		working    bool
		weather    dataset.Weather
		temp, atmp float64
		hum, wind  float64
		casual     int
		registered int
	}{
		{"2011-01-01", dataset.SeasonSpring, false, 6, false, dataset.WeatherMist, 0.34, 0.36, 0.80, 0.16, 331, 654},
		{"2011-01-03", dataset.SeasonSpring, false, 1, true, dataset.WeatherClear, 0.20, 0.19, 0.44, 0.25, 120, 1229},
		{"2011-07-04", dataset.SeasonFall, true, 1, false, dataset.WeatherClear, 0.81, 0.75, 0.60, 0.19, 3065, 2978},
		{"2011-07-05", dataset.SeasonFall, false, 2, true, dataset.WeatherMist, 0.79, 0.74, 0.65, 0.12, 1031, 4456},
		{"2012-04-14", dataset.SeasonSummer, false, 6, false, dataset.WeatherClear, 0.55, 0.53, 0.45, 0.30, 3252, 3605},
		{"2012-10-29", dataset.SeasonWinter, false, 1, true, dataset.WeatherLightPrecip, 0.44, 0.44, 0.88, 0.36, 2, 20},
	}

	days := make([]dataset.DayRecord, 0, len(rows))
	for i, r := range rows {
		d, err := time.Parse(dataset.DateLayout, r.date)
		if err != nil {
			panic(err)
		}
		days = append(days, dataset.DayRecord{
			Instant:    i + 1,
			Date:       d,
			Season:     r.season,
			Year:       d.Year(),
			Month:      int(d.Month()),
			Holiday:    r.holiday,
			Weekday:    r.weekday,
			WorkingDay: r.working,
			Weather:    r.weather,
			Temp:       r.temp,
			FeelsLike:  r.atmp,
			Humidity:   r.hum,
			WindSpeed:  r.wind,
			Casual:     r.casual,
			Registered: r.registered,
			Total:      r.casual + r.registered,
		})
	}
	return days
}

// SampleHours returns 48 hourly records: every hour of the first two sample
// days. Demand grows with the hour so hour 23 is the peak.
func SampleHours() []dataset.HourRecord {
	days := SampleDays()[:2]
	hours := make([]dataset.HourRecord, 0, 48)
	for _, day := range days {
		for h := 0; h < 24; h++ {
			rec := day
			rec.Instant = len(hours) + 1
			rec.Temp = day.Temp + float64(h)/100
			if day.WorkingDay {
				rec.Casual, rec.Registered = h%3, 2*h+5
			} else {
				rec.Casual, rec.Registered = h%4, h+1
			}
			rec.Total = rec.Casual + rec.Registered
			hours = append(hours, dataset.HourRecord{DayRecord: rec, Hour: h})
		}
	}
	return hours
}

// SampleDataset bundles SampleDays and SampleHours.
func SampleDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Days:     SampleDays(),
		Hours:    SampleHours(),
		Source:   "memory",
		LoadedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// MemorySource serves dataset files from memory.
type MemorySource struct {
	Files map[string][]byte
}

// NewSampleSource returns a MemorySource holding the sample tables encoded as CSV.
func NewSampleSource() *MemorySource {
	var day, hour bytes.Buffer
	if err := exporter.DayRecordsCSV(&day, SampleDays()); err != nil {
		panic(err)
	}
	if err := exporter.HourRecordsCSV(&hour, SampleHours()); err != nil {
		panic(err)
	}
	return &MemorySource{Files: map[string][]byte{
		dataset.DayFile:  day.Bytes(),
		dataset.HourFile: hour.Bytes(),
	}}
}

// Open implements dataset.Source
func (m *MemorySource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := m.Files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dataset.ErrDatasetNotFound, name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemorySource) String() string { return "memory" }

// NewLoadedStore returns a store backed by NewSampleSource that already holds
// the sample dataset.
func NewLoadedStore(t *testing.T, logger *slog.Logger) *dataset.Store {
	t.Helper()
	store := dataset.NewStore(NewSampleSource(), logger)
	store.Replace(SampleDataset())
	return store
}
