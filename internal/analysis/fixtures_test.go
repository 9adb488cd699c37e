package analysis

import (
	"time"

	"bikepulse/internal/dataset"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func day(t time.Time, season dataset.Season, weather dataset.Weather, working bool, casual, registered int) dataset.DayRecord {
	return dataset.DayRecord{
		Date:       t,
		Season:     season,
		Year:       t.Year(),
		Month:      int(t.Month()),
		Weekday:    int(t.Weekday()),
		WorkingDay: working,
		Weather:    weather,
		Temp:       0.5,
		FeelsLike:  0.5,
		Humidity:   0.5,
		WindSpeed:  0.2,
		Casual:     casual,
		Registered: registered,
		Total:      casual + registered,
	}
}

// sampleDays spans two years and every season.
func sampleDays() []dataset.DayRecord {
	return []dataset.DayRecord{
		day(date(2011, 1, 1), dataset.SeasonSpring, dataset.WeatherMist, false, 331, 654),
		day(date(2011, 1, 3), dataset.SeasonSpring, dataset.WeatherClear, true, 120, 1229),
		day(date(2011, 6, 15), dataset.SeasonSummer, dataset.WeatherClear, true, 900, 4000),
		day(date(2011, 9, 30), dataset.SeasonFall, dataset.WeatherLightPrecip, true, 200, 1500),
		day(date(2012, 1, 2), dataset.SeasonSpring, dataset.WeatherClear, false, 500, 2500),
		day(date(2012, 7, 4), dataset.SeasonFall, dataset.WeatherClear, false, 3000, 4000),
		day(date(2012, 12, 24), dataset.SeasonWinter, dataset.WeatherMist, false, 400, 2000),
	}
}

// sampleHours covers every hour of two days with varying measurements.
func sampleHours() []dataset.HourRecord {
	var out []dataset.HourRecord
	days := []dataset.DayRecord{
		day(date(2011, 1, 1), dataset.SeasonSpring, dataset.WeatherMist, false, 0, 0),
		day(date(2011, 1, 3), dataset.SeasonSpring, dataset.WeatherClear, true, 0, 0),
	}
	for di, d := range days {
		for h := 0; h < 24; h++ {
			r := d
			r.Temp = float64(h) / 24
			r.FeelsLike = float64(h) / 25
			r.Humidity = 1 - float64(h)/24
			r.WindSpeed = float64((h+di)%5) / 10
			r.Casual = h + di
			r.Registered = 10*h + di
			r.Total = r.Casual + r.Registered
			if h%6 == 0 {
				r.Weather = dataset.WeatherLightPrecip
			}
			out = append(out, dataset.HourRecord{DayRecord: r, Hour: h})
		}
	}
	return out
}
