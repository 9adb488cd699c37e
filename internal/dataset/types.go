package dataset

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the layout of the dteday column.
const DateLayout = "2006-01-02"

// BaseYear is the calendar year encoded as yr=0.
const BaseYear = 2011

// Season is the meteorological season code (1..4).
type Season int

const (
	SeasonSpring Season = 1
	SeasonSummer Season = 2
	SeasonFall   Season = 3
	SeasonWinter Season = 4
)

var seasonLabels = map[Season]string{
	SeasonSpring: "Spring",
	SeasonSummer: "Summer",
	SeasonFall:   "Fall",
	SeasonWinter: "Winter",
}

// String returns the human-readable season label.
func (s Season) String() string {
	if l, ok := seasonLabels[s]; ok {
		return l
	}
	return fmt.Sprintf("Season(%d)", int(s))
}

// Valid reports whether s is one of the four known seasons.
func (s Season) Valid() bool {
	_, ok := seasonLabels[s]
	return ok
}

// Weather is the weathersit code (1..4).
type Weather int

const (
	WeatherClear       Weather = 1
	WeatherMist        Weather = 2
	WeatherLightPrecip Weather = 3
	WeatherHeavyPrecip Weather = 4
)

var weatherLabels = map[Weather]string{
	WeatherClear:       "Clear/Cloudy",
	WeatherMist:        "Mist",
	WeatherLightPrecip: "Light Snow/Rain",
	WeatherHeavyPrecip: "Heavy Rain/Fog",
}

// String returns the human-readable weather label.
func (w Weather) String() string {
	if l, ok := weatherLabels[w]; ok {
		return l
	}
	return fmt.Sprintf("Weather(%d)", int(w))
}

// Valid reports whether w is one of the four known weather situations.
func (w Weather) Valid() bool {
	_, ok := weatherLabels[w]
	return ok
}

// DayType classifies a date by the workingday flag.
type DayType int

const (
	DayTypeWeekendHoliday DayType = 0
	DayTypeWorking        DayType = 1
)

// String returns the human-readable day type label.
func (d DayType) String() string {
	switch d {
	case DayTypeWorking:
		return "Working Day"
	case DayTypeWeekendHoliday:
		return "Weekend/Holiday"
	}
	return fmt.Sprintf("DayType(%d)", int(d))
}

// Valid reports whether d is a known day type.
func (d DayType) Valid() bool {
	return d == DayTypeWorking || d == DayTypeWeekendHoliday
}

var monthLabels = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var weekdayLabels = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// MonthLabel returns the three-letter label of month m (1..12).
func MonthLabel(m int) string {
	if m < 1 || m > 12 {
		return fmt.Sprintf("Month(%d)", m)
	}
	return monthLabels[m-1]
}

// WeekdayLabel returns the label of weekday d (0=Sunday..6=Saturday).
func WeekdayLabel(d int) string {
	if d < 0 || d > 6 {
		return fmt.Sprintf("Weekday(%d)", d)
	}
	return weekdayLabels[d]
}

// AllSeasons lists the seasons in code order.
func AllSeasons() []Season {
	return []Season{SeasonSpring, SeasonSummer, SeasonFall, SeasonWinter}
}

// AllWeathers lists the weather situations in code order.
func AllWeathers() []Weather {
	return []Weather{WeatherClear, WeatherMist, WeatherLightPrecip, WeatherHeavyPrecip}
}

// AllDayTypes lists the day types, working days first.
func AllDayTypes() []DayType {
	return []DayType{DayTypeWorking, DayTypeWeekendHoliday}
}

// ParseSeasonLabel maps a label back to its Season.
func ParseSeasonLabel(label string) (Season, bool) {
	for s, l := range seasonLabels {
		if l == label {
			return s, true
		}
	}
	return 0, false
}

// ParseWeatherLabel maps a label back to its Weather.
func ParseWeatherLabel(label string) (Weather, bool) {
	for w, l := range weatherLabels {
		if l == label {
			return w, true
		}
	}
	return 0, false
}

// DayRecord is one row of day.csv.
type DayRecord struct {
	Instant    int       `json:"instant"`
	Date       time.Time `json:"date"`
	Season     Season    `json:"season"`
	Year       int       `json:"year"`
	Month      int       `json:"month"`
	Holiday    bool      `json:"holiday"`
	Weekday    int       `json:"weekday"`
	WorkingDay bool      `json:"working_day"`
	Weather    Weather   `json:"weather"`
	Temp       float64   `json:"temp"`
	FeelsLike  float64   `json:"feels_like"`
	Humidity   float64   `json:"humidity"`
	WindSpeed  float64   `json:"wind_speed"`
	Casual     int       `json:"casual"`
	Registered int       `json:"registered"`
	Total      int       `json:"total"`
}

// DayType returns the record's day type.
func (r DayRecord) DayType() DayType {
	if r.WorkingDay {
		return DayTypeWorking
	}
	return DayTypeWeekendHoliday
}

// MonthLabel returns the record's month label.
func (r DayRecord) MonthLabel() string { return MonthLabel(r.Month) }

// WeekdayLabel returns the record's weekday label.
func (r DayRecord) WeekdayLabel() string { return WeekdayLabel(r.Weekday) }

// HourRecord is one row of hour.csv.
type HourRecord struct {
	DayRecord
	Hour int `json:"hour"`
}

// Dataset is an immutable snapshot of both tables.
type Dataset struct {
	Days     []DayRecord
	Hours    []HourRecord
	Source   string
	LoadedAt time.Time
}

// DateBounds returns the earliest and latest date of the daily table.
func (d *Dataset) DateBounds() (time.Time, time.Time) {
	var first, last time.Time
	for i, r := range d.Days {
		if i == 0 || r.Date.Before(first) {
			first = r.Date
		}
		if i == 0 || r.Date.After(last) {
			last = r.Date
		}
	}
	return first, last
}

// Years returns the distinct calendar years of the daily table in ascending order.
func (d *Dataset) Years() []int {
	seen := make(map[int]bool)
	var years []int
	for _, r := range d.Days {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	sort.Ints(years)
	return years
}
