package exporter

import (
	"io"

	"bikepulse/internal/dataset"
)

// Table is a header plus string rows ready for CSV encoding.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// DayHeaders lists the exported daily columns. Category columns carry
// their labels next to the numeric codes.
var DayHeaders = []string{
	dataset.ColInstant, dataset.ColDate, dataset.ColSeason, "season_label", dataset.ColYear, dataset.ColMonth,
	dataset.ColHoliday, dataset.ColWeekday, dataset.ColWorkingDay, "day_type", dataset.ColWeather, "weather_label",
	dataset.ColTemp, dataset.ColFeelsLike, dataset.ColHumidity, dataset.ColWindSpeed,
	dataset.ColCasual, dataset.ColRegistered, dataset.ColTotal,
}

// HourHeaders lists the exported hourly columns.
var HourHeaders = append(append([]string{}, DayHeaders[:6]...), append([]string{dataset.ColHour}, DayHeaders[6:]...)...)

func dayCells(r dataset.DayRecord) []string {
	return []string{
		formatInt(r.Instant),
		r.Date.Format(dataset.DateLayout),
		formatInt(int(r.Season)),
		r.Season.String(),
		formatInt(r.Year - dataset.BaseYear),
		formatInt(r.Month),
		formatFlag(r.Holiday),
		formatInt(r.Weekday),
		formatFlag(r.WorkingDay),
		r.DayType().String(),
		formatInt(int(r.Weather)),
		r.Weather.String(),
		formatFloat(r.Temp),
		formatFloat(r.FeelsLike),
		formatFloat(r.Humidity),
		formatFloat(r.WindSpeed),
		formatInt(r.Casual),
		formatInt(r.Registered),
		formatInt(r.Total),
	}
}

func hourCells(r dataset.HourRecord) []string {
	cells := dayCells(r.DayRecord)
	out := make([]string, 0, len(cells)+1)
	out = append(out, cells[:6]...)
	out = append(out, formatInt(r.Hour))
	return append(out, cells[6:]...)
}

// DayTable converts daily rows into a table.
func DayTable(days []dataset.DayRecord) Table {
	rows := make([][]string, len(days))
	for i, r := range days {
		rows[i] = dayCells(r)
	}
	return Table{Name: "daily", Headers: DayHeaders, Rows: rows}
}

// HourTable converts hourly rows into a table.
func HourTable(hours []dataset.HourRecord) Table {
	rows := make([][]string, len(hours))
	for i, r := range hours {
		rows[i] = hourCells(r)
	}
	return Table{Name: "hourly", Headers: HourHeaders, Rows: rows}
}

// DayRecordsCSV encodes daily rows as CSV with a BOM.
func DayRecordsCSV(w io.Writer, days []dataset.DayRecord) error {
	t := DayTable(days)
	return Write(w, WriteOptions{Headers: t.Headers, Records: t.Rows, BOMPrefix: true})
}

// HourRecordsCSV encodes hourly rows as CSV with a BOM.
func HourRecordsCSV(w io.Writer, hours []dataset.HourRecord) error {
	t := HourTable(hours)
	return Write(w, WriteOptions{Headers: t.Headers, Records: t.Rows, BOMPrefix: true})
}
