package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"bikepulse/internal/dataset"
)

// Sheet names of the exported workbook.
const (
	SheetDaily  = "daily"
	SheetHourly = "hourly"
)

// WriteWorkbook writes an XLSX workbook with the daily and hourly tables.
// Numeric columns are stored as numbers.
func WriteWorkbook(w io.Writer, days []dataset.DayRecord, hours []dataset.HourRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetDaily); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetHourly); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	dayRows := make([][]interface{}, len(days))
	for i, r := range days {
		dayRows[i] = dayValues(r)
	}
	if err := writeSheet(f, SheetDaily, DayHeaders, dayRows, headerStyle); err != nil {
		return err
	}

	hourRows := make([][]interface{}, len(hours))
	for i, r := range hours {
		v := dayValues(r.DayRecord)
		row := make([]interface{}, 0, len(v)+1)
		row = append(row, v[:6]...)
		row = append(row, r.Hour)
		hourRows[i] = append(row, v[6:]...)
	}
	if err := writeSheet(f, SheetHourly, HourHeaders, hourRows, headerStyle); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}, headerStyle int) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open %s sheet: %w", sheet, err)
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s sheet: %w", sheet, err)
	}
	return nil
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func dayValues(r dataset.DayRecord) []interface{} {
	return []interface{}{
		r.Instant,
		r.Date.Format(dataset.DateLayout),
		int(r.Season),
		r.Season.String(),
		r.Year - dataset.BaseYear,
		r.Month,
		flag(r.Holiday),
		r.Weekday,
		flag(r.WorkingDay),
		r.DayType().String(),
		int(r.Weather),
		r.Weather.String(),
		r.Temp,
		r.FeelsLike,
		r.Humidity,
		r.WindSpeed,
		r.Casual,
		r.Registered,
		r.Total,
	}
}
