// Package exporter writes filtered bike-sharing tables as CSV or XLSX.
//
// Write holds the low-level CSV encoding with an optional UTF-8 BOM for
// Excel compatibility. FileWriter places export files under an export
// directory and never leaves a partial file behind. DayRecordsCSV and
// HourRecordsCSV encode the dataset tables with their original column names, and WriteWorkbook produces a workbook with a
// "daily" and an "hourly" sheet.
//
// Example usage:
//
//	w := exporter.NewFileWriter(paths.ExportsDir)
//	path, err := w.WriteFile("day_2012.xlsx", func(out io.Writer) error {
//		return exporter.WriteWorkbook(out, days, hours)
//	})
package exporter
