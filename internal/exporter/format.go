package exporter

import (
	"strconv"
)

// formatFloat keeps the full precision of normalized measurements
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatInt formats an integer value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatFlag renders a boolean as the dataset's 0/1 flag
func formatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
