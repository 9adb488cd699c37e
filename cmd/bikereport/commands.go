package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"bikepulse/internal/analysis"
	"bikepulse/internal/charts"
	"bikepulse/internal/dataset"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/exporter"
	"bikepulse/internal/services"
)

func newSummaryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Headline figures of the filtered data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}
			ov, err := e.service.Overview(cmd.Context(), e.filter())
			if err != nil {
				return err
			}

			busiest := "-"
			if ov.BusiestDay != nil {
				busiest = fmt.Sprintf("%s (%d)", ov.BusiestDay.Format(dataset.DateLayout), ov.BusiestDayTotal)
			}
			r := &report{
				title:   "Summary",
				header:  table.Row{"Metric", "Value"},
				numeric: []int{2},
			}
			r.add("Total rentals", ov.TotalRentals)
			r.add("Casual", ov.Casual)
			r.add("Registered", ov.Registered)
			r.add("Casual share", pct(ov.CasualShare))
			r.add("Days", ov.Days)
			r.add("Mean per day", f1(ov.MeanPerDay))
			r.add("Peak hour", fmt.Sprintf("%02d:00 (%s)", ov.PeakHour, f1(ov.PeakHourMean)))
			r.add("Busiest day", busiest)
			r.render(e.out, e.format)
			return nil
		},
	}
}

func newHourlyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "hourly",
		Short: "Mean rentals per hour of day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}
			points, err := e.service.Hourly(cmd.Context(), e.filter())
			if err != nil {
				return err
			}

			r := &report{
				title:   "Hourly profile",
				header:  table.Row{"Hour", "Mean total", "Mean casual", "Mean registered", "Rows"},
				numeric: []int{2, 3, 4, 5},
			}
			for _, p := range points {
				r.add(fmt.Sprintf("%02d", p.Hour), f1(p.MeanTotal), f1(p.MeanCasual), f1(p.MeanRegistered), p.Count)
			}
			r.render(e.out, e.format)
			return nil
		},
	}
}

func newSeasonalCmd(opts *options) *cobra.Command {
	var byWeather bool
	cmd := &cobra.Command{
		Use:   "seasonal",
		Short: "Total rentals per season and year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}

			get, label := e.service.Seasonal, "Season"
			if byWeather {
				get, label = e.service.WeatherByYear, "Weather"
			}
			totals, err := get(cmd.Context(), e.filter())
			if err != nil {
				return err
			}

			r := &report{
				title:   "Totals by " + strings.ToLower(label),
				header:  table.Row{label, "Year", "Total"},
				numeric: []int{2, 3},
			}
			sum := 0
			for _, t := range totals {
				r.add(t.Group, t.Year, t.Total)
				sum += t.Total
			}
			r.footer = table.Row{"", "", sum}
			r.render(e.out, e.format)
			return nil
		},
	}
	cmd.Flags().BoolVar(&byWeather, "by-weather", false, "group by weather situation instead of season")
	return cmd
}

func newClustersCmd(opts *options) *cobra.Command {
	var t analysis.Thresholds
	cmd := &cobra.Command{
		Use:   "clusters",
		Short: "Classify monthly usage as Low, Medium or High",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}

			var override *analysis.Thresholds
			fs := cmd.Flags()
			if fs.Changed("low-casual") || fs.Changed("low-registered") || fs.Changed("med-casual") || fs.Changed("med-registered") {
				merged := e.service.DefaultThresholds()
				if fs.Changed("low-casual") {
					merged.Low.Casual = t.Low.Casual
				}
				if fs.Changed("low-registered") {
					merged.Low.Registered = t.Low.Registered
				}
				if fs.Changed("med-casual") {
					merged.Medium.Casual = t.Medium.Casual
				}
				if fs.Changed("med-registered") {
					merged.Medium.Registered = t.Medium.Registered
				}
				override = &merged
			}
			e.logger.Debug("classifying months", slog.Bool("custom_thresholds", override != nil))

			view, err := e.service.Clusters(cmd.Context(), e.filter(), override)
			if err != nil {
				return err
			}

			r := &report{
				title:   fmt.Sprintf("Usage clusters (low %d/%d, medium %d/%d)", view.Thresholds.Low.Casual, view.Thresholds.Low.Registered, view.Thresholds.Medium.Casual, view.Thresholds.Medium.Registered),
				header:  table.Row{"Month", "Casual", "Registered", "Class"},
				numeric: []int{2, 3},
			}
			for _, m := range view.Months {
				r.add(m.Label, m.Casual, m.Registered, string(m.Class))
			}
			r.footer = table.Row{"", "", "", fmt.Sprintf("L %d / M %d / H %d",
				view.Counts[analysis.ClassLow], view.Counts[analysis.ClassMedium], view.Counts[analysis.ClassHigh])}
			r.render(e.out, e.format)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.IntVar(&t.Low.Casual, "low-casual", 0, "casual bound of the Low class")
	fs.IntVar(&t.Low.Registered, "low-registered", 0, "registered bound of the Low class")
	fs.IntVar(&t.Medium.Casual, "med-casual", 0, "casual bound of the Medium class")
	fs.IntVar(&t.Medium.Registered, "med-registered", 0, "registered bound of the Medium class")
	return cmd
}

func newRFMCmd(opts *options) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "rfm",
		Short: "Recency, frequency and monetary value per day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var ref time.Time
			if asOf != "" {
				t, err := time.Parse(dataset.DateLayout, asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of %q: want YYYY-MM-DD", asOf)
				}
				ref = t
			}

			e, err := opts.load(cmd)
			if err != nil {
				return err
			}
			rows, err := e.service.RFM(cmd.Context(), e.filter(), ref)
			if err != nil {
				return err
			}

			r := &report{
				title:   "RFM",
				header:  table.Row{"Date", "Recency (days)", "Frequency", "Monetary"},
				numeric: []int{2, 3, 4},
			}
			for _, row := range rows {
				r.add(row.Date.Format(dataset.DateLayout), row.RecencyDays, row.Frequency, row.Monetary)
			}
			r.render(e.out, e.format)
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "reference date (default: latest selected date)")
	return cmd
}

func newDescribeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Summary statistics of the numeric daily columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}
			stats, err := e.service.Describe(cmd.Context(), e.filter())
			if err != nil {
				return err
			}

			r := &report{
				title:   "Describe",
				header:  table.Row{"Column", "Count", "Mean", "Std", "Min", "25%", "50%", "75%", "Max"},
				numeric: []int{2, 3, 4, 5, 6, 7, 8, 9},
			}
			for _, s := range stats {
				r.add(s.Column, s.Count, f3(s.Mean), f3(s.Std), f3(s.Min), f3(s.Q25), f3(s.Median), f3(s.Q75), f3(s.Max))
			}
			r.render(e.out, e.format)
			return nil
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:       "export <day|hour> [csv|xlsx]",
		Short:     "Write the filtered table as CSV or XLSX",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{services.TableDay, services.TableHour},
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, format := args[0], services.FormatCSV
			if len(args) == 2 {
				format = args[1]
			}
			if format == services.FormatXLSX && file == "" {
				return fmt.Errorf("xlsx output needs --file")
			}

			e, err := opts.load(cmd)
			if err != nil {
				return err
			}
			export := func(w io.Writer) error {
				return e.service.Export(cmd.Context(), w, e.filter(), tbl, format)
			}
			if file == "" {
				return writeStdout(e.out, export)
			}
			return e.writeFile(cmd, file, export)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "output file, relative to the exports directory (default: stdout)")
	return cmd
}

func newChartCmd(opts *options) *cobra.Command {
	var (
		file     string
		variable string
	)
	kinds := make([]string, 0, len(charts.Kinds()))
	for _, k := range charts.Kinds() {
		kinds = append(kinds, string(k))
	}

	cmd := &cobra.Command{
		Use:       "chart <kind>",
		Short:     "Render one dashboard chart as PNG",
		Long:      "Render one dashboard chart as PNG. Kinds: " + strings.Join(kinds, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := charts.Kind(args[0])
			v, err := analysis.ParseVariable(variable)
			if err != nil {
				return err
			}
			if file == "" {
				file = string(kind) + ".png"
			}

			e, err := opts.load(cmd)
			if err != nil {
				return err
			}
			png, err := e.service.Chart(cmd.Context(), kind, e.filter(), services.ChartOptions{Variable: v})
			if err != nil {
				return err
			}
			return e.writeFile(cmd, file, func(w io.Writer) error {
				_, err := w.Write(png)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "output file, relative to the exports directory (default: <kind>.png)")
	cmd.Flags().StringVar(&variable, "var", string(analysis.VarTemp), "weather chart variable (temp|atemp|hum|windspeed)")
	return cmd
}

// writeStdout runs write against a buffered out.
func writeStdout(out io.Writer, write func(io.Writer) error) error {
	bw := bufio.NewWriter(out)
	if err := write(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// writeFile places the output of write under the exports directory and
// reports the resolved path on stderr.
func (e *env) writeFile(cmd *cobra.Command, file string, write func(io.Writer) error) error {
	path, err := e.exports.WriteFile(file, write)
	if err != nil {
		if errors.Is(err, exporter.ErrExportFile) {
			return apierrors.NewStorageError("failed to write export file", err).
				WithContext("file", e.exports.Path(file))
		}
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	return nil
}
