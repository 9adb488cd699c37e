package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"bikepulse/internal/analysis"
	"bikepulse/internal/config"
	"bikepulse/internal/dataset"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/exporter"
	"bikepulse/internal/infrastructure"
	"bikepulse/internal/middleware"
	"bikepulse/internal/services"
	handlers "bikepulse/internal/transport/http"
)

// options holds the persistent flags shared by every report.
type options struct {
	configFile string
	source     string
	dataDir    string
	baseURL    string
	exportsDir string
	output     string
	verbose    bool
	filter     filterFlags
}

// filterFlags mirror the dashboard query parameters.
type filterFlags struct {
	from, to   string
	years      []int
	seasons    []int
	weathers   []int
	dayTypes   []int
	hourMin    int
	hourMax    int
	tempMin    float64
	tempMax    float64
	humMin     float64
	humMax     float64
	windMin    float64
	windMax    float64
	workingDay int
}

func (f *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.from, "from", "", "first date (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "last date (YYYY-MM-DD)")
	fs.IntSliceVar(&f.years, "year", nil, "calendar years, e.g. 2011,2012")
	fs.IntSliceVar(&f.seasons, "season", nil, "season codes 1-4 (Spring..Winter)")
	fs.IntSliceVar(&f.weathers, "weather", nil, "weather codes 1-4")
	fs.IntSliceVar(&f.dayTypes, "daytype", nil, "0 = holiday/weekend, 1 = working day")
	fs.IntVar(&f.hourMin, "hour-min", 0, "first hour of day")
	fs.IntVar(&f.hourMax, "hour-max", 23, "last hour of day")
	fs.Float64Var(&f.tempMin, "temp-min", 0, "lowest normalized temperature (0-1)")
	fs.Float64Var(&f.tempMax, "temp-max", 1, "highest normalized temperature (0-1)")
	fs.Float64Var(&f.humMin, "hum-min", 0, "lowest normalized humidity (0-1)")
	fs.Float64Var(&f.humMax, "hum-max", 1, "highest normalized humidity (0-1)")
	fs.Float64Var(&f.windMin, "wind-min", 0, "lowest normalized wind speed (0-1)")
	fs.Float64Var(&f.windMax, "wind-max", 1, "highest normalized wind speed (0-1)")
	fs.IntVar(&f.workingDay, "working-day", 0, "restrict to working days (1) or not (0)")
}

// values encodes the flags the user set as a dashboard query string.
func (f *filterFlags) values(fs *pflag.FlagSet) url.Values {
	v := url.Values{}
	ints := func(key string, xs []int) {
		for _, x := range xs {
			v.Add(key, strconv.Itoa(x))
		}
	}
	if f.from != "" {
		v.Set("from", f.from)
	}
	if f.to != "" {
		v.Set("to", f.to)
	}
	ints("year", f.years)
	ints("season", f.seasons)
	ints("weather", f.weathers)
	ints("daytype", f.dayTypes)
	if fs.Changed("hour-min") {
		v.Set("hour_min", strconv.Itoa(f.hourMin))
	}
	if fs.Changed("hour-max") {
		v.Set("hour_max", strconv.Itoa(f.hourMax))
	}
	floats := []struct {
		flag, key string
		value     float64
	}{
		{"temp-min", "temp_min", f.tempMin},
		{"temp-max", "temp_max", f.tempMax},
		{"hum-min", "hum_min", f.humMin},
		{"hum-max", "hum_max", f.humMax},
		{"wind-min", "wind_min", f.windMin},
		{"wind-max", "wind_max", f.windMax},
	}
	for _, fl := range floats {
		if fs.Changed(fl.flag) {
			v.Set(fl.key, strconv.FormatFloat(fl.value, 'f', -1, 64))
		}
	}
	if fs.Changed("working-day") {
		v.Set("workingday", strconv.Itoa(f.workingDay))
	}
	return v
}

// env is what a report needs once the dataset is loaded.
type env struct {
	service *services.DashboardService
	query   handlers.FilterQuery
	exports *exporter.FileWriter
	logger  *slog.Logger
	out     io.Writer
	format  string
}

func (e *env) filter() analysis.Filter { return e.query.Filter() }

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "bikereport",
		Short: "Reports over the bike sharing dataset",
		Long: `bikereport loads day.csv and hour.csv from the configured source and
prints the same aggregates the dashboard shows, as text tables, Markdown or CSV.

Filters use the dashboard semantics: repeated values within one filter are
OR-ed, different filters are AND-ed.`,
		Version:       config.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "config file (default: search config.yaml)")
	pf.StringVar(&opts.source, "source", "", "dataset source: http or file")
	pf.StringVar(&opts.dataDir, "data-dir", "", "directory holding day.csv and hour.csv (implies --source=file)")
	pf.StringVar(&opts.baseURL, "base-url", "", "base URL of day.csv and hour.csv (implies --source=http)")
	pf.StringVar(&opts.exportsDir, "exports-dir", "", "directory for relative --file paths (default: paths.exports_dir)")
	pf.StringVarP(&opts.output, "output", "o", formatTable, "output format (table|markdown|csv)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging on stderr")
	opts.filter.register(pf)

	_ = root.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{formatTable, formatMarkdown, formatCSV}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newSummaryCmd(opts),
		newHourlyCmd(opts),
		newSeasonalCmd(opts),
		newClustersCmd(opts),
		newRFMCmd(opts),
		newDescribeCmd(opts),
		newExportCmd(opts),
		newChartCmd(opts),
	)
	return root
}

// config resolves the configuration with flag overrides applied.
func (o *options) config() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFrom(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, apierrors.NewConfigError("failed to load configuration", err)
	}

	switch {
	case o.source != "":
		cfg.Data.Source = o.source
	case o.dataDir != "":
		cfg.Data.Source = config.SourceFile
	case o.baseURL != "":
		cfg.Data.Source = config.SourceHTTP
	}
	if o.dataDir != "" {
		cfg.Paths.DataDir = o.dataDir
	}
	if o.baseURL != "" {
		cfg.Data.BaseURL = o.baseURL
	}
	if o.exportsDir != "" {
		cfg.Paths.ExportsDir = o.exportsDir
	}
	if cfg.Data.Source != config.SourceFile && cfg.Data.Source != config.SourceHTTP {
		return nil, fmt.Errorf("invalid source %q: must be %s or %s", cfg.Data.Source, config.SourceHTTP, config.SourceFile)
	}

	// Reports own stdout; logs go to stderr only.
	cfg.Logging.Output = "console"
	cfg.Logging.Level = "warn"
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// load validates the filter flags, loads the dataset and builds the service.
func (o *options) load(cmd *cobra.Command) (*env, error) {
	switch o.output {
	case formatTable, formatMarkdown, formatCSV:
	default:
		return nil, fmt.Errorf("invalid output %q: must be %s, %s or %s", o.output, formatTable, formatMarkdown, formatCSV)
	}

	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	logger, err := infrastructure.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	q, err := handlers.DecodeValues(o.filter.values(cmd.Flags()), middleware.NewQueryValidator(logger))
	if err != nil {
		return nil, errors.New(describeError(err))
	}

	paths, err := cfg.Paths.Resolve()
	if err != nil {
		return nil, apierrors.NewConfigError("failed to resolve paths", err)
	}

	var src dataset.Source
	if cfg.Data.Source == config.SourceFile {
		src = dataset.NewFileSource(paths.DataDir)
	} else {
		src = dataset.NewHTTPSource(cfg.Data.BaseURL, cfg.Data.FetchTimeout)
	}

	store := dataset.NewStore(src, logger)
	if _, err := store.Reload(cmd.Context()); err != nil {
		if errors.Is(err, dataset.ErrDatasetNotFound) {
			return nil, fmt.Errorf("%s (%w)", config.MsgDatasetMissing, err)
		}
		return nil, err
	}

	thresholds := analysis.Thresholds{
		Low:    analysis.UserPair{Casual: cfg.Clusters.LowCasual, Registered: cfg.Clusters.LowRegistered},
		Medium: analysis.UserPair{Casual: cfg.Clusters.MediumCasual, Registered: cfg.Clusters.MediumRegistered},
	}
	return &env{
		service: services.NewDashboardService(store, thresholds, nil, logger),
		query:   q,
		exports: exporter.NewFileWriter(paths.ExportsDir),
		logger:  logger,
		out:     cmd.OutOrStdout(),
		format:  o.output,
	}, nil
}

// describeError flattens validation problems into one line.
func describeError(err error) string {
	var appErr *apierrors.AppError
	if errors.As(err, &appErr) && appErr.Cause != nil {
		return appErr.Message + ": " + appErr.Cause.Error()
	}
	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch d := apiErr.Details.(type) {
	case apierrors.ValidationErrors:
		msgs := make([]string, 0, len(d.Errors))
		for _, e := range d.Errors {
			msgs = append(msgs, e.Message)
		}
		return "invalid filter: " + strings.Join(msgs, "; ")
	case apierrors.ValidationError:
		return "invalid filter: " + d.Message
	}
	return apiErr.Message
}
