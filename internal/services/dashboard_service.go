package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bikepulse/internal/analysis"
	"bikepulse/internal/charts"
	"bikepulse/internal/dataset"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/exporter"
	"bikepulse/internal/infrastructure"
	"bikepulse/internal/insights"
)

// Export tables and formats.
const (
	TableDay  = "day"
	TableHour = "hour"

	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// DashboardService answers every dashboard query from the current dataset
// snapshot. Each call reads exactly one snapshot.
type DashboardService struct {
	store      *dataset.Store
	thresholds analysis.Thresholds
	metrics    *infrastructure.DashboardMetrics
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewDashboardService creates a dashboard service. defaults are used by
// Clusters when the caller passes no thresholds. metrics may be nil.
func NewDashboardService(store *dataset.Store, defaults analysis.Thresholds, metrics *infrastructure.DashboardMetrics, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		store:      store,
		thresholds: defaults,
		metrics:    metrics,
		tracer:     otel.Tracer(infrastructure.ServiceName + "/services"),
		logger:     infrastructure.WithComponent(logger, "dashboard_service"),
	}
}

// DefaultThresholds returns the configured classification thresholds.
func (s *DashboardService) DefaultThresholds() analysis.Thresholds {
	return s.thresholds
}

// selection is a filtered view of one snapshot. Tables are filtered on
// first use.
type selection struct {
	ds     *dataset.Dataset
	filter analysis.Filter
	span   trace.Span

	days  []dataset.DayRecord
	hours []dataset.HourRecord
	dOK   bool
	hOK   bool
}

func (sel *selection) Days() []dataset.DayRecord {
	if !sel.dOK {
		sel.days, sel.dOK = sel.filter.FilterDays(sel.ds.Days), true
		sel.span.SetAttributes(attribute.Int("rows.day", len(sel.days)))
	}
	return sel.days
}

func (sel *selection) Hours() []dataset.HourRecord {
	if !sel.hOK {
		sel.hours, sel.hOK = sel.filter.FilterHours(sel.ds.Hours), true
		sel.span.SetAttributes(attribute.Int("rows.hour", len(sel.hours)))
	}
	return sel.hours
}

// begin starts the span of one query and resolves its snapshot. The caller
// must end the returned span.
func (s *DashboardService) begin(ctx context.Context, op string, f analysis.Filter) (context.Context, *selection, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard."+op)
	sel := &selection{filter: f, span: span}

	if err := f.Validate(); err != nil {
		return ctx, sel, s.fail(ctx, span, op, err)
	}
	ds, err := s.store.Get()
	if err != nil {
		return ctx, sel, s.fail(ctx, span, op, err)
	}
	sel.ds = ds
	span.SetAttributes(attribute.String("dataset.source", ds.Source))
	return ctx, sel, nil
}

func (s *DashboardService) fail(ctx context.Context, span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.DebugContext(ctx, "query failed",
		slog.String("operation", op),
		slog.String("error", err.Error()))
	return fmt.Errorf("%s: %w", op, err)
}

// Overview returns the KPI block of the filtered tables.
func (s *DashboardService) Overview(ctx context.Context, f analysis.Filter) (analysis.Overview, error) {
	_, sel, err := s.begin(ctx, "overview", f)
	defer sel.span.End()
	if err != nil {
		return analysis.Overview{}, err
	}
	return analysis.Summarize(sel.Days(), sel.Hours()), nil
}

// Hourly returns the mean rentals per hour of day.
func (s *DashboardService) Hourly(ctx context.Context, f analysis.Filter) ([]analysis.HourPoint, error) {
	_, sel, err := s.begin(ctx, "hourly", f)
	defer sel.span.End()
	if err != nil {
		return nil, err
	}
	return analysis.HourlyMean(sel.Hours()), nil
}

// WeatherView is the scatter data of one measurement plus the correlation
// of every measurement with total rentals.
type WeatherView struct {
	Variable     analysis.Variable        `json:"variable"`
	Label        string                   `json:"label"`
	Series       []analysis.WeatherSeries `json:"series"`
	Correlations []analysis.Correlation   `json:"correlations"`
}

// Weather returns the weather effect data for variable v.
func (s *DashboardService) Weather(ctx context.Context, f analysis.Filter, v analysis.Variable) (WeatherView, error) {
	_, sel, err := s.begin(ctx, "weather", f)
	defer sel.span.End()
	if err != nil {
		return WeatherView{}, err
	}
	sel.span.SetAttributes(attribute.String("weather.variable", string(v)))

	hours := sel.Hours()
	return WeatherView{
		Variable:     v,
		Label:        v.Label(),
		Series:       analysis.WeatherPoints(hours, v),
		Correlations: analysis.Correlations(hours),
	}, nil
}

// WorkingDayView compares working days with weekends and holidays.
type WorkingDayView struct {
	Means    []analysis.LabelValue `json:"means"`
	Weekdays []analysis.LabelValue `json:"weekdays"`
}

// WorkingDay returns mean daily rentals per day type and per weekday.
func (s *DashboardService) WorkingDay(ctx context.Context, f analysis.Filter) (WorkingDayView, error) {
	_, sel, err := s.begin(ctx, "workingday", f)
	defer sel.span.End()
	if err != nil {
		return WorkingDayView{}, err
	}
	days := sel.Days()
	return WorkingDayView{
		Means:    analysis.WorkingDayMeans(days),
		Weekdays: analysis.WeekdayMeans(days),
	}, nil
}

// Seasonal returns total rentals per season and year.
func (s *DashboardService) Seasonal(ctx context.Context, f analysis.Filter) ([]analysis.GroupTotal, error) {
	_, sel, err := s.begin(ctx, "seasonal", f)
	defer sel.span.End()
	if err != nil {
		return nil, err
	}
	return analysis.SeasonByYear(sel.Days()), nil
}

// DayTypeView holds the totals and percentage shares per day type.
type DayTypeView struct {
	Totals []analysis.LabelValue `json:"totals"`
	Shares []analysis.LabelValue `json:"shares"`
}

// DayType returns rentals per day type.
func (s *DashboardService) DayType(ctx context.Context, f analysis.Filter) (DayTypeView, error) {
	_, sel, err := s.begin(ctx, "daytype", f)
	defer sel.span.End()
	if err != nil {
		return DayTypeView{}, err
	}
	days := sel.Days()
	return DayTypeView{
		Totals: analysis.DayTypeTotals(days),
		Shares: analysis.DayTypeShares(days),
	}, nil
}

// WeatherByYear returns total rentals per weather situation and year.
func (s *DashboardService) WeatherByYear(ctx context.Context, f analysis.Filter) ([]analysis.GroupTotal, error) {
	_, sel, err := s.begin(ctx, "weather_year", f)
	defer sel.span.End()
	if err != nil {
		return nil, err
	}
	return analysis.WeatherByYear(sel.Days()), nil
}

// ClustersView is the usage classification of every month.
type ClustersView struct {
	Thresholds analysis.Thresholds         `json:"thresholds"`
	Months     []analysis.ClassifiedMonth  `json:"months"`
	Counts     map[analysis.UsageClass]int `json:"counts"`
}

// Clusters classifies monthly usage. A nil t uses the configured defaults.
func (s *DashboardService) Clusters(ctx context.Context, f analysis.Filter, t *analysis.Thresholds) (ClustersView, error) {
	_, sel, err := s.begin(ctx, "clusters", f)
	defer sel.span.End()
	if err != nil {
		return ClustersView{}, err
	}

	th := s.thresholds
	if t != nil {
		th = *t
	}
	if err := th.Validate(); err != nil {
		return ClustersView{}, s.fail(ctx, sel.span, "clusters", err)
	}

	months := analysis.Classify(analysis.MonthlyUsers(sel.Days()), th)
	counts := make(map[analysis.UsageClass]int, len(analysis.Classes()))
	for _, c := range analysis.Classes() {
		counts[c] = 0
	}
	for _, m := range months {
		counts[m.Class]++
	}
	return ClustersView{Thresholds: th, Months: months, Counts: counts}, nil
}

// RFM returns the recency/frequency/monetary table of the filtered days. A
// zero asOf uses the latest filtered date.
func (s *DashboardService) RFM(ctx context.Context, f analysis.Filter, asOf time.Time) ([]analysis.RFMRow, error) {
	_, sel, err := s.begin(ctx, "rfm", f)
	defer sel.span.End()
	if err != nil {
		return nil, err
	}
	return analysis.RFM(sel.Days(), asOf), nil
}

// Describe returns summary statistics of the filtered daily table.
func (s *DashboardService) Describe(ctx context.Context, f analysis.Filter) ([]analysis.ColumnStats, error) {
	_, sel, err := s.begin(ctx, "describe", f)
	defer sel.span.End()
	if err != nil {
		return nil, err
	}
	return analysis.Describe(sel.Days()), nil
}

// Choice is one selectable filter value.
type Choice struct {
	Code  int    `json:"code"`
	Value string `json:"value,omitempty"`
	Label string `json:"label"`
}

// Options lists the filter choices the loaded dataset supports.
type Options struct {
	DateMin    string              `json:"date_min"`
	DateMax    string              `json:"date_max"`
	Years      []int               `json:"years"`
	Seasons    []Choice            `json:"seasons"`
	Weathers   []Choice            `json:"weathers"`
	DayTypes   []Choice            `json:"day_types"`
	Variables  []Choice            `json:"variables"`
	Charts     []string            `json:"charts"`
	Locales    []string            `json:"locales"`
	Thresholds analysis.Thresholds `json:"thresholds"`
	Source     string              `json:"source"`
	LoadedAt   time.Time           `json:"loaded_at"`
}

// Options derives the filter choices from the current snapshot.
func (s *DashboardService) Options(ctx context.Context) (Options, error) {
	_, sel, err := s.begin(ctx, "options", analysis.Filter{})
	defer sel.span.End()
	if err != nil {
		return Options{}, err
	}
	ds := sel.ds

	opts := Options{
		Years:      ds.Years(),
		Locales:    insights.Locales(),
		Thresholds: s.thresholds,
		Source:     ds.Source,
		LoadedAt:   ds.LoadedAt,
	}
	if len(ds.Days) > 0 {
		first, last := ds.DateBounds()
		opts.DateMin, opts.DateMax = first.Format(dataset.DateLayout), last.Format(dataset.DateLayout)
	}
	for _, v := range dataset.AllSeasons() {
		opts.Seasons = append(opts.Seasons, Choice{Code: int(v), Label: v.String()})
	}
	for _, v := range dataset.AllWeathers() {
		opts.Weathers = append(opts.Weathers, Choice{Code: int(v), Label: v.String()})
	}
	for _, v := range dataset.AllDayTypes() {
		opts.DayTypes = append(opts.DayTypes, Choice{Code: int(v), Label: v.String()})
	}
	for i, v := range analysis.Variables() {
		opts.Variables = append(opts.Variables, Choice{Code: i, Value: string(v), Label: v.Label()})
	}
	for _, k := range charts.Kinds() {
		opts.Charts = append(opts.Charts, string(k))
	}
	return opts, nil
}

// ChartOptions carries the chart parameters that are not row filters.
type ChartOptions struct {
	Variable   analysis.Variable
	Thresholds *analysis.Thresholds
}

// Chart renders one chart of the filtered tables as PNG. A filter that
// selects nothing yields the "no data" image.
func (s *DashboardService) Chart(ctx context.Context, kind charts.Kind, f analysis.Filter, opts ChartOptions) ([]byte, error) {
	start := time.Now()
	png, err := s.chart(ctx, kind, f, opts)
	s.metrics.RecordChartRender(ctx, string(kind), time.Since(start), err)
	return png, err
}

func (s *DashboardService) chart(ctx context.Context, kind charts.Kind, f analysis.Filter, opts ChartOptions) ([]byte, error) {
	if _, ok := charts.ParseKind(string(kind)); !ok {
		return nil, fmt.Errorf("chart: %w: %q", ErrUnknownChart, kind)
	}

	ctx, sel, err := s.begin(ctx, "chart", f)
	defer sel.span.End()
	if err != nil {
		return nil, err
	}
	sel.span.SetAttributes(attribute.String("chart.kind", string(kind)))

	var (
		png   []byte
		empty bool
	)
	switch kind {
	case charts.KindHourly:
		hours := sel.Hours()
		empty = len(hours) == 0
		if !empty {
			png, err = charts.HourlyLine(analysis.HourlyMean(hours))
		}
	case charts.KindWeather:
		v := opts.Variable
		if v == "" {
			v = analysis.VarTemp
		}
		hours := sel.Hours()
		empty = len(hours) == 0
		if !empty {
			png, err = charts.WeatherScatter(analysis.WeatherPoints(hours, v), v)
		}
	default:
		days := sel.Days()
		empty = len(days) == 0
		if !empty {
			png, err = s.dailyChart(ctx, kind, days, opts)
		}
	}

	if empty {
		sel.span.SetAttributes(attribute.Bool("chart.empty", true))
		png, err = charts.Empty()
	}
	if err != nil {
		return nil, s.fail(ctx, sel.span, "chart", renderFailure(kind, err))
	}
	return png, nil
}

// renderFailure marks errors raised while drawing as render errors. Invalid
// parameters keep their own type.
func renderFailure(kind charts.Kind, err error) error {
	if errors.Is(err, analysis.ErrInvalidThresholds) || errors.Is(err, ErrUnknownChart) {
		return err
	}
	return apierrors.NewRenderError("chart rendering failed", err).WithContext("chart", string(kind))
}

func (s *DashboardService) dailyChart(ctx context.Context, kind charts.Kind, days []dataset.DayRecord, opts ChartOptions) ([]byte, error) {
	switch kind {
	case charts.KindWorkingDay:
		return charts.WorkingDayBar(analysis.WorkingDayMeans(days))
	case charts.KindWeekday:
		return charts.WeekdayBar(analysis.WeekdayMeans(days))
	case charts.KindSeasonal:
		return charts.SeasonYearBars(analysis.SeasonByYear(days))
	case charts.KindDayType:
		return charts.DayTypePie(analysis.DayTypeTotals(days))
	case charts.KindWeatherYear:
		return charts.WeatherYearBars(analysis.WeatherByYear(days))
	case charts.KindClusters:
		th := s.thresholds
		if opts.Thresholds != nil {
			th = *opts.Thresholds
		}
		if err := th.Validate(); err != nil {
			return nil, err
		}
		return charts.UsageClusters(analysis.Classify(analysis.MonthlyUsers(days), th))
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownChart, kind)
}

// Export writes the filtered table in the requested format. Hourly rows
// honour the hour range while daily rows ignore it. The xlsx format always
// carries both sheets.
func (s *DashboardService) Export(ctx context.Context, w io.Writer, f analysis.Filter, table, format string) error {
	if table != TableDay && table != TableHour {
		return fmt.Errorf("export: %w: %q", ErrUnknownTable, table)
	}
	if format != FormatCSV && format != FormatXLSX {
		return fmt.Errorf("export: %w: %q", ErrUnknownFormat, format)
	}

	ctx, sel, err := s.begin(ctx, "export", f)
	defer sel.span.End()
	if err != nil {
		return err
	}
	sel.span.SetAttributes(
		attribute.String("export.table", table),
		attribute.String("export.format", format),
	)

	switch {
	case format == FormatXLSX:
		err = exporter.WriteWorkbook(w, sel.Days(), sel.Hours())
	case table == TableDay:
		err = exporter.DayRecordsCSV(w, sel.Days())
	default:
		err = exporter.HourRecordsCSV(w, sel.Hours())
	}
	if err != nil {
		return s.fail(ctx, sel.span, "export", err)
	}

	s.metrics.RecordExport(ctx, table, format)
	s.logger.InfoContext(ctx, "export written",
		slog.String("table", table),
		slog.String("format", format))
	return nil
}

// ReloadResult describes the snapshot published by Reload.
type ReloadResult struct {
	Source   string    `json:"source"`
	Days     int       `json:"days"`
	Hours    int       `json:"hours"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Reload fetches a fresh snapshot from the source. On failure the previous
// snapshot keeps serving.
func (s *DashboardService) Reload(ctx context.Context) (ReloadResult, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.reload")
	defer span.End()

	ds, err := s.store.Reload(ctx)
	if err != nil {
		if errors.Is(err, dataset.ErrFetchFailed) {
			err = apierrors.NewNetworkError("dataset source unreachable", err).
				WithContext("source", s.store.Source().String())
		}
		return ReloadResult{}, s.fail(ctx, span, "reload", err)
	}
	span.SetAttributes(
		attribute.Int("rows.day", len(ds.Days)),
		attribute.Int("rows.hour", len(ds.Hours)),
	)
	return ReloadResult{
		Source:   ds.Source,
		Days:     len(ds.Days),
		Hours:    len(ds.Hours),
		LoadedAt: ds.LoadedAt,
	}, nil
}
