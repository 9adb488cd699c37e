package http

import (
	"context"
	"io"
	"time"

	"bikepulse/internal/analysis"
	"bikepulse/internal/charts"
	"bikepulse/internal/services"
)

// DashboardServiceInterface defines the dashboard operations the handlers use
type DashboardServiceInterface interface {
	DefaultThresholds() analysis.Thresholds
	Options(ctx context.Context) (services.Options, error)

	Overview(ctx context.Context, f analysis.Filter) (analysis.Overview, error)
	Hourly(ctx context.Context, f analysis.Filter) ([]analysis.HourPoint, error)
	Weather(ctx context.Context, f analysis.Filter, v analysis.Variable) (services.WeatherView, error)
	WorkingDay(ctx context.Context, f analysis.Filter) (services.WorkingDayView, error)
	Seasonal(ctx context.Context, f analysis.Filter) ([]analysis.GroupTotal, error)
	DayType(ctx context.Context, f analysis.Filter) (services.DayTypeView, error)
	WeatherByYear(ctx context.Context, f analysis.Filter) ([]analysis.GroupTotal, error)
	Clusters(ctx context.Context, f analysis.Filter, t *analysis.Thresholds) (services.ClustersView, error)
	RFM(ctx context.Context, f analysis.Filter, asOf time.Time) ([]analysis.RFMRow, error)
	Describe(ctx context.Context, f analysis.Filter) ([]analysis.ColumnStats, error)

	Chart(ctx context.Context, kind charts.Kind, f analysis.Filter, opts services.ChartOptions) ([]byte, error)
	Export(ctx context.Context, w io.Writer, f analysis.Filter, table, format string) error
	Reload(ctx context.Context) (services.ReloadResult, error)
}

var _ DashboardServiceInterface = (*services.DashboardService)(nil)
