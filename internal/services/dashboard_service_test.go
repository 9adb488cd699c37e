package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"bikepulse/internal/analysis"
	"bikepulse/internal/charts"
	"bikepulse/internal/dataset"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/infrastructure"
	"bikepulse/internal/shared/testutil"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func newTestService(t *testing.T) *DashboardService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewDashboardService(testutil.NewLoadedStore(t, logger), analysis.DefaultThresholds(), nil, logger)
}

func TestOverview(t *testing.T) {
	svc := newTestService(t)

	o, err := svc.Overview(context.Background(), analysis.Filter{})
	require.NoError(t, err)

	assert.Equal(t, 20743, o.TotalRentals)
	assert.Equal(t, 6, o.Days)
	assert.Equal(t, 23, o.PeakHour)
	assert.InDelta(t, 40.0, o.PeakHourMean, 1e-9)
	require.NotNil(t, o.BusiestDay)
	assert.Equal(t, "2012-04-14", o.BusiestDay.Format(dataset.DateLayout))
	assert.Equal(t, 6857, o.BusiestDayTotal)
}

func TestHourlyAppliesEveryPredicate(t *testing.T) {
	svc := newTestService(t)
	working := true

	points, err := svc.Hourly(context.Background(), analysis.Filter{
		Hours:      analysis.Between(6, 18),
		Temp:       analysis.Between(0.2, 0.8),
		WorkingDay: &working,
	})
	require.NoError(t, err)

	require.Len(t, points, 13)
	for i, p := range points {
		assert.Equal(t, 6+i, p.Hour)
		assert.Equal(t, 1, p.Count, "only the working day contributes")
	}
	assert.InDelta(t, 17.0, points[0].MeanTotal, 1e-9)
}

func TestHourlyFullDayHas24Rows(t *testing.T) {
	svc := newTestService(t)

	points, err := svc.Hourly(context.Background(), analysis.Filter{})
	require.NoError(t, err)
	assert.Len(t, points, 24)
}

func TestQueryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid filter", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Hourly(ctx, analysis.Filter{Hours: analysis.Between(18, 6)})
		assert.ErrorIs(t, err, analysis.ErrInvalidFilter)
	})

	t.Run("not loaded", func(t *testing.T) {
		logger, _ := testutil.NewTestLogger(t)
		store := dataset.NewStore(&testutil.MemorySource{}, logger)
		svc := NewDashboardService(store, analysis.DefaultThresholds(), nil, logger)

		_, err := svc.Overview(ctx, analysis.Filter{})
		assert.ErrorIs(t, err, dataset.ErrDatasetNotLoaded)

		_, err = svc.Reload(ctx)
		assert.ErrorIs(t, err, dataset.ErrDatasetNotFound)

		_, err = svc.Seasonal(ctx, analysis.Filter{})
		assert.ErrorIs(t, err, dataset.ErrDatasetNotFound)
		assert.ErrorIs(t, err, dataset.ErrDatasetNotLoaded)
	})
}

func TestWeather(t *testing.T) {
	svc := newTestService(t)

	view, err := svc.Weather(context.Background(), analysis.Filter{}, analysis.VarHumidity)
	require.NoError(t, err)

	assert.Equal(t, analysis.VarHumidity, view.Variable)
	assert.Equal(t, "Humidity (normalized)", view.Label)
	require.Len(t, view.Series, 2)
	assert.Equal(t, dataset.WeatherClear, view.Series[0].Weather)
	assert.Len(t, view.Series[0].Points, 24)
	assert.Len(t, view.Correlations, len(analysis.Variables()))
}

func TestDailyAggregatesCoverEveryRental(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seasonal, err := svc.Seasonal(ctx, analysis.Filter{})
	require.NoError(t, err)
	byWeather, err := svc.WeatherByYear(ctx, analysis.Filter{})
	require.NoError(t, err)

	sum := func(groups []analysis.GroupTotal) int {
		n := 0
		for _, g := range groups {
			n += g.Total
		}
		return n
	}
	assert.Equal(t, 20743, sum(seasonal))
	assert.Equal(t, 20743, sum(byWeather))

	dayType, err := svc.DayType(ctx, analysis.Filter{})
	require.NoError(t, err)
	var total float64
	for _, lv := range dayType.Totals {
		total += lv.Value
	}
	assert.InDelta(t, 20743.0, total, 1e-9)

	wd, err := svc.WorkingDay(ctx, analysis.Filter{})
	require.NoError(t, err)
	assert.Len(t, wd.Means, 2)
	assert.NotEmpty(t, wd.Weekdays)
}

func TestClusters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		view, err := svc.Clusters(ctx, analysis.Filter{}, nil)
		require.NoError(t, err)
		assert.Equal(t, analysis.DefaultThresholds(), view.Thresholds)
		assert.Len(t, view.Months, 4)
		want := map[analysis.UsageClass]int{analysis.ClassLow: 4, analysis.ClassMedium: 0, analysis.ClassHigh: 0}
		if diff := cmp.Diff(want, view.Counts); diff != "" {
			t.Errorf("counts mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("custom thresholds", func(t *testing.T) {
		th := analysis.Thresholds{
			Low:    analysis.UserPair{Casual: 1000, Registered: 3000},
			Medium: analysis.UserPair{Casual: 4000, Registered: 8000},
		}
		view, err := svc.Clusters(ctx, analysis.Filter{}, &th)
		require.NoError(t, err)

		want := map[analysis.UsageClass]int{analysis.ClassLow: 2, analysis.ClassMedium: 1, analysis.ClassHigh: 1}
		if diff := cmp.Diff(want, view.Counts); diff != "" {
			t.Errorf("counts mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("invalid thresholds", func(t *testing.T) {
		th := analysis.Thresholds{
			Low:    analysis.UserPair{Casual: 5000, Registered: 3000},
			Medium: analysis.UserPair{Casual: 4000, Registered: 8000},
		}
		_, err := svc.Clusters(ctx, analysis.Filter{}, &th)
		assert.ErrorIs(t, err, analysis.ErrInvalidThresholds)
	})
}

func TestRFMAndDescribe(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rows, err := svc.RFM(ctx, analysis.Filter{Years: []int{2012}}, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[1].RecencyDays)
	assert.Equal(t, 22, rows[1].Monetary)

	stats, err := svc.Describe(ctx, analysis.Filter{})
	require.NoError(t, err)
	assert.Len(t, stats, 7)
}

func TestOptions(t *testing.T) {
	svc := newTestService(t)

	opts, err := svc.Options(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2011-01-01", opts.DateMin)
	assert.Equal(t, "2012-10-29", opts.DateMax)
	assert.Equal(t, []int{2011, 2012}, opts.Years)
	assert.Len(t, opts.Seasons, 4)
	assert.Len(t, opts.Weathers, 4)
	assert.Equal(t, []Choice{{Code: 1, Label: "Working Day"}, {Code: 0, Label: "Weekend/Holiday"}}, opts.DayTypes)
	assert.Contains(t, opts.Charts, "weekday")
	assert.Equal(t, "memory", opts.Source)
}

func TestChart(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, kind := range charts.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			png, err := svc.Chart(ctx, kind, analysis.Filter{}, ChartOptions{})
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(png, pngSignature))
		})
	}

	t.Run("no rows renders the empty chart", func(t *testing.T) {
		png, err := svc.Chart(ctx, charts.KindSeasonal, analysis.Filter{Years: []int{1999}}, ChartOptions{})
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(png, pngSignature))
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := svc.Chart(ctx, charts.Kind("radar"), analysis.Filter{}, ChartOptions{})
		assert.ErrorIs(t, err, ErrUnknownChart)
	})
}

func TestExport(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := infrastructure.NewDashboardMetrics(mp.Meter("test"))
	require.NoError(t, err)

	logger, logs := testutil.NewTestLogger(t)
	svc := NewDashboardService(testutil.NewLoadedStore(t, logger), analysis.DefaultThresholds(), metrics, logger)
	ctx := context.Background()

	t.Run("day csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, svc.Export(ctx, &buf, analysis.Filter{Years: []int{2011}}, TableDay, FormatCSV))

		days, err := dataset.ParseDays(&buf)
		require.NoError(t, err)
		assert.Len(t, days, 4)
	})

	t.Run("hour csv honours the hour range", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, svc.Export(ctx, &buf, analysis.Filter{Hours: analysis.Between(0, 1)}, TableHour, FormatCSV))

		hours, err := dataset.ParseHours(&buf)
		require.NoError(t, err)
		assert.Len(t, hours, 4)
	})

	t.Run("xlsx", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, svc.Export(ctx, &buf, analysis.Filter{}, TableDay, FormatXLSX))
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")))
	})

	t.Run("unknown table and format", func(t *testing.T) {
		var buf bytes.Buffer
		assert.ErrorIs(t, svc.Export(ctx, &buf, analysis.Filter{}, "week", FormatCSV), ErrUnknownTable)
		assert.ErrorIs(t, svc.Export(ctx, &buf, analysis.Filter{}, TableDay, "pdf"), ErrUnknownFormat)
		assert.Zero(t, buf.Len())
	})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	var exports int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "exports_total" {
				for _, dp := range sum.DataPoints {
					exports += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(3), exports)
	testutil.AssertLogContains(t, logs, slog.LevelInfo, "export written")
}

func TestReload(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	store := dataset.NewStore(testutil.NewSampleSource(), logger)
	svc := NewDashboardService(store, analysis.DefaultThresholds(), nil, logger)

	res, err := svc.Reload(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "memory", res.Source)
	assert.Equal(t, 6, res.Days)
	assert.Equal(t, 48, res.Hours)
	testutil.AssertLogContains(t, logs, slog.LevelInfo, "dataset loaded")

	o, err := svc.Overview(context.Background(), analysis.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 20743, o.TotalRentals)
}

func TestReloadUnreachableSourceIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	logger, _ := testutil.NewTestLogger(t)
	store := dataset.NewStore(dataset.NewHTTPSource(srv.URL, time.Second), logger)
	svc := NewDashboardService(store, analysis.DefaultThresholds(), nil, logger)

	_, err := svc.Reload(context.Background())
	require.Error(t, err)

	var appErr *apierrors.AppError
	require.True(t, errors.As(err, &appErr), err.Error())
	assert.Equal(t, apierrors.ErrTypeNetwork, appErr.Type)
	assert.Equal(t, srv.URL, appErr.Context["source"])
	assert.ErrorIs(t, err, dataset.ErrFetchFailed)
}

func TestReloadMissingFilesIsNotNetworkError(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	svc := NewDashboardService(dataset.NewStore(&testutil.MemorySource{}, logger), analysis.DefaultThresholds(), nil, logger)

	_, err := svc.Reload(context.Background())
	var appErr *apierrors.AppError
	assert.False(t, errors.As(err, &appErr))
	assert.ErrorIs(t, err, dataset.ErrDatasetNotFound)
}

func TestRenderFailure(t *testing.T) {
	err := renderFailure(charts.KindSeasonal, errors.New("font missing"))

	var appErr *apierrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apierrors.ErrTypeRender, appErr.Type)
	assert.Equal(t, "seasonal", appErr.Context["chart"])

	thresholds := fmt.Errorf("%w: medium below low", analysis.ErrInvalidThresholds)
	assert.Same(t, thresholds, renderFailure(charts.KindClusters, thresholds))
	assert.False(t, errors.As(renderFailure(charts.KindClusters, ErrUnknownChart), &appErr))
}
