package infrastructure

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"bikepulse/internal/dataset"
)

var _ dataset.LoadRecorder = (*DashboardMetrics)(nil)

// DashboardMetrics holds the application instruments.
type DashboardMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	DatasetReloadsTotal metric.Int64Counter
	DatasetLoadDuration metric.Float64Histogram
	DatasetRows         metric.Int64Gauge

	ChartRendersTotal   metric.Int64Counter
	ChartRenderDuration metric.Float64Histogram
	ExportsTotal        metric.Int64Counter

	WebSocketClients metric.Int64UpDownCounter
}

// NewDashboardMetrics creates the instruments on meter.
func NewDashboardMetrics(meter metric.Meter) (*DashboardMetrics, error) {
	var m DashboardMetrics
	var errs []error
	track := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests"))
	track(err)
	m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"))
	track(err)
	m.HTTPActiveRequests, err = meter.Int64UpDownCounter("http_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"))
	track(err)

	m.DatasetReloadsTotal, err = meter.Int64Counter("dataset_reloads_total",
		metric.WithDescription("Dataset load attempts by outcome"))
	track(err)
	m.DatasetLoadDuration, err = meter.Float64Histogram("dataset_load_duration_seconds",
		metric.WithDescription("Time spent fetching and parsing both tables"),
		metric.WithUnit("s"))
	track(err)
	m.DatasetRows, err = meter.Int64Gauge("dataset_rows",
		metric.WithDescription("Rows in the current dataset snapshot by table"))
	track(err)

	m.ChartRendersTotal, err = meter.Int64Counter("chart_renders_total",
		metric.WithDescription("Chart renders by kind and outcome"))
	track(err)
	m.ChartRenderDuration, err = meter.Float64Histogram("chart_render_duration_seconds",
		metric.WithDescription("Chart render time in seconds"),
		metric.WithUnit("s"))
	track(err)
	m.ExportsTotal, err = meter.Int64Counter("exports_total",
		metric.WithDescription("Table exports by table and format"))
	track(err)

	m.WebSocketClients, err = meter.Int64UpDownCounter("websocket_clients",
		metric.WithDescription("Connected WebSocket clients"))
	track(err)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &m, nil
}

func outcome(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("status", "failure")
	}
	return attribute.String("status", "success")
}

// RecordDatasetLoad records one dataset load attempt. Row gauges only move
// on success.
func (m *DashboardMetrics) RecordDatasetLoad(ctx context.Context, duration time.Duration, days, hours int, err error) {
	if m == nil {
		return
	}
	status := metric.WithAttributes(outcome(err))
	m.DatasetReloadsTotal.Add(ctx, 1, status)
	m.DatasetLoadDuration.Record(ctx, duration.Seconds(), status)
	if err == nil {
		m.DatasetRows.Record(ctx, int64(days), metric.WithAttributes(attribute.String("table", "day")))
		m.DatasetRows.Record(ctx, int64(hours), metric.WithAttributes(attribute.String("table", "hour")))
	}
}

// RecordChartRender records one chart render.
func (m *DashboardMetrics) RecordChartRender(ctx context.Context, kind string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("kind", kind), outcome(err))
	m.ChartRendersTotal.Add(ctx, 1, attrs)
	m.ChartRenderDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordExport records one table export.
func (m *DashboardMetrics) RecordExport(ctx context.Context, table, format string) {
	if m == nil {
		return
	}
	m.ExportsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("table", table),
		attribute.String("format", format),
	))
}

// WebSocketClientDelta adjusts the connected client count.
func (m *DashboardMetrics) WebSocketClientDelta(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.WebSocketClients.Add(ctx, delta)
}
