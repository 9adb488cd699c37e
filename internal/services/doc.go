// Package services implements the query layer between HTTP handlers and the
// dataset store.
//
// DashboardService reads one dataset snapshot per call, applies the filter
// and hands the result to the analysis, chart and export packages. Every
// call runs in its own span with the filtered row counts as attributes.
//
//	svc := services.NewDashboardService(store, analysis.DefaultThresholds(), metrics, logger)
//	points, err := svc.Hourly(ctx, analysis.Filter{Hours: analysis.Between(6, 18)})
//
// HealthService backs the health, readiness, liveness and version
// endpoints. Readiness requires a loaded dataset.
//
// Errors from the dataset and analysis packages are wrapped with %w so the
// transport layer can map them to problem responses with errors.Is.
package services
