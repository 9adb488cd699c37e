// Package http implements the HTTP handlers of the bike-sharing dashboard.
// Handlers stay thin: they decode the filter query, call the dashboard
// service and format the result.
//
// # Responses
//
// JSON endpoints answer with a uniform envelope:
//
//	{"status": "success", "data": ..., "count": n}
//
// Failures are rendered as RFC 7807 problem details by the shared
// errors.ErrorHandler, so a malformed query yields a 400 with a
// VALIDATION_FAILED code and a missing dataset yields a 503.
//
// # Filter query
//
// Every data, chart and export endpoint accepts the same query string,
// decoded by FilterCtx into a FilterQuery:
//
//	from, to                     YYYY-MM-DD, inclusive
//	year, season, weather        repeatable or comma separated codes
//	daytype                      0 weekend/holiday, 1 working day
//	hour_min, hour_max           0..23, hourly rows only
//	temp_*, hum_*, wind_*        normalized 0..1 bounds (min and max)
//	workingday                   0 or 1
//	low_casual, low_registered,
//	med_casual, med_registered   cluster threshold overrides
//	var                          weather variable for the weather view
//
// The HTML dashboard at / uses the same parameters, so the chart image
// URLs it emits reuse the page's own query string.
package http
