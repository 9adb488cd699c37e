// Package analysis filters the bike-sharing tables and computes the
// aggregates behind every dashboard view.
//
// All functions are pure: they never modify their input slices and return
// freshly allocated results, so callers can share one dataset snapshot across
// concurrent requests.
package analysis
