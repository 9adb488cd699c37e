package analysis

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"bikepulse/internal/dataset"
)

// Range is a closed interval. A nil bound leaves that side unbounded.
type Range[T cmp.Ordered] struct {
	Min *T `json:"min,omitempty"`
	Max *T `json:"max,omitempty"`
}

// Between returns the closed interval [lo, hi].
func Between[T cmp.Ordered](lo, hi T) Range[T] {
	return Range[T]{Min: &lo, Max: &hi}
}

// Contains reports whether v lies inside the interval.
func (r Range[T]) Contains(v T) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// IsSet reports whether either bound is present.
func (r Range[T]) IsSet() bool {
	return r.Min != nil || r.Max != nil
}

func (r Range[T]) inverted() bool {
	return r.Min != nil && r.Max != nil && *r.Min > *r.Max
}

func (r Range[T]) within(lo, hi T) bool {
	if r.Min != nil && (*r.Min < lo || *r.Min > hi) {
		return false
	}
	if r.Max != nil && (*r.Max < lo || *r.Max > hi) {
		return false
	}
	return true
}

// Filter selects rows by a conjunction of predicates. Zero values and empty
// sets impose no restriction.
type Filter struct {
	DateFrom   *time.Time        `json:"date_from,omitempty"`
	DateTo     *time.Time        `json:"date_to,omitempty"`
	Years      []int             `json:"years,omitempty"`
	Seasons    []dataset.Season  `json:"seasons,omitempty"`
	Weathers   []dataset.Weather `json:"weathers,omitempty"`
	DayTypes   []dataset.DayType `json:"day_types,omitempty"`
	Hours      Range[int]        `json:"hours"`
	Temp       Range[float64]    `json:"temp"`
	Humidity   Range[float64]    `json:"humidity"`
	WindSpeed  Range[float64]    `json:"wind_speed"`
	WorkingDay *bool             `json:"working_day,omitempty"`
}

// Validate rejects filters that can never be satisfied because of malformed
// bounds or codes.
func (f Filter) Validate() error {
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return fmt.Errorf("%w: date range %s > %s", ErrInvalidFilter,
			f.DateFrom.Format(dataset.DateLayout), f.DateTo.Format(dataset.DateLayout))
	}
	for _, s := range f.Seasons {
		if !s.Valid() {
			return fmt.Errorf("%w: season code %d", ErrInvalidFilter, int(s))
		}
	}
	for _, w := range f.Weathers {
		if !w.Valid() {
			return fmt.Errorf("%w: weather code %d", ErrInvalidFilter, int(w))
		}
	}
	for _, d := range f.DayTypes {
		if !d.Valid() {
			return fmt.Errorf("%w: day type code %d", ErrInvalidFilter, int(d))
		}
	}
	if f.Hours.inverted() || !f.Hours.within(0, 23) {
		return fmt.Errorf("%w: hour range must lie within 0..23 with min <= max", ErrInvalidFilter)
	}

	units := []struct {
		name string
		r    Range[float64]
	}{
		{"temp", f.Temp},
		{"humidity", f.Humidity},
		{"wind speed", f.WindSpeed},
	}
	for _, u := range units {
		if u.r.inverted() || !u.r.within(0, 1) {
			return fmt.Errorf("%w: %s range must lie within [0,1] with min <= max", ErrInvalidFilter, u.name)
		}
	}
	return nil
}

// MatchDay reports whether a daily row passes every predicate. The hour
// range is ignored for daily rows.
func (f Filter) MatchDay(r dataset.DayRecord) bool {
	if f.DateFrom != nil && r.Date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && r.Date.After(*f.DateTo) {
		return false
	}
	if len(f.Years) > 0 && !slices.Contains(f.Years, r.Year) {
		return false
	}
	if len(f.Seasons) > 0 && !slices.Contains(f.Seasons, r.Season) {
		return false
	}
	if len(f.Weathers) > 0 && !slices.Contains(f.Weathers, r.Weather) {
		return false
	}
	if len(f.DayTypes) > 0 && !slices.Contains(f.DayTypes, r.DayType()) {
		return false
	}
	if f.WorkingDay != nil && *f.WorkingDay != r.WorkingDay {
		return false
	}
	return f.Temp.Contains(r.Temp) &&
		f.Humidity.Contains(r.Humidity) &&
		f.WindSpeed.Contains(r.WindSpeed)
}

// MatchHour reports whether an hourly row passes every predicate.
func (f Filter) MatchHour(r dataset.HourRecord) bool {
	return f.Hours.Contains(r.Hour) && f.MatchDay(r.DayRecord)
}

// FilterDays returns the matching daily rows in input order.
func (f Filter) FilterDays(days []dataset.DayRecord) []dataset.DayRecord {
	out := make([]dataset.DayRecord, 0, len(days))
	for _, r := range days {
		if f.MatchDay(r) {
			out = append(out, r)
		}
	}
	return out
}

// FilterHours returns the matching hourly rows in input order.
func (f Filter) FilterHours(hours []dataset.HourRecord) []dataset.HourRecord {
	out := make([]dataset.HourRecord, 0, len(hours))
	for _, r := range hours {
		if f.MatchHour(r) {
			out = append(out, r)
		}
	}
	return out
}
