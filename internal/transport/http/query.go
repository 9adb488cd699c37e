package http

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bikepulse/internal/analysis"
	"bikepulse/internal/dataset"
	apierrors "bikepulse/internal/errors"
)

// FilterQuery is the decoded form of the dashboard query string. Repeatable
// parameters may also be given comma separated.
type FilterQuery struct {
	From     string `query:"from" validate:"omitempty,isodate"`
	To       string `query:"to" validate:"omitempty,isodate"`
	Years    []int  `query:"year" validate:"dive,min=1900,max=2100"`
	Seasons  []int  `query:"season" validate:"dive,min=1,max=4"`
	Weathers []int  `query:"weather" validate:"dive,min=1,max=4"`
	DayTypes []int  `query:"daytype" validate:"dive,min=0,max=1"`

	HourMin *int     `query:"hour_min" validate:"omitempty,min=0,max=23"`
	HourMax *int     `query:"hour_max" validate:"omitempty,min=0,max=23"`
	TempMin *float64 `query:"temp_min" validate:"omitempty,gte=0,lte=1"`
	TempMax *float64 `query:"temp_max" validate:"omitempty,gte=0,lte=1"`
	HumMin  *float64 `query:"hum_min" validate:"omitempty,gte=0,lte=1"`
	HumMax  *float64 `query:"hum_max" validate:"omitempty,gte=0,lte=1"`
	WindMin *float64 `query:"wind_min" validate:"omitempty,gte=0,lte=1"`
	WindMax *float64 `query:"wind_max" validate:"omitempty,gte=0,lte=1"`

	WorkingDay *int `query:"workingday" validate:"omitempty,min=0,max=1"`

	LowCasual     *int `query:"low_casual" validate:"omitempty,min=0"`
	LowRegistered *int `query:"low_registered" validate:"omitempty,min=0"`
	MedCasual     *int `query:"med_casual" validate:"omitempty,min=0"`
	MedRegistered *int `query:"med_registered" validate:"omitempty,min=0"`

	Variable string `query:"var" validate:"omitempty,oneof=temp atemp hum windspeed"`
	AsOf     string `query:"as_of" validate:"omitempty,isodate"`
	Lang     string `query:"lang" validate:"omitempty,max=16"`
	View     string `query:"view" validate:"omitempty,oneof=overview hourly weather workingday seasonal daytype weather-year clusters"`
}

// ParseFilterQuery decodes values. It only rejects values of the wrong type;
// range checks are left to the validator.
func ParseFilterQuery(values url.Values) (FilterQuery, error) {
	p := queryParser{values: values}
	q := FilterQuery{
		From:     strings.TrimSpace(values.Get("from")),
		To:       strings.TrimSpace(values.Get("to")),
		Years:    p.ints("year"),
		Seasons:  p.ints("season"),
		Weathers: p.ints("weather"),
		DayTypes: p.ints("daytype"),

		HourMin: p.int("hour_min"),
		HourMax: p.int("hour_max"),
		TempMin: p.float("temp_min"),
		TempMax: p.float("temp_max"),
		HumMin:  p.float("hum_min"),
		HumMax:  p.float("hum_max"),
		WindMin: p.float("wind_min"),
		WindMax: p.float("wind_max"),

		WorkingDay: p.int("workingday"),

		LowCasual:     p.int("low_casual"),
		LowRegistered: p.int("low_registered"),
		MedCasual:     p.int("med_casual"),
		MedRegistered: p.int("med_registered"),

		Variable: strings.TrimSpace(values.Get("var")),
		AsOf:     strings.TrimSpace(values.Get("as_of")),
		Lang:     strings.TrimSpace(values.Get("lang")),
		View:     strings.TrimSpace(values.Get("view")),
	}
	if p.err != nil {
		return FilterQuery{}, p.err
	}
	return q, nil
}

type queryParser struct {
	values url.Values
	err    *apierrors.APIError
}

func (p *queryParser) fail(field, msg string) {
	if p.err == nil {
		p.err = apierrors.ErrValidation(field, field+" "+msg)
	}
}

func (p *queryParser) raw(key string) []string {
	var out []string
	for _, v := range p.values[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (p *queryParser) ints(key string) []int {
	raw := p.raw(key)
	if len(raw) == 0 {
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, s := range raw {
		n, err := strconv.Atoi(s)
		if err != nil {
			p.fail(key, "must be a list of integers")
			return nil
		}
		out = append(out, n)
	}
	return out
}

func (p *queryParser) int(key string) *int {
	s := strings.TrimSpace(p.values.Get(key))
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fail(key, "must be an integer")
		return nil
	}
	return &n
}

func (p *queryParser) float(key string) *float64 {
	s := strings.TrimSpace(p.values.Get(key))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(key, "must be a number")
		return nil
	}
	return &f
}

// Filter converts a validated query into an analysis filter. Dates must
// already have passed the isodate rule.
func (q FilterQuery) Filter() analysis.Filter {
	f := analysis.Filter{
		Years:     q.Years,
		Hours:     analysis.Range[int]{Min: q.HourMin, Max: q.HourMax},
		Temp:      analysis.Range[float64]{Min: q.TempMin, Max: q.TempMax},
		Humidity:  analysis.Range[float64]{Min: q.HumMin, Max: q.HumMax},
		WindSpeed: analysis.Range[float64]{Min: q.WindMin, Max: q.WindMax},
	}
	if t, err := time.Parse(dataset.DateLayout, q.From); err == nil {
		f.DateFrom = &t
	}
	if t, err := time.Parse(dataset.DateLayout, q.To); err == nil {
		f.DateTo = &t
	}
	for _, s := range q.Seasons {
		f.Seasons = append(f.Seasons, dataset.Season(s))
	}
	for _, w := range q.Weathers {
		f.Weathers = append(f.Weathers, dataset.Weather(w))
	}
	for _, d := range q.DayTypes {
		f.DayTypes = append(f.DayTypes, dataset.DayType(d))
	}
	if q.WorkingDay != nil {
		working := *q.WorkingDay == 1
		f.WorkingDay = &working
	}
	return f
}

// Thresholds overlays any threshold parameters on defaults. It returns nil
// when none is given.
func (q FilterQuery) Thresholds(defaults analysis.Thresholds) *analysis.Thresholds {
	if q.LowCasual == nil && q.LowRegistered == nil && q.MedCasual == nil && q.MedRegistered == nil {
		return nil
	}
	t := defaults
	if q.LowCasual != nil {
		t.Low.Casual = *q.LowCasual
	}
	if q.LowRegistered != nil {
		t.Low.Registered = *q.LowRegistered
	}
	if q.MedCasual != nil {
		t.Medium.Casual = *q.MedCasual
	}
	if q.MedRegistered != nil {
		t.Medium.Registered = *q.MedRegistered
	}
	return &t
}

// WeatherVariable returns the requested measurement, temp by default.
func (q FilterQuery) WeatherVariable() analysis.Variable {
	if v, err := analysis.ParseVariable(q.Variable); err == nil {
		return v
	}
	return analysis.VarTemp
}

// AsOfDate returns the RFM reference date, zero when absent.
func (q FilterQuery) AsOfDate() time.Time {
	t, _ := time.Parse(dataset.DateLayout, q.AsOf)
	return t
}

// QueryValidator checks a decoded query struct.
type QueryValidator interface {
	ValidateStruct(v interface{}) error
}

type filterCtxKey struct{}

// DecodeFilter parses and validates the query string of r.
func DecodeFilter(r *http.Request, v QueryValidator) (FilterQuery, error) {
	return DecodeValues(r.URL.Query(), v)
}

// DecodeValues parses and validates values. A nil v skips validation.
func DecodeValues(values url.Values, v QueryValidator) (FilterQuery, error) {
	q, err := ParseFilterQuery(values)
	if err != nil {
		return FilterQuery{}, err
	}
	if v != nil {
		if err := v.ValidateStruct(q); err != nil {
			return FilterQuery{}, err
		}
	}
	return q, nil
}

// FilterCtx decodes the dashboard query into the request context and rejects
// malformed queries with a 400 problem.
func FilterCtx(v QueryValidator, errorHandler *apierrors.ErrorHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q, err := DecodeFilter(r, v)
			if err != nil {
				errorHandler.HandleError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), filterCtxKey{}, q)))
		})
	}
}

// FilterFromContext returns the query stored by FilterCtx.
func FilterFromContext(ctx context.Context) FilterQuery {
	q, _ := ctx.Value(filterCtxKey{}).(FilterQuery)
	return q
}
