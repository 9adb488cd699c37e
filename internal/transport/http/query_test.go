package http

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikepulse/internal/analysis"
	"bikepulse/internal/dataset"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/middleware"
	"bikepulse/internal/shared/testutil"
)

func TestParseFilterQuery(t *testing.T) {
	values, err := url.ParseQuery("from=2011-01-01&to=2011-12-31&year=2011,2012&season=1&season=3" +
		"&hour_min=6&hour_max=18&temp_min=0.2&temp_max=0.8&workingday=1&var=hum&lang=id")
	require.NoError(t, err)

	q, err := ParseFilterQuery(values)
	require.NoError(t, err)

	assert.Equal(t, []int{2011, 2012}, q.Years)
	assert.Equal(t, []int{1, 3}, q.Seasons)
	require.NotNil(t, q.HourMin)
	assert.Equal(t, 6, *q.HourMin)
	require.NotNil(t, q.TempMax)
	assert.InDelta(t, 0.8, *q.TempMax, 1e-9)
	assert.Equal(t, "id", q.Lang)
	assert.Equal(t, analysis.VarHumidity, q.WeatherVariable())

	f := q.Filter()
	require.NotNil(t, f.DateFrom)
	require.NotNil(t, f.DateTo)
	assert.Equal(t, "2011-01-01", f.DateFrom.Format(dataset.DateLayout))
	assert.Equal(t, []dataset.Season{dataset.SeasonSpring, dataset.SeasonFall}, f.Seasons)
	assert.True(t, f.Hours.Contains(6))
	assert.False(t, f.Hours.Contains(19))
	require.NotNil(t, f.WorkingDay)
	assert.True(t, *f.WorkingDay)
	assert.NoError(t, f.Validate())
}

func TestParseFilterQueryRejectsWrongTypes(t *testing.T) {
	tests := []struct {
		query string
		field string
	}{
		{"year=twenty", "year"},
		{"hour_min=noon", "hour_min"},
		{"temp_max=hot", "temp_max"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			_, err = ParseFilterQuery(values)
			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)
			detail, ok := apiErr.Details.(apierrors.ValidationError)
			require.True(t, ok)
			assert.Equal(t, tt.field, detail.Field)
		})
	}
}

func TestFilterQueryValidation(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := middleware.NewQueryValidator(logger)

	values, err := url.ParseQuery("hour_max=30&weather=9&var=rain")
	require.NoError(t, err)
	q, err := ParseFilterQuery(values)
	require.NoError(t, err)

	err = v.ValidateStruct(q)
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	details, ok := apiErr.Details.(apierrors.ValidationErrors)
	require.True(t, ok)

	fields := make([]string, 0, len(details.Errors))
	for _, e := range details.Errors {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"hour_max", "weather[0]", "var"}, fields)
}

func TestFilterQueryThresholds(t *testing.T) {
	defaults := analysis.DefaultThresholds()

	assert.Nil(t, FilterQuery{}.Thresholds(defaults))

	low := 1000
	got := FilterQuery{LowCasual: &low}.Thresholds(defaults)
	require.NotNil(t, got)
	assert.Equal(t, 1000, got.Low.Casual)
	assert.Equal(t, defaults.Low.Registered, got.Low.Registered)
	assert.Equal(t, defaults.Medium, got.Medium)
}

func TestFilterQueryDefaults(t *testing.T) {
	q := FilterQuery{}
	assert.Equal(t, analysis.VarTemp, q.WeatherVariable())
	assert.True(t, q.AsOfDate().IsZero())
	assert.Equal(t, analysis.Filter{}, q.Filter())
}
