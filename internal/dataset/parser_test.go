package dataset

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dayHeader = "instant,dteday,season,yr,mnth,holiday,weekday,workingday,weathersit,temp,atemp,hum,windspeed,casual,registered,cnt\n"

func TestParseDays(t *testing.T) {
	f, err := os.Open("testdata/day.csv")
	require.NoError(t, err)
	defer f.Close()

	days, err := ParseDays(f)
	require.NoError(t, err)
	require.Len(t, days, 5)

	first := days[0]
	assert.Equal(t, 1, first.Instant)
	assert.Equal(t, time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, SeasonSpring, first.Season)
	assert.Equal(t, 2011, first.Year)
	assert.Equal(t, 1, first.Month)
	assert.False(t, first.Holiday)
	assert.Equal(t, 6, first.Weekday)
	assert.Equal(t, DayTypeWeekendHoliday, first.DayType())
	assert.Equal(t, WeatherMist, first.Weather)
	assert.InDelta(t, 0.344167, first.Temp, 1e-9)
	assert.Equal(t, 331, first.Casual)
	assert.Equal(t, 654, first.Registered)
	assert.Equal(t, 985, first.Total)

	assert.Equal(t, DayTypeWorking, days[2].DayType())
}

func TestParseHours(t *testing.T) {
	f, err := os.Open("testdata/hour.csv")
	require.NoError(t, err)
	defer f.Close()

	hours, err := ParseHours(f)
	require.NoError(t, err)
	require.Len(t, hours, 48)

	for i, h := range hours {
		assert.Equal(t, i%24, h.Hour)
		assert.Equal(t, h.Casual+h.Registered, h.Total)
	}
}

func TestParseDaysColumnOrderAndBOM(t *testing.T) {
	input := "\ufeffcnt,registered,casual,windspeed,hum,atemp,temp,weathersit,workingday,weekday,holiday,mnth,yr,season,dteday,instant\n" +
		"30,20,10,0.1,0.5,0.3,0.3,1,1,2,0,7,1,3,2012-07-03,550\n"

	days, err := ParseDays(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, days, 1)

	assert.Equal(t, 550, days[0].Instant)
	assert.Equal(t, 2012, days[0].Year)
	assert.Equal(t, SeasonFall, days[0].Season)
	assert.Equal(t, 30, days[0].Total)
}

func TestParseDaysErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		line   int
		column string
		target error
	}{
		{
			name:   "missing column",
			input:  "instant,dteday\n1,2011-01-01\n",
			line:   1,
			column: ColSeason,
			target: ErrMissingColumn,
		},
		{
			name:   "invalid season",
			input:  dayHeader + "1,2011-01-01,5,0,1,0,6,0,2,0.3,0.3,0.8,0.1,1,2,3\n",
			line:   2,
			column: ColSeason,
			target: ErrInvalidCode,
		},
		{
			name:   "invalid weather",
			input:  dayHeader + "1,2011-01-01,1,0,1,0,6,0,0,0.3,0.3,0.8,0.1,1,2,3\n",
			line:   2,
			column: ColWeather,
			target: ErrInvalidCode,
		},
		{
			name:   "negative count",
			input:  dayHeader + "1,2011-01-01,1,0,1,0,6,0,1,0.3,0.3,0.8,0.1,-1,2,1\n",
			line:   2,
			column: ColCasual,
			target: ErrOutOfRange,
		},
		{
			name: "count mismatch",
			input: dayHeader +
				"1,2011-01-01,1,0,1,0,6,0,1,0.3,0.3,0.8,0.1,1,2,3\n" +
				"2,2011-01-02,1,0,1,0,0,0,1,0.3,0.3,0.8,0.1,1,2,4\n",
			line:   3,
			column: ColTotal,
			target: ErrCountMismatch,
		},
		{
			name:   "humidity above one",
			input:  dayHeader + "1,2011-01-01,1,0,1,0,6,0,1,0.3,0.3,1.8,0.1,1,2,3\n",
			line:   2,
			column: ColHumidity,
			target: ErrOutOfRange,
		},
		{
			name:   "temperature not a number",
			input:  dayHeader + "1,2011-01-01,1,0,1,0,6,0,1,NaN,0.3,0.8,0.1,1,2,3\n",
			line:   2,
			column: ColTemp,
			target: ErrOutOfRange,
		},
		{
			name:   "wind speed infinite",
			input:  dayHeader + "1,2011-01-01,1,0,1,0,6,0,1,0.3,0.3,0.8,-Inf,1,2,3\n",
			line:   2,
			column: ColWindSpeed,
			target: ErrOutOfRange,
		},
		{
			name:   "flag not binary",
			input:  dayHeader + "1,2011-01-01,1,0,1,2,6,0,1,0.3,0.3,0.8,0.1,1,2,3\n",
			line:   2,
			column: ColHoliday,
			target: ErrOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDays(strings.NewReader(tt.input))
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "expected *ParseError, got %T", err)
			assert.Equal(t, tt.line, pe.Line)
			assert.Equal(t, tt.column, pe.Column)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestParseDaysBadDate(t *testing.T) {
	_, err := ParseDays(strings.NewReader(dayHeader + "1,01/01/2011,1,0,1,0,6,0,1,0.3,0.3,0.8,0.1,1,2,3\n"))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ColDate, pe.Column)
}

func TestParseEmptyInput(t *testing.T) {
	_, err := ParseDays(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = ParseHours(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestParseHoursRejectsBadHour(t *testing.T) {
	input := "instant,dteday,season,yr,mnth,hr,holiday,weekday,workingday,weathersit,temp,atemp,hum,windspeed,casual,registered,cnt\n" +
		"1,2011-01-01,1,0,1,24,0,6,0,1,0.24,0.2879,0.81,0,3,13,16\n"

	_, err := ParseHours(strings.NewReader(input))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ColHour, pe.Column)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestParseHoursNeedsHourColumn(t *testing.T) {
	_, err := ParseHours(strings.NewReader(dayHeader + "1,2011-01-01,1,0,1,0,6,0,1,0.3,0.3,0.8,0.1,1,2,3\n"))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ColHour, pe.Column)
	assert.ErrorIs(t, err, ErrMissingColumn)
}
