package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Column names of the source CSV files.
const (
	ColInstant    = "instant"
	ColDate       = "dteday"
	ColSeason     = "season"
	ColYear       = "yr"
	ColMonth      = "mnth"
	ColHour       = "hr"
	ColHoliday    = "holiday"
	ColWeekday    = "weekday"
	ColWorkingDay = "workingday"
	ColWeather    = "weathersit"
	ColTemp       = "temp"
	ColFeelsLike  = "atemp"
	ColHumidity   = "hum"
	ColWindSpeed  = "windspeed"
	ColCasual     = "casual"
	ColRegistered = "registered"
	ColTotal      = "cnt"
)

var dayColumns = []string{
	ColInstant, ColDate, ColSeason, ColYear, ColMonth, ColHoliday, ColWeekday,
	ColWorkingDay, ColWeather, ColTemp, ColFeelsLike, ColHumidity, ColWindSpeed,
	ColCasual, ColRegistered, ColTotal,
}

// Parse errors
var (
	ErrMissingColumn = errors.New("missing column")
	ErrEmptyFile     = errors.New("empty file")
	ErrInvalidCode   = errors.New("invalid category code")
	ErrOutOfRange    = errors.New("value out of range")
	ErrCountMismatch = errors.New("casual + registered does not equal cnt")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseError reports a malformed value with its position in the file.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %q: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseDays reads day.csv content. Columns are located by header name.
func ParseDays(r io.Reader) ([]DayRecord, error) {
	cr, idx, err := openTable(r, dayColumns)
	if err != nil {
		return nil, err
	}

	var records []DayRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read day table: %w", err)
		}
		line, _ := cr.FieldPos(0)
		rec, err := parseDayRow(rowReader{line: line, row: row, idx: idx})
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseHours reads hour.csv content. Columns are located by header name.
func ParseHours(r io.Reader) ([]HourRecord, error) {
	cr, idx, err := openTable(r, append(append([]string{}, dayColumns...), ColHour))
	if err != nil {
		return nil, err
	}

	var records []HourRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read hour table: %w", err)
		}
		line, _ := cr.FieldPos(0)
		rr := rowReader{line: line, row: row, idx: idx}
		day, err := parseDayRow(rr)
		if err != nil {
			return nil, err
		}
		hour, err := rr.intIn(ColHour, 0, 23)
		if err != nil {
			return nil, err
		}
		records = append(records, HourRecord{DayRecord: day, Hour: hour})
	}
	return records, nil
}

// openTable strips an optional BOM, reads the header and checks required columns.
func openTable(r io.Reader, required []string) (*csv.Reader, map[string]int, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, nil, &ParseError{Line: 1, Column: col, Err: ErrMissingColumn}
		}
	}
	return cr, idx, nil
}

func parseDayRow(rr rowReader) (DayRecord, error) {
	var rec DayRecord
	var err error

	if rec.Instant, err = rr.int(ColInstant); err != nil {
		return rec, err
	}
	if rec.Date, err = rr.date(ColDate); err != nil {
		return rec, err
	}

	season, err := rr.intIn(ColSeason, 1, 4)
	if err != nil {
		return rec, rr.wrapCode(ColSeason, err)
	}
	rec.Season = Season(season)

	yr, err := rr.intIn(ColYear, 0, 99)
	if err != nil {
		return rec, err
	}
	rec.Year = BaseYear + yr

	if rec.Month, err = rr.intIn(ColMonth, 1, 12); err != nil {
		return rec, err
	}
	if rec.Holiday, err = rr.flag(ColHoliday); err != nil {
		return rec, err
	}
	if rec.Weekday, err = rr.intIn(ColWeekday, 0, 6); err != nil {
		return rec, err
	}
	if rec.WorkingDay, err = rr.flag(ColWorkingDay); err != nil {
		return rec, err
	}

	weather, err := rr.intIn(ColWeather, 1, 4)
	if err != nil {
		return rec, rr.wrapCode(ColWeather, err)
	}
	rec.Weather = Weather(weather)

	if rec.Temp, err = rr.unit(ColTemp); err != nil {
		return rec, err
	}
	if rec.FeelsLike, err = rr.unit(ColFeelsLike); err != nil {
		return rec, err
	}
	if rec.Humidity, err = rr.unit(ColHumidity); err != nil {
		return rec, err
	}
	if rec.WindSpeed, err = rr.unit(ColWindSpeed); err != nil {
		return rec, err
	}

	if rec.Casual, err = rr.count(ColCasual); err != nil {
		return rec, err
	}
	if rec.Registered, err = rr.count(ColRegistered); err != nil {
		return rec, err
	}
	if rec.Total, err = rr.count(ColTotal); err != nil {
		return rec, err
	}
	if rec.Casual+rec.Registered != rec.Total {
		return rec, &ParseError{Line: rr.line, Column: ColTotal, Err: ErrCountMismatch}
	}
	return rec, nil
}

// rowReader extracts typed values from one CSV row.
type rowReader struct {
	line int
	row  []string
	idx  map[string]int
}

func (rr rowReader) raw(col string) string {
	return strings.TrimSpace(rr.row[rr.idx[col]])
}

func (rr rowReader) fail(col string, err error) error {
	return &ParseError{Line: rr.line, Column: col, Err: err}
}

func (rr rowReader) int(col string) (int, error) {
	v, err := strconv.Atoi(rr.raw(col))
	if err != nil {
		return 0, rr.fail(col, err)
	}
	return v, nil
}

func (rr rowReader) intIn(col string, lo, hi int) (int, error) {
	v, err := rr.int(col)
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, rr.fail(col, fmt.Errorf("%w: %d not in [%d,%d]", ErrOutOfRange, v, lo, hi))
	}
	return v, nil
}

func (rr rowReader) count(col string) (int, error) {
	v, err := rr.int(col)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, rr.fail(col, fmt.Errorf("%w: negative count %d", ErrOutOfRange, v))
	}
	return v, nil
}

func (rr rowReader) flag(col string) (bool, error) {
	v, err := rr.intIn(col, 0, 1)
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

// unit parses a normalized measurement which must lie in [0,1].
func (rr rowReader) unit(col string) (float64, error) {
	v, err := strconv.ParseFloat(rr.raw(col), 64)
	if err != nil {
		return 0, rr.fail(col, err)
	}
	// NaN compares false against both bounds.
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
		return 0, rr.fail(col, fmt.Errorf("%w: %g not in [0,1]", ErrOutOfRange, v))
	}
	return v, nil
}

func (rr rowReader) date(col string) (time.Time, error) {
	t, err := time.Parse(DateLayout, rr.raw(col))
	if err != nil {
		return time.Time{}, rr.fail(col, err)
	}
	return t, nil
}

// wrapCode tags a range failure on a category column as an invalid code.
func (rr rowReader) wrapCode(col string, err error) error {
	if errors.Is(err, ErrOutOfRange) {
		return rr.fail(col, fmt.Errorf("%w: %s", ErrInvalidCode, rr.raw(col)))
	}
	return err
}
