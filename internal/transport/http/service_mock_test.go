package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bikepulse/internal/analysis"
	"bikepulse/internal/charts"
	"bikepulse/internal/config"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/middleware"
	"bikepulse/internal/services"
	"bikepulse/internal/shared/testutil"
)

// MockDashboardService is a testify mock of DashboardServiceInterface.
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) DefaultThresholds() analysis.Thresholds {
	return analysis.DefaultThresholds()
}

func (m *MockDashboardService) Options(ctx context.Context) (services.Options, error) {
	args := m.Called(ctx)
	return args.Get(0).(services.Options), args.Error(1)
}

func (m *MockDashboardService) Overview(ctx context.Context, f analysis.Filter) (analysis.Overview, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(analysis.Overview), args.Error(1)
}

func (m *MockDashboardService) Hourly(ctx context.Context, f analysis.Filter) ([]analysis.HourPoint, error) {
	args := m.Called(ctx, f)
	points, _ := args.Get(0).([]analysis.HourPoint)
	return points, args.Error(1)
}

func (m *MockDashboardService) Weather(ctx context.Context, f analysis.Filter, v analysis.Variable) (services.WeatherView, error) {
	args := m.Called(ctx, f, v)
	return args.Get(0).(services.WeatherView), args.Error(1)
}

func (m *MockDashboardService) WorkingDay(ctx context.Context, f analysis.Filter) (services.WorkingDayView, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(services.WorkingDayView), args.Error(1)
}

func (m *MockDashboardService) Seasonal(ctx context.Context, f analysis.Filter) ([]analysis.GroupTotal, error) {
	args := m.Called(ctx, f)
	totals, _ := args.Get(0).([]analysis.GroupTotal)
	return totals, args.Error(1)
}

func (m *MockDashboardService) DayType(ctx context.Context, f analysis.Filter) (services.DayTypeView, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(services.DayTypeView), args.Error(1)
}

func (m *MockDashboardService) WeatherByYear(ctx context.Context, f analysis.Filter) ([]analysis.GroupTotal, error) {
	args := m.Called(ctx, f)
	totals, _ := args.Get(0).([]analysis.GroupTotal)
	return totals, args.Error(1)
}

func (m *MockDashboardService) Clusters(ctx context.Context, f analysis.Filter, t *analysis.Thresholds) (services.ClustersView, error) {
	args := m.Called(ctx, f, t)
	return args.Get(0).(services.ClustersView), args.Error(1)
}

func (m *MockDashboardService) RFM(ctx context.Context, f analysis.Filter, asOf time.Time) ([]analysis.RFMRow, error) {
	args := m.Called(ctx, f, asOf)
	rows, _ := args.Get(0).([]analysis.RFMRow)
	return rows, args.Error(1)
}

func (m *MockDashboardService) Describe(ctx context.Context, f analysis.Filter) ([]analysis.ColumnStats, error) {
	args := m.Called(ctx, f)
	stats, _ := args.Get(0).([]analysis.ColumnStats)
	return stats, args.Error(1)
}

func (m *MockDashboardService) Chart(ctx context.Context, kind charts.Kind, f analysis.Filter, opts services.ChartOptions) ([]byte, error) {
	args := m.Called(ctx, kind, f, opts)
	png, _ := args.Get(0).([]byte)
	return png, args.Error(1)
}

func (m *MockDashboardService) Export(ctx context.Context, w io.Writer, f analysis.Filter, table, format string) error {
	args := m.Called(ctx, w, f, table, format)
	return args.Error(0)
}

func (m *MockDashboardService) Reload(ctx context.Context) (services.ReloadResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(services.ReloadResult), args.Error(1)
}

func newMockRouter(t *testing.T, svc *MockDashboardService) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	eh := apierrors.NewErrorHandler(logger, false)
	v := middleware.NewQueryValidator(logger)

	r := chi.NewRouter()
	r.Mount(config.DataEndpoint, NewDataHandler(svc, v, logger, eh).Routes())
	r.Mount(config.ChartsEndpoint, NewChartHandler(svc, v, logger, eh).Routes())
	r.Mount(config.ExportEndpoint, NewExportHandler(svc, v, logger, eh).Routes())
	r.Mount(config.DatasetEndpoint, NewDatasetHandler(svc, logger, eh).Routes())
	return r
}

func problemType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var p struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p), rec.Body.String())
	return p.Type
}

func TestHandlersPassDecodedFilter(t *testing.T) {
	svc := new(MockDashboardService)
	isQuery := mock.MatchedBy(func(f analysis.Filter) bool {
		return len(f.Years) == 1 && f.Years[0] == 2012 &&
			f.WorkingDay != nil && *f.WorkingDay &&
			f.Hours.Min != nil && *f.Hours.Min == 6
	})
	svc.On("Overview", mock.Anything, isQuery).Return(analysis.Overview{Days: 3, TotalRentals: 900}, nil).Once()

	rec := httptest.NewRecorder()
	newMockRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		config.DataEndpoint+"/overview?year=2012&workingday=1&hour_min=6", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	assert.Equal(t, 3, env.Count)
	svc.AssertExpectations(t)
}

func TestHandlersClustersThresholdOverlay(t *testing.T) {
	svc := new(MockDashboardService)
	want := analysis.DefaultThresholds()
	want.Medium.Casual = 60000
	svc.On("Clusters", mock.Anything, mock.Anything, &want).Return(services.ClustersView{Thresholds: want}, nil).Once()

	rec := httptest.NewRecorder()
	newMockRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		config.DataEndpoint+"/clusters?med_casual=60000", nil))

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestHandlersMapServiceErrors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*MockDashboardService)
		target   string
		method   string
		status   int
		problem  string
		noDetail string
	}{
		{
			name: "unexpected error hides detail",
			setup: func(m *MockDashboardService) {
				m.On("Hourly", mock.Anything, mock.Anything).Return(nil, errors.New("disk on fire"))
			},
			target:   config.DataEndpoint + "/hourly",
			status:   http.StatusInternalServerError,
			problem:  apierrors.TypeInternal,
			noDetail: "disk on fire",
		},
		{
			name: "deadline",
			setup: func(m *MockDashboardService) {
				m.On("Seasonal", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("seasonal: %w", context.DeadlineExceeded))
			},
			target:  config.DataEndpoint + "/seasonal",
			status:  http.StatusGatewayTimeout,
			problem: apierrors.TypeTimeout,
		},
		{
			name: "unknown export format",
			setup: func(m *MockDashboardService) {
				m.On("Export", mock.Anything, mock.Anything, mock.Anything, "day", "pdf").
					Return(fmt.Errorf("export: %w: %q", services.ErrUnknownFormat, "pdf"))
			},
			target:  config.ExportEndpoint + "/day.pdf",
			status:  http.StatusNotFound,
			problem: apierrors.TypeNotFound,
		},
		{
			name: "unknown chart",
			setup: func(m *MockDashboardService) {
				m.On("Chart", mock.Anything, charts.Kind("radar"), mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("chart: %w", services.ErrUnknownChart))
			},
			target:  config.ChartsEndpoint + "/radar.png",
			status:  http.StatusNotFound,
			problem: apierrors.TypeNotFound,
		},
		{
			name: "unreachable dataset source",
			setup: func(m *MockDashboardService) {
				m.On("Reload", mock.Anything).Return(services.ReloadResult{},
					fmt.Errorf("reload: %w", apierrors.NewNetworkError("dataset source unreachable", errors.New("connection refused"))))
			},
			target:   config.DatasetEndpoint + "/reload",
			method:   http.MethodPost,
			status:   http.StatusBadGateway,
			problem:  apierrors.TypeBadGateway,
			noDetail: "connection refused",
		},
		{
			name: "chart render failure",
			setup: func(m *MockDashboardService) {
				m.On("Chart", mock.Anything, charts.KindSeasonal, mock.Anything, mock.Anything).
					Return(nil, apierrors.NewRenderError("chart rendering failed", errors.New("font cache")))
			},
			target:   config.ChartsEndpoint + "/seasonal.png",
			status:   http.StatusInternalServerError,
			problem:  apierrors.TypeRenderFailed,
			noDetail: "font cache",
		},
		{
			name: "reload failure",
			setup: func(m *MockDashboardService) {
				m.On("Reload", mock.Anything).Return(services.ReloadResult{}, errors.New("upstream 500"))
			},
			target:   config.DatasetEndpoint + "/reload",
			method:   http.MethodPost,
			status:   http.StatusInternalServerError,
			problem:  apierrors.TypeInternal,
			noDetail: "upstream 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			tt.setup(svc)

			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := httptest.NewRecorder()
			newMockRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(method, tt.target, nil))

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.problem, problemType(t, rec))
			if tt.noDetail != "" {
				assert.NotContains(t, rec.Body.String(), tt.noDetail)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestFilterCtxRejectsBeforeService(t *testing.T) {
	svc := new(MockDashboardService)

	rec := httptest.NewRecorder()
	newMockRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		config.DataEndpoint+"/hourly?hour_min=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.TypeValidation, problemType(t, rec))
	svc.AssertNotCalled(t, "Hourly", mock.Anything, mock.Anything)
}
