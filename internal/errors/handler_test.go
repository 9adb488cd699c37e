package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikepulse/internal/analysis"
	"bikepulse/internal/config"
	"bikepulse/internal/dataset"
	"bikepulse/internal/shared/testutil"
)

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_ErrorToProblem(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)
	r := httptest.NewRequest(http.MethodGet, "/api/data/hourly", nil)

	notLoaded := fmt.Errorf("%w: %w", dataset.ErrDatasetNotLoaded, dataset.ErrDatasetNotFound)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"api error", ErrValidation("year", "year must be numeric"), http.StatusBadRequest, TypeValidation},
		{"websocket upgrade", UpgradeError(http.StatusForbidden, nil), http.StatusForbidden, TypeWebSocketUpgrade},
		{"chart not found", ErrChartNotFound, http.StatusNotFound, TypeNotFound},
		{"dataset missing", notLoaded, http.StatusServiceUnavailable, TypeDatasetMissing},
		{"not loaded", dataset.ErrDatasetNotLoaded, http.StatusServiceUnavailable, TypeServiceDown},
		{
			"parse error",
			fmt.Errorf("day.csv: %w", &dataset.ParseError{Line: 4, Column: "season", Err: dataset.ErrInvalidCode}),
			http.StatusInternalServerError,
			TypeDataCorrupted,
		},
		{"invalid filter", fmt.Errorf("%w: hours", analysis.ErrInvalidFilter), http.StatusBadRequest, TypeValidation},
		{"invalid thresholds", analysis.ErrInvalidThresholds, http.StatusBadRequest, TypeValidation},
		{"unknown variable", analysis.ErrUnknownVariable, http.StatusBadRequest, TypeValidation},
		{"app storage", NewStorageError("write export", nil), http.StatusInternalServerError, TypeInternal},
		{"app config", NewConfigError("load config", nil), http.StatusInternalServerError, TypeInternal},
		{"app network", NewNetworkError("fetch", nil), http.StatusBadGateway, TypeBadGateway},
		{"app render", NewRenderError("png", nil), http.StatusInternalServerError, TypeRenderFailed},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := h.ErrorToProblem(tt.err, r)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/data/hourly", problem.Instance)
		})
	}
}

func TestMapDomainError(t *testing.T) {
	t.Run("missing dataset uses configured message", func(t *testing.T) {
		problem := MapDomainError(dataset.ErrDatasetNotFound, "/")
		require.NotNil(t, problem)
		assert.Equal(t, config.MsgDatasetMissing, problem.Detail)
	})

	t.Run("parse error exposes position", func(t *testing.T) {
		problem := MapDomainError(&dataset.ParseError{Line: 7, Column: "cnt", Err: dataset.ErrCountMismatch}, "/")
		require.NotNil(t, problem)
		assert.Equal(t, 7, problem.Extensions["line"])
		assert.Equal(t, "cnt", problem.Extensions["column"])
	})

	t.Run("unknown error", func(t *testing.T) {
		assert.Nil(t, MapDomainError(fmt.Errorf("other"), "/"))
	})
}

func TestErrorHandler_HandleError(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/charts/hourly.png", nil)
	h.HandleError(w, r, dataset.ErrDatasetNotFound)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeProblem(t, w)
	assert.Equal(t, TypeDatasetMissing, body["type"])
	assert.Equal(t, "Dataset Unavailable", body["title"])
	assert.Contains(t, body, "trace_id")
	assert.NotContains(t, body, "stack")

	testutil.AssertLogContains(t, logs, slog.LevelError, "request failed")
	testutil.AssertLogAttr(t, logs, "component", "error_handler")
}

func TestErrorHandler_HandleErrorNil(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, w.Body.Len())
	assert.Equal(t, 0, logs.Count())
}

func TestErrorHandler_ClientErrorsLogAtWarn(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/api/data/weather", nil), analysis.ErrUnknownVariable)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, decodeProblem(t, w), "stack")
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "request failed")
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	h.HandlePanic(w, httptest.NewRequest(http.MethodGet, "/", nil), "kaboom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeProblem(t, w)
	assert.Equal(t, "kaboom", body["panic"])
	assert.Contains(t, body, "stack")
	testutil.AssertLogContains(t, logs, slog.LevelError, "panic recovered")
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	h.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "/nope", decodeProblem(t, w)["instance"])

	w = httptest.NewRecorder()
	h.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, decodeProblem(t, w)["detail"], "DELETE")
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Invalid Query", "", "/api").
		WithExtension("field", "year").
		WithExtension("status", 999)

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "year", body["field"])
	assert.Equal(t, float64(http.StatusBadRequest), body["status"])
	assert.NotContains(t, body, "detail")
}

func TestProblemDetails_WithExtensionOnZeroValue(t *testing.T) {
	var problem ProblemDetails
	problem.WithExtension("k", "v")
	assert.Equal(t, "v", problem.Extensions["k"])
}
