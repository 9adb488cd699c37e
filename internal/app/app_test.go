package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bikepulse/internal/config"
	"bikepulse/internal/dataset"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/exporter"
	"bikepulse/internal/shared/testutil"
	ws "bikepulse/internal/websocket"
)

// testConfig returns a file-backed configuration rooted in a temp dir.
// withData controls whether day.csv and hour.csv exist.
func testConfig(t *testing.T, withData bool) *config.Config {
	t.Helper()
	base := t.TempDir()
	dataDir := filepath.Join(base, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0755))

	if withData {
		day, err := os.Create(filepath.Join(dataDir, dataset.DayFile))
		require.NoError(t, err)
		require.NoError(t, exporter.DayRecordsCSV(day, testutil.SampleDays()))
		require.NoError(t, day.Close())

		hour, err := os.Create(filepath.Join(dataDir, dataset.HourFile))
		require.NoError(t, err)
		require.NoError(t, exporter.HourRecordsCSV(hour, testutil.SampleHours()))
		require.NoError(t, hour.Close())
	}

	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Paths.BaseDir = base
	cfg.Paths.DataDir = "data"
	cfg.Data.Source = config.SourceFile
	cfg.Data.Watch = false
	cfg.Security.RateLimit.Enabled = false
	cfg.Telemetry.TraceExporter = "none"
	return cfg
}

// newTestApp builds an application with a running websocket hub, the way
// Start leaves it.
func newTestApp(t *testing.T, withData bool) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	a, err := New(testConfig(t, withData), logger)
	require.NoError(t, err)
	a.WebSocketHub.Start()
	t.Cleanup(a.WebSocketHub.Stop)
	return a
}

func serve(t *testing.T, a *Application, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNewWiresComponents(t *testing.T) {
	a := newTestApp(t, true)

	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.WebSocketHub)
	assert.NotNil(t, a.DashboardService)
	assert.NotNil(t, a.HealthService)
	assert.Nil(t, a.Watcher, "watch disabled")
	assert.Equal(t, "127.0.0.1:0", a.Server.Addr)
	assert.Equal(t, filepath.Join(a.Paths.BaseDir, "data"), a.Paths.DataDir)
	assert.DirExists(t, a.Paths.ExportsDir)

	assert.Equal(t, 30000, a.DashboardService.DefaultThresholds().Low.Casual)
	assert.Equal(t, 300000, a.DashboardService.DefaultThresholds().Medium.Registered)
}

func TestNewSelectsSource(t *testing.T) {
	cfg := testConfig(t, false)
	paths, err := cfg.Paths.Resolve()
	require.NoError(t, err)

	_, ok := newSource(cfg.Data, paths).(*dataset.FileSource)
	assert.True(t, ok)

	cfg.Data.Source = config.SourceHTTP
	_, ok = newSource(cfg.Data, paths).(*dataset.HTTPSource)
	assert.True(t, ok)
}

func TestNewStartsWatcherForFileSource(t *testing.T) {
	cfg := testConfig(t, true)
	cfg.Data.Watch = true
	logger, _ := testutil.NewTestLogger(t)

	a, err := New(cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, a.Watcher)
	require.NoError(t, a.Watcher.Close())
}

func TestReloadBeforeStartDoesNotBlock(t *testing.T) {
	for _, withData := range []bool{true, false} {
		logger, _ := testutil.NewTestLogger(t)
		a, err := New(testConfig(t, withData), logger)
		require.NoError(t, err)
		require.False(t, a.WebSocketHub.Running())

		done := make(chan error, 1)
		go func() {
			_, err := a.Store.Reload(context.Background())
			done <- err
		}()

		select {
		case err := <-done:
			if withData {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, dataset.ErrDatasetNotFound)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("reload with data=%v blocked on an idle websocket hub", withData)
		}
	}
}

func TestReloadNotifiesDashboards(t *testing.T) {
	a := newTestApp(t, true)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() ws.Message {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg ws.Message
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}
	assert.Equal(t, ws.TypeConnection, read().Type)

	_, err = a.Store.Reload(context.Background())
	require.NoError(t, err)

	msg := read()
	assert.Equal(t, ws.TypeDatasetReloaded, msg.Type)
	assert.NotEmpty(t, msg.TraceID)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(len(testutil.SampleDays())), data["days"])
}

func TestNewReportsUnwritableExportsDir(t *testing.T) {
	cfg := testConfig(t, false)
	blocker := filepath.Join(cfg.Paths.BaseDir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	cfg.Paths.ExportsDir = filepath.Join("blocker", "exports")

	logger, _ := testutil.NewTestLogger(t)
	_, err := New(cfg, logger)
	require.Error(t, err)

	var appErr *apierrors.AppError
	require.True(t, errors.As(err, &appErr), err.Error())
	assert.Equal(t, apierrors.ErrTypeStorage, appErr.Type)
}

func TestRouterServesAPI(t *testing.T) {
	a := newTestApp(t, true)
	_, err := a.Store.Reload(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		status int
		want   string
	}{
		{"dashboard page", "/", http.StatusOK, "<img"},
		{"overview", config.DataEndpoint + "/overview", http.StatusOK, `"status":"success"`},
		{"chart", config.ChartsEndpoint + "/seasonal.png", http.StatusOK, "PNG"},
		{"export", config.ExportEndpoint + "/day.csv", http.StatusOK, "dteday"},
		{"liveness", config.HealthEndpoint + "/live", http.StatusOK, "status"},
		{"readiness", config.HealthEndpoint + "/ready", http.StatusOK, "ready"},
		{"version alias", config.APIBasePath + "/version", http.StatusOK, "version"},
		{"prometheus", config.MetricsEndpoint, http.StatusOK, "go_goroutines"},
		{"hub stats", config.MetricsEndpoint + "/stats", http.StatusOK, "total_connections"},
		{"invalid filter", config.DataEndpoint + "/overview?season=9", http.StatusBadRequest, "season"},
		{"unknown route", "/api/nothing", http.StatusNotFound, "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, a, http.MethodGet, tt.target)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestRouterAppliesMiddleware(t *testing.T) {
	a := newTestApp(t, true)
	_, err := a.Store.Reload(context.Background())
	require.NoError(t, err)

	rec := serve(t, a, http.MethodGet, config.HealthEndpoint+"/live")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = serve(t, a, http.MethodGet, config.DatasetEndpoint+"/reload")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouterWithoutDataset(t *testing.T) {
	a := newTestApp(t, false)
	_, err := a.Store.Reload(context.Background())
	require.ErrorIs(t, err, dataset.ErrDatasetNotFound)

	rec := serve(t, a, http.MethodGet, config.DataEndpoint+"/overview")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(t, a, http.MethodGet, config.HealthEndpoint+"/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(t, a, http.MethodGet, "/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dataset files not found")
}

func TestGetCORSConfigAddsOwnOrigin(t *testing.T) {
	a := newTestApp(t, false)
	a.Config.Server.Port = 9090
	a.Config.Security.AllowedOrigins = []string{"http://dashboard.test"}

	cfg := a.getCORSConfig()
	assert.Equal(t, []string{"http://dashboard.test", "http://localhost:9090"}, cfg.AllowedOrigins)

	a.Config.Security.AllowedOrigins = []string{"HTTP://LOCALHOST:9090"}
	cfg = a.getCORSConfig()
	assert.Len(t, cfg.AllowedOrigins, 1)
	assert.Equal(t, []string{"X-Request-ID"}, cfg.ExposedHeaders)
}

func TestStartAndStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	a := newTestApp(t, true)
	a.Config.Data.RefreshInterval = time.Hour
	require.NoError(t, a.Start(context.Background()))

	ds, err := a.Store.Get()
	require.NoError(t, err)
	assert.Len(t, ds.Days, len(testutil.SampleDays()))

	client := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
	base := "http://" + a.Server.Addr

	resp, err := client.Get(base + config.HealthEndpoint + "/ready")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Post(base+config.DatasetEndpoint+"/reload", "application/json", nil)
	require.NoError(t, err)
	var body struct {
		Status string `json:"status"`
		Data   struct {
			Days  int `json:"days"`
			Hours int `json:"hours"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, len(testutil.SampleDays()), body.Data.Days)
	assert.Equal(t, len(testutil.SampleHours()), body.Data.Hours)

	require.NoError(t, a.Stop(context.Background()))

	_, err = client.Get(base + config.HealthEndpoint + "/live")
	assert.Error(t, err, "server should be closed")
}

func TestStartWithMissingDatasetStillServes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	logger, logs := testutil.NewTestLogger(t)
	a, err := New(testConfig(t, false), logger)
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	defer func() { require.NoError(t, a.Stop(context.Background())) }()

	testutil.AssertLogContains(t, logs, slog.LevelWarn, "initial dataset load failed")

	client := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
	resp, err := client.Get("http://" + a.Server.Addr + config.HealthEndpoint + "/ready")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStartFailsWhenPortTaken(t *testing.T) {
	busy := httptest.NewServer(http.NotFoundHandler())
	defer busy.Close()

	a := newTestApp(t, true)
	a.Server.Addr = strings.TrimPrefix(busy.URL, "http://")

	err := a.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
	a.WebSocketHub.Stop()
}

func TestBrowserMethods(t *testing.T) {
	url := "http://localhost:8080"

	linux := browserMethods("linux", url)
	require.NotEmpty(t, linux)
	assert.Equal(t, "xdg-open", linux[0].cmd)
	assert.Equal(t, []string{url}, linux[0].args)

	darwin := browserMethods("darwin", url)
	require.Len(t, darwin, 1)
	assert.Equal(t, "open", darwin[0].cmd)

	windows := browserMethods("windows", url)
	assert.Equal(t, "cmd", windows[0].cmd)
	assert.Contains(t, windows[0].args, url)
}
