package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bikepulse/internal/config"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/infrastructure"
	"bikepulse/internal/shared/testutil"
)

type deltaRecorder struct {
	mu     sync.Mutex
	deltas []int64
}

func (d *deltaRecorder) WebSocketClientDelta(_ context.Context, delta int64) {
	d.mu.Lock()
	d.deltas = append(d.deltas, delta)
	d.mu.Unlock()
}

func (d *deltaRecorder) sum() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	for _, v := range d.deltas {
		n += v
	}
	return n
}

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		PingPeriod:      time.Second,
		PongWait:        2 * time.Second,
	}
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return websocket.DefaultDialer.Dial(url, header)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubBroadcastsReload(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger, _ := testutil.NewTestLogger(t)
	metrics := &deltaRecorder{}
	hub := NewHub(logger, metrics)
	hub.Start()
	defer hub.Stop()

	srv := httptest.NewServer(NewHandler(hub, testConfig(), nil, false, logger))
	defer srv.Close()

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)

	hello := readMessage(t, conn)
	assert.Equal(t, TypeConnection, hello.Type)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), metrics.sum())

	ctx := infrastructure.WithTraceID(context.Background(), "trace-reload")
	hub.Broadcast(ctx, TypeDatasetReloaded, map[string]int{"days": 731})

	msg := readMessage(t, conn)
	assert.Equal(t, TypeDatasetReloaded, msg.Type)
	assert.Equal(t, "trace-reload", msg.TraceID)
	assert.Equal(t, map[string]interface{}{"days": float64(731)}, msg.Data)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(0), metrics.sum())
	assert.Equal(t, int64(1), hub.Stats()["total_connections"])
}

func TestHubStopClosesClients(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger, nil)
	hub.Start()

	srv := httptest.NewServer(NewHandler(hub, testConfig(), nil, false, logger))
	defer srv.Close()

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	defer conn.Close()
	readMessage(t, conn)

	hub.Stop()
	hub.Stop()
	assert.Equal(t, 0, hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)

	done := make(chan struct{})
	go func() {
		hub.Broadcast(context.Background(), TypeDatasetError, "ignored")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked after stop")
	}
}

func TestHubBroadcastBeforeStartDoesNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger, logs := testutil.NewTestLogger(t)
	hub := NewHub(logger, nil)
	assert.False(t, hub.Running())

	done := make(chan struct{})
	go func() {
		hub.Broadcast(context.Background(), TypeDatasetReloaded, map[string]int{"days": 731})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked before start")
	}
	testutil.AssertLogContains(t, logs, slog.LevelDebug, "hub not running, message dropped")

	hub.Start()
	assert.True(t, hub.Running())
	hub.Stop()
	assert.False(t, hub.Running())
}

func TestHubStartAfterStopIsNoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(nil, nil)
	hub.Stop()
	hub.Start()
	assert.False(t, hub.running)
}

func TestHandlerRejectsForeignOrigin(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger, logs := testutil.NewTestLogger(t)
	hub := NewHub(logger, nil)
	hub.Start()
	defer hub.Stop()

	srv := httptest.NewServer(NewHandler(hub, testConfig(), []string{"http://dashboard.test"}, false, logger))
	defer srv.Close()

	header := http.Header{"Origin": []string{"http://evil.test"}}
	_, resp, err := dial(t, srv, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "websocket upgrade rejected")

	header.Set("Origin", "http://dashboard.test")
	conn, _, err := dial(t, srv, header)
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}

func TestHandlerRejectsPlainRequest(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewHandler(NewHub(logger, nil), testConfig(), nil, false, logger)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, rec.Body.String(), apierrors.TypeWebSocketUpgrade)
	assert.Contains(t, rec.Body.String(), "WEBSOCKET_UPGRADE_FAILED")
}

func TestCheckOrigin(t *testing.T) {
	h := NewHandler(NewHub(nil, nil), testConfig(), nil, false, nil)

	r := httptest.NewRequest(http.MethodGet, "http://localhost:8080/ws", nil)
	assert.True(t, h.checkOrigin(r), "no origin header")

	r.Header.Set("Origin", "http://localhost:8080")
	assert.True(t, h.checkOrigin(r), "same host")

	r.Header.Set("Origin", "http://other:8080")
	assert.False(t, h.checkOrigin(r))

	dev := NewHandler(NewHub(nil, nil), testConfig(), nil, true, nil)
	assert.True(t, dev.checkOrigin(r))
}
