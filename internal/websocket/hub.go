package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"bikepulse/internal/infrastructure"
)

// Message types sent to dashboards.
const (
	TypeConnection      = "connection"
	TypeDatasetReloaded = "dataset:reloaded"
	TypeDatasetError    = "dataset:error"
)

// Message is the envelope of every frame sent to a client.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// ClientMetrics tracks the number of connected clients.
type ClientMetrics interface {
	WebSocketClientDelta(ctx context.Context, delta int64)
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics ClientMetrics

	totalConnections atomic.Int64
	messagesSent     atomic.Int64

	quit    chan struct{}
	done    chan struct{}
	running bool
	stopped bool
}

// NewHub creates a hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics ClientMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		metrics:    metrics,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in a goroutine. It is a no-op when the hub is
// already running or has been stopped.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running || h.stopped {
		return
	}
	h.running = true
	go h.run()
}

// Stop ends the hub loop and closes every client send channel. It waits for
// the loop to exit.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.stopped = true
		h.mu.Unlock()
		return
	}
	h.running = false
	h.stopped = true
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.closeAll()
			h.logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.totalConnections.Add(1)

			ctx := client.context()
			h.clientDelta(ctx, 1)
			h.logger.InfoContext(ctx, "client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			if data, err := encode(TypeConnection, map[string]string{
				"status":    "connected",
				"client_id": client.id,
			}, client.traceID); err == nil {
				select {
				case client.send <- data:
				default:
					h.logger.WarnContext(ctx, "client buffer full on connect",
						slog.String("client_id", client.id))
				}
			}

		case client := <-h.unregister:
			if h.drop(client) {
				h.logger.InfoContext(client.context(), "client unregistered",
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			failed := 0
			for _, client := range clients {
				select {
				case client.send <- message:
					h.messagesSent.Add(1)
				default:
					failed++
					h.drop(client)
					h.logger.WarnContext(client.context(), "client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}
			h.logger.Debug("broadcast delivered",
				slog.Int("client_count", len(clients)),
				slog.Int("failed", failed),
				slog.Int("message_size", len(message)))
		}
	}
}

// drop removes client and closes its send channel. It reports whether the
// client was still registered.
func (h *Hub) drop(client *Client) bool {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return false
	}
	delete(h.clients, client)
	close(client.send)
	h.mu.Unlock()

	h.clientDelta(client.context(), -1)
	return true
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	n := len(h.clients)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	if n > 0 {
		h.clientDelta(context.Background(), -int64(n))
	}
}

func (h *Hub) clientDelta(ctx context.Context, delta int64) {
	if h.metrics != nil {
		h.metrics.WebSocketClientDelta(ctx, delta)
	}
}

// Register adds a client. On a stopped hub the client's send channel is
// closed so its write pump exits.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.send)
	}
}

// Unregister removes a client. It never blocks once the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Broadcast sends a typed message to every client. Messages broadcast
// before Start or after Stop are discarded, so callers never block on an
// idle hub.
func (h *Hub) Broadcast(ctx context.Context, msgType string, data interface{}) {
	if !h.Running() {
		h.logger.DebugContext(ctx, "hub not running, message dropped",
			slog.String("message_type", msgType))
		return
	}

	traceID := infrastructure.GetTraceID(ctx)
	payload, err := encode(msgType, data, traceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "error marshaling message",
			slog.String("message_type", msgType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.quit:
	case <-ctx.Done():
	}
}

// Running reports whether the hub loop is accepting messages.
func (h *Hub) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns the hub counters.
func (h *Hub) Stats() map[string]int64 {
	return map[string]int64{
		"active_clients":    int64(h.ClientCount()),
		"total_connections": h.totalConnections.Load(),
		"messages_sent":     h.messagesSent.Load(),
	}
}

func encode(msgType string, data interface{}, traceID string) ([]byte, error) {
	return json.Marshal(Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TraceID:   traceID,
	})
}
