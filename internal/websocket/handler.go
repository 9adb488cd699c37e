package websocket

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"bikepulse/internal/config"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/infrastructure"
)

// Handler upgrades dashboard connections and attaches them to a hub.
type Handler struct {
	hub            *Hub
	cfg            config.WebSocketConfig
	allowedOrigins []string
	allowAll       bool
	upgrader       websocket.Upgrader
	errorHandler   *apierrors.ErrorHandler
	logger         *slog.Logger
}

// NewHandler creates the upgrade handler. With allowAll every origin is
// accepted, which is meant for development.
func NewHandler(hub *Hub, cfg config.WebSocketConfig, allowedOrigins []string, allowAll bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	h := &Handler{
		hub:            hub,
		cfg:            cfg,
		allowedOrigins: allowedOrigins,
		allowAll:       allowAll,
		logger:         infrastructure.WithComponent(logger, "websocket.handler"),
	}
	h.errorHandler = apierrors.NewErrorHandler(h.logger, false)
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.WarnContext(r.Context(), "websocket upgrade rejected",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			h.errorHandler.HandleError(w, r, apierrors.UpgradeError(status, reason))
		},
	}
	return h
}

// checkOrigin allows same-host pages, requests without an Origin header and
// the configured origins.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowAll {
		return true
	}
	if strings.EqualFold(origin, "http://"+r.Host) || strings.EqualFold(origin, "https://"+r.Host) {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied.
		return
	}

	traceID := infrastructure.GetTraceID(r.Context())
	client := NewClient(h.hub, gorillaConn{conn}, traceID, h.cfg, h.logger)
	h.logger.InfoContext(r.Context(), "websocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))

	client.Serve()
}
