package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "Bike Pulse"
	AppVersion = "1.0.0"

	// Dataset
	DefaultDatasetURL = "https://raw.githubusercontent.com/wahyupelitajaya/Dicoding-Submission-Analysis-Data/refs/heads/main/data"

	// Server
	DefaultPort           = 8080
	DefaultRequestTimeout = 60 * time.Second

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// File Paths (relative to the base directory)
	DefaultDataDir    = "data"
	DefaultExportsDir = "data/exports"
	DefaultLogsDir    = "logs"

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Error Messages
	MsgDatasetMissing = "Dataset files not found. Place day.csv and hour.csv in the data directory or configure the HTTP source."
)

// Endpoints
const (
	APIBasePath       = "/api"
	DataEndpoint      = "/api/data"
	ChartsEndpoint    = "/api/charts"
	ExportEndpoint    = "/api/export"
	DatasetEndpoint   = "/api/dataset"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
