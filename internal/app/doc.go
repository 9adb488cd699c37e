// Package app wires the bike-sharing dashboard together and manages its
// lifecycle.
//
// # Initialization Flow
//
//  1. Load configuration from defaults, the YAML file, .env and the environment
//  2. Initialize logging and OpenTelemetry
//  3. Pick the dataset source (HTTP or local directory) and build the store
//  4. Start the WebSocket hub and connect it to store reload events
//  5. Create the dashboard and health services
//  6. Mount the HTML page, JSON, chart, export and health routes
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Lifecycle
//
// Start performs the first dataset load before serving. A failed load is
// logged and the server still starts, reporting the missing dataset on the
// page and through /api/health/ready until a reload succeeds. Stop drains
// the HTTP server, stops the refresh loop and file watcher, closes WebSocket
// clients and flushes telemetry.
package app
