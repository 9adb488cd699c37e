// Package shared holds code reused across Bike Pulse packages that does not
// belong to a single domain layer.
//
// The testutil subpackage provides:
//
//   - A buffered slog handler for asserting on log output
//   - Deterministic dataset fixtures for service and transport tests
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    store := testutil.NewLoadedStore(t, logger)
//	    ...
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "dataset loaded")
//	}
//
// Nothing in this package may import transport or application wiring code.
package shared
