// Package logging provides structured logging for the wifiprov supervisor.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the supervisor: state transitions, reset triggers,
// hook dispatch and HTTP requests served by the portal.
//
// # Log Levels
//
// The package supports these levels:
//   - none: No output at all (nop logger)
//   - error: Failures that the supervisor recovers from (store unavailable, AP start failed)
//   - warn: Degraded behaviour (authentication failures, advertisement errors)
//   - info: Normal operations (transitions, portal start/stop, resets). Default.
//   - debug: Per-request and per-poll detail
//
// # Structured Logging
//
//	logging.Info("Access point started",
//	    zap.String("ap_name", "ESP32-Config-A1B2C3"),
//	    zap.String("ap_address", "192.168.4.1"),
//	)
//
// # Configuration
//
// Initialize logging once at startup:
//
//	if err := logging.Initialize(cfg.LogLevel()); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// An empty level falls back to the WIFIPROV_LOG_LEVEL environment variable and then
// to "info".
//
// # Secrets
//
// Never log passwords or reset secrets. Use MaskSecret to record that a value was
// present.
package logging
