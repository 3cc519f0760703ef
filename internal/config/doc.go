// Package config provides the supervisor configuration.
//
// A Config is an immutable value built once with a Builder and handed to the
// provisioner. Setters mirror the device-side fluent API; validation errors are
// collected and reported by Build as *fault.Error values of kind
// ValidationFailed.
//
// # Usage Example
//
//	cfg, err := config.NewBuilder().
//	    APName("Greenhouse").
//	    APPassword("plantsrule").
//	    MaxRetries(5).
//	    AuthenticatedHTTPReset(true).
//	    HardwareReset(17, 5*time.Second, true).
//	    JSONRoute("/api/temp", http.MethodGet, readTemp, config.Both, false).
//	    Build()
//
// # Configuration File
//
// The daemon reads a YAML file, by default /etc/wifiprov/config.yaml (override
// with $WIFIPROV_CONFIG). Durations are integer milliseconds:
//
//	version: 1
//	log_level: info
//	access_point:
//	  name: ESP32-Config
//	  timeout_ms: 300000
//	connection:
//	  max_retries: 10
//	  retry_delay_ms: 3000
//	  auto_wipe: true
//	reset:
//	  http:
//	    enabled: true
//	    authenticated: true
//
// Saves are atomic: the file is written to a temporary path and renamed.
//
// # Custom Routes
//
// Routes are attached to the portal, the connected-mode surface, or both,
// according to their Scope. Routes with RequireAuth are checked against the
// stored reset secret before the handler runs.
package config
