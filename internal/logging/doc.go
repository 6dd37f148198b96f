// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Logs to stdout when a terminal, pipe, or file is connected
//   - Logs to a rotated file when log_file is configured
//   - Always keeps recent history in a ring buffer for the log API
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",      // Global log level: debug, info, warn, error
//		Format: "text",      // Output format: text or json
//		Modules: map[string]string{
//			"health":    "debug", // Per-module overrides
//			"nutclient": "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("launcher")
//	logger.Info("Starting service", "service", "upsd")
//
// Add contextual attributes:
//
//	logger := logging.GetLogger("process").With("service", name)
//	logger.Info("Process started")  // Includes service in all logs
//
// # Viewing Logs
//
// When running under systemd or on a system with journald:
//
//	journalctl -t nutify              # All supervisor logs
//	journalctl -t nutify -f           # Follow live
//	journalctl -t nutify -p err       # Errors only
//
// Filter by structured fields:
//
//	journalctl -t nutify MODULE=health
//	journalctl -t nutify SERVICE=upsd
//
// # Configuration
//
// Log levels can be set globally or per-module. Module-specific levels
// override the global level for that module only.
//
// Example TOML configuration:
//
//	log_level = "info"
//	log_format = "text"
//
//	[log_levels]
//	health = "debug"
//	api = "warn"
//
// Note that the one-shot startup summary is written directly to stdout and
// is never filtered by these levels.
package logging
