// Package logging provides structured logging for dlipower.
//
// This package wraps zap logger with convenience functions for the logging
// patterns used by the power switch client and the CLI. Logging is silent
// unless a level is requested, so the library can be embedded without
// producing output.
//
// # Log Levels
//
//   - Debug: URLs, response codes, raw page dumps
//   - Info: outlet state transitions ("already ON", "turned outlet OFF")
//   - Warn: failed attempts with retries left, login failures
//   - Error: bridge and CLI failures
//
// # Configuration
//
// Initialize logging at startup, either from a flag or from the
// DLIPOWER_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize(logLevel); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Structured Logging
//
//	logging.Info("Turned outlet ON",
//	    zap.String("switch", "lpc.local"),
//	    zap.Int("outlet", 3),
//	)
//
// Logs go to stderr so they never mix with table or JSON output on stdout.
package logging
