// Package logging provides structured logging utilities for apigate components.
//
// # Overview
//
// This package wraps the standard library slog package with apigate-specific
// defaults and conventions for consistent logging across the CLI, the ingress
// router, and the workload controller. It supports environment-based log level
// configuration, module/version context injection, and automatic source
// location tracking for debug logs.
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: Detailed diagnostic information with source location
//   - INFO: General informational messages (default)
//   - WARN/WARNING: Warning messages for potentially problematic situations
//   - ERROR: Error messages for failures requiring attention
//
// # Usage
//
// Setting the default logger (recommended):
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("apigated", "v1.0.0")
//
//	    slog.Info("routing request", "path", "/api/status")
//	    slog.Error("reconcile failed", "error", err)
//	}
//
// Creating a custom logger:
//
//	logger := logging.NewStructuredLogger("router", "v2.0.0", "debug")
//	logger.Info("server starting", "port", 8000)
//
// # Environment Configuration
//
// The LOG_LEVEL environment variable controls logging verbosity:
//
//	LOG_LEVEL=debug apigate route
//
// If LOG_LEVEL is not set, defaults to INFO level.
//
// # Output Format
//
// All logs are written to stderr in JSON format:
//
//	{
//	    "time": "2025-01-15T10:30:00.123Z",
//	    "level": "INFO",
//	    "msg": "server started",
//	    "module": "apigated",
//	    "version": "v1.0.0",
//	    "port": 8000
//	}
//
// Debug logs additionally include source location.
package logging
