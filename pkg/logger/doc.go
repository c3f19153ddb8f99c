// Package logger provides the structured logging interface used across plurkbackup.
//
// It wraps zerolog. Console output is written to stderr in a compact
// human-readable form; when a log file is configured the same events are
// also written as JSON lines to a lumberjack-rotated file.
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//
//	logger.Info("Backup started")
//	logger.WithField("username", "alice").Info("Resolved user")
//
// Components receive a Logger and derive scoped loggers from it:
//
//	log := base.WithFields(map[string]interface{}{
//	    "component": "producer",
//	    "username":  username,
//	})
//	log.DebugWithFields("Fetched batch", map[string]interface{}{
//	    "posts":  len(batch),
//	    "cursor": cursor,
//	})
//
// Per-post events are logged at debug level and per-user events at info,
// so the default level shows one line per user.
//
// Tests use NewTestLogger to capture and assert on emitted messages, or
// NewNopLogger to discard them.
package logger
