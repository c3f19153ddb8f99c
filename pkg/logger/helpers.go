package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs a completed Plurk API call
func LogRequest(l Logger, endpoint string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"endpoint":    endpoint,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("API request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("API request client error", fields)
	default:
		l.DebugWithFields("API request completed", fields)
	}
}

// LogDownload logs the outcome of one media download
func LogDownload(l Logger, username, name, url string, err error) {
	logger := l.WithFields(map[string]interface{}{
		"username": username,
		"file":     name,
		"url":      url,
	})

	if err != nil {
		logger.WithError(err).Warn("Download failed")
		return
	}
	logger.Debug("Download completed")
}

// LogUserSummary logs the per-user totals once a timeline is drained
func LogUserSummary(l Logger, username string, batches, posts int, elapsed time.Duration) {
	l.WithFields(map[string]interface{}{
		"username": username,
		"batches":  batches,
		"posts":    posts,
		"elapsed":  elapsed,
	}).Info("Timeline archived")
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	logger := l.WithField("component", component)
	if len(config) > 0 {
		logger = logger.WithFields(config)
	}
	logger.Debug("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Debug("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
