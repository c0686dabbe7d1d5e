package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs a completed selector request
func LogRequest(l Logger, endpoint string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"endpoint":    endpoint,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 500 || statusCode == 429:
		l.WarnWithFields("selector request failed, will retry", fields)
	case statusCode >= 400:
		l.ErrorWithFields("selector request rejected", fields)
	default:
		l.DebugWithFields("selector request completed", fields)
	}
}

// LogCrawlProgress logs the visited-node counter
func LogCrawlProgress(l Logger, visited int, rgid, id int64, name string) {
	l.DebugWithFields("region visited", map[string]interface{}{
		"visited": visited,
		"rgid":    rgid,
		"id":      id,
		"name":    name,
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	l = l.WithField("component", component)
	if len(settings) > 0 {
		l = l.WithFields(settings)
	}
	l.Info("component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("component stopped")
}

// NewNopLogger creates a no-operation logger
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (n nopLogger) Debug(string)                                   {}
func (n nopLogger) Info(string)                                    {}
func (n nopLogger) Warn(string)                                    {}
func (n nopLogger) Error(string)                                   {}
func (n nopLogger) WithField(string, interface{}) Logger           { return n }
func (n nopLogger) WithFields(map[string]interface{}) Logger       { return n }
func (n nopLogger) WithError(error) Logger                         { return n }
func (n nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (n nopLogger) InfoWithFields(string, map[string]interface{})  {}
func (n nopLogger) WarnWithFields(string, map[string]interface{})  {}
func (n nopLogger) ErrorWithFields(string, map[string]interface{}) {}

func (n nopLogger) Zerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
