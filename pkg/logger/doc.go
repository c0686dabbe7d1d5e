// Package logger provides the structured logging interface used across the
// crawler.
//
// It wraps zerolog behind a small Logger interface:
//   - leveled logging (Debug, Info, Warn, Error)
//   - derived loggers with fields (WithField, WithFields, WithError)
//   - pretty console output on stderr, JSON lines when a log file is set
//   - a global logger for the CLI and a capturing TestLogger for tests
//
// Basic usage:
//
//	err := logger.Initialize(&cfg.Logging)
//	logger.WithField("root", 0).Info("crawl started")
//
//	log := logger.GetLogger().WithField("component", "crawler")
//	log.InfoWithFields("crawl finished", map[string]interface{}{
//	    "regions": 1200,
//	})
package logger
