// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments (development vs production)
// and integrates with the Fiber web framework used by the job API.
//
// # Context Awareness
//
// Two helpers attach correlation fields:
//   - WithRayID extracts the RayID from a Fiber context (set by the rayid middleware).
//   - WithJob tags every entry emitted by a background scan or generate job with its id.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Encoding: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info", Format: "console"})
//	log.Info("Patch generated", zap.String("path", path))
//
//	// In a request handler:
//	l := logger.WithRayID(log, c)
//	l.Error("Handler failed", zap.Error(err))
package logger
