// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Features:
//   - Zero-allocation logging in production
//   - Structured fields for context
//   - Named component loggers for subsystems
//   - Configurable output paths
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Host starting", zap.String("port", "4000"))
//
//	envLog := logger.Component("env")
//	envLog.Warn("Side service unavailable", zap.Error(err))
package logging
