// Package logger declares the logging interface the planner packages depend
// on. infra/logger provides the zerolog implementation.
package logger

type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields, e.g. per-window solver stats.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
