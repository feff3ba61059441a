// Package session runs one code-generation session against a backend.
package session

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Logger provides counted, prefixed logging for a session
type Logger struct {
	mu         sync.Mutex
	prefix     string
	sugar      *zap.SugaredLogger
	errorCount int
	warnCount  int
}

// NewLogger creates a logger named prefix on top of base.
// A nil base discards output but still counts messages.
func NewLogger(prefix string, base *zap.Logger) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &Logger{
		prefix: prefix,
		sugar:  base.Named(prefix).Sugar(),
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
	l.mu.Lock()
	l.warnCount++
	l.mu.Unlock()
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
	l.mu.Lock()
	l.errorCount++
	l.mu.Unlock()
}

// HasErrors returns true if any errors were logged
func (l *Logger) HasErrors() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errorCount > 0
}

// Sync flushes the underlying zap logger.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// PrintSummary writes error and warning counts to w, if there were any.
func (l *Logger) PrintSummary(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.errorCount > 0 || l.warnCount > 0 {
		fmt.Fprintf(w, "\n[%s] Session Summary:\n", l.prefix)
		if l.errorCount > 0 {
			fmt.Fprintf(w, "  Errors: %d\n", l.errorCount)
		}
		if l.warnCount > 0 {
			fmt.Fprintf(w, "  Warnings: %d\n", l.warnCount)
		}
	}
}
