// Package carbonlog is the leveled logger used by the CLI and the storage
// backends to report progress and counts. The cim, archive and iterator
// packages never import it.
package carbonlog

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// Fields carries structured key/value pairs alongside a log line, e.g. the
// object/group/comparison counts a traversal or sort already tracks.
type Fields map[string]interface{}

// Logger provides structured logging
type Logger struct {
	level  LogLevel
	logger *log.Logger
	fields Fields
}

var defaultLogger *Logger

func init() {
	defaultLogger = New(INFO)
}

// New creates a new logger instance
func New(level LogLevel) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// WithFields returns a derived logger that appends fields to every message
// it logs. The parent logger is left unchanged.
func WithFields(fields Fields) *Logger {
	return defaultLogger.WithFields(fields)
}

// WithFields returns a derived logger that appends fields to every message
// it logs. The receiver is left unchanged.
func (l *Logger) WithFields(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{level: l.level, logger: l.logger, fields: merged}
}

// SetLevel sets the global log level
func SetLevel(level LogLevel) {
	defaultLogger.level = level
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	defaultLogger.Debug(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	defaultLogger.Info(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	defaultLogger.Warn(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	defaultLogger.Error(format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level <= DEBUG {
		l.log("DEBUG", format, args...)
	}
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level <= INFO {
		l.log("INFO", format, args...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level <= WARN {
		l.log("WARN", format, args...)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.level <= ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *Logger) log(level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if len(l.fields) > 0 {
		msg = msg + " " + formatFields(l.fields)
	}
	l.logger.Output(3, fmt.Sprintf("[%s] %s", level, msg))
}

// formatFields renders fields as sorted "key=value" pairs so two calls with
// the same field set always produce the same line.
func formatFields(fields Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}