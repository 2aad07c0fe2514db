// Package logging provides leveled, structured logging for textkit.
// Output is human-readable by default; JSON mode is available for
// machine consumption.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents log severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string (debug, info, warn, error) to a Level.
// Unknown strings map to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Entry is one structured log record in JSON mode.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Logger writes leveled log records to a single destination.
type Logger struct {
	mu       sync.Mutex
	output   io.Writer
	level    Level
	jsonMode bool
	fields   map[string]any
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Default returns the process-wide logger, writing to stderr.
func Default() *Logger {
	once.Do(func() {
		defaultLogger = New(os.Stderr)
	})
	return defaultLogger
}

// New creates a logger writing to output at LevelInfo.
func New(output io.Writer) *Logger {
	return &Logger{
		output: output,
		level:  LevelInfo,
		fields: make(map[string]any),
	}
}

// SetLevel sets the minimum level that will be written.
func (l *Logger) SetLevel(level Level) *Logger {
	l.level = level
	return l
}

// SetJSON switches between JSON and human-readable output.
func (l *Logger) SetJSON(enabled bool) *Logger {
	l.jsonMode = enabled
	return l
}

// With returns a child logger that attaches fields to every record.
func (l *Logger) With(fields map[string]any) *Logger {
	child := &Logger{
		output:   l.output,
		level:    l.level,
		jsonMode: l.jsonMode,
		fields:   make(map[string]any, len(l.fields)+len(fields)),
	}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for k, v := range fields {
		child.fields[k] = v
	}
	return child
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...map[string]any) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...map[string]any) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...map[string]any) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields ...map[string]any) {
	l.log(LevelError, msg, fields...)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...any) {
	l.log(LevelInfo, fmt.Sprintf(format, args...))
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...any) {
	l.log(LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...any) {
	l.log(LevelError, fmt.Sprintf(format, args...))
}

func (l *Logger) log(level Level, msg string, fields ...map[string]any) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	allFields := make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		allFields[k] = v
	}
	for _, f := range fields {
		for k, v := range f {
			allFields[k] = v
		}
	}

	if l.jsonMode {
		entry := Entry{
			Time:    time.Now().UTC(),
			Level:   level.String(),
			Message: msg,
			Fields:  allFields,
		}
		data, _ := json.Marshal(entry)
		fmt.Fprintln(l.output, string(data))
		return
	}

	timestamp := time.Now().Format("15:04:05")
	levelStr := fmt.Sprintf("%-5s", level.String())
	if len(allFields) > 0 {
		fieldStr := ""
		for k, v := range allFields {
			fieldStr += fmt.Sprintf(" %s=%v", k, v)
		}
		fmt.Fprintf(l.output, "%s %s %s%s\n", timestamp, levelStr, msg, fieldStr)
	} else {
		fmt.Fprintf(l.output, "%s %s %s\n", timestamp, levelStr, msg)
	}
}

// Package-level helpers using the default logger.

// Info logs an info message
func Info(msg string, fields ...map[string]any) {
	Default().Info(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...map[string]any) {
	Default().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...map[string]any) {
	Default().Error(msg, fields...)
}

// Infof logs a formatted info message
func Infof(format string, args ...any) {
	Default().Infof(format, args...)
}

// Errorf logs a formatted error message
func Errorf(format string, args ...any) {
	Default().Errorf(format, args...)
}
