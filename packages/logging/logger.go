// Package logging is a small structured, leveled logger shared by the
// spreadsheet packages and the sheet command.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity level of a log entry
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of a log level
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

// ParseLevel maps a configuration string to a level. unknown strings fall
// back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Field is a key-value pair attached to an entry
type Field struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// F creates a field
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Err creates an "error" field, nil errors are kept as nil
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Entry is a single formatted log record
type Entry struct {
	Timestamp time.Time
	Level     Level
	Component string
	Message   string
	Fields    []Field
}

// Logger defines the interface for structured logging
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a logger that adds fields to every entry
	With(fields ...Field) Logger

	// WithComponent returns a logger that tags entries with a component
	WithComponent(component string) Logger
}

// Formatter turns an entry into one line of output
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
	Name() string
}

// sink is shared by a logger and every logger derived from it, so derived
// loggers serialize their writes
type sink struct {
	mu  sync.Mutex
	out io.Writer
}

// DefaultLogger is the default implementation of Logger
type DefaultLogger struct {
	level     Level
	component string
	fields    []Field
	formatter Formatter
	sink      *sink
	now       func() time.Time
}

var _ Logger = (*DefaultLogger)(nil)

// New creates a logger writing to out. format is "json" or "text".
func New(out io.Writer, level Level, format string) *DefaultLogger {
	if out == nil {
		out = os.Stderr
	}
	return &DefaultLogger{
		level:     level,
		formatter: FormatterFor(format),
		sink:      &sink{out: out},
		now:       time.Now,
	}
}

// FormatterFor returns the formatter named by format, text by default
func FormatterFor(format string) Formatter {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return NewJSONFormatter()
	}
	return NewTextFormatter()
}

// Debug logs a debug message
func (l *DefaultLogger) Debug(msg string, fields ...Field) {
	l.log(LevelDebug, msg, fields)
}

// Info logs an info message
func (l *DefaultLogger) Info(msg string, fields ...Field) {
	l.log(LevelInfo, msg, fields)
}

// Warn logs a warning message
func (l *DefaultLogger) Warn(msg string, fields ...Field) {
	l.log(LevelWarn, msg, fields)
}

// Error logs an error message
func (l *DefaultLogger) Error(msg string, fields ...Field) {
	l.log(LevelError, msg, fields)
}

// With returns a new logger with the specified fields
func (l *DefaultLogger) With(fields ...Field) Logger {
	newLogger := l.copy()
	newLogger.fields = append(newLogger.fields, fields...)
	return newLogger
}

// WithComponent returns a new logger with the specified component
func (l *DefaultLogger) WithComponent(component string) Logger {
	newLogger := l.copy()
	newLogger.component = component
	return newLogger
}

// SetLevel sets the minimum log level
func (l *DefaultLogger) SetLevel(level Level) {
	l.level = level
}

// GetLevel returns the current minimum log level
func (l *DefaultLogger) GetLevel() Level {
	return l.level
}

func (l *DefaultLogger) log(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}

	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	entry := &Entry{
		Timestamp: l.now(),
		Level:     level,
		Component: l.component,
		Message:   msg,
		Fields:    all,
	}

	data, err := l.formatter.Format(entry)
	if err != nil {
		data = []byte(fmt.Sprintf("failed to format log entry: %v - original message: %s\n", err, msg))
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if _, err := l.sink.out.Write(data); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write log: %v\n", err)
	}
}

// copy creates a copy of the logger sharing its sink
func (l *DefaultLogger) copy() *DefaultLogger {
	fields := make([]Field, len(l.fields))
	copy(fields, l.fields)
	return &DefaultLogger{
		level:     l.level,
		component: l.component,
		fields:    fields,
		formatter: l.formatter,
		sink:      l.sink,
		now:       l.now,
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field)        {}
func (nopLogger) Info(string, ...Field)         {}
func (nopLogger) Warn(string, ...Field)         {}
func (nopLogger) Error(string, ...Field)        {}
func (n nopLogger) With(...Field) Logger        { return n }
func (n nopLogger) WithComponent(string) Logger { return n }

// Nop returns a logger that discards everything
func Nop() Logger {
	return nopLogger{}
}
