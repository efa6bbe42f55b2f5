package logging

import (
	"io"
	"sync"
	"time"
)

// Level orders log severities from Debug up to Error.
type Level int

const (
	// DebugLevel is chatty per-operation detail, off in production
	DebugLevel Level = iota
	// InfoLevel is the default
	InfoLevel
	// WarnLevel marks degraded behavior that self-heals, like a fallback read
	WarnLevel
	// ErrorLevel marks failures that need attention, like a dead-lettered write
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to its Level, defaulting unknown input to
// InfoLevel.
func ParseLevel(s string) Level {
	switch s {
	case "DEBUG", "debug":
		return DebugLevel
	case "INFO", "info":
		return InfoLevel
	case "WARN", "warn", "WARNING", "warning":
		return WarnLevel
	case "ERROR", "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field is one structured key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// Logger is the structured logging surface the subsystems share. With
// returns a child carrying preset fields, typically the component name.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// JSONLogger writes one JSON object per entry.
type JSONLogger struct {
	writer io.Writer
	level  Level
	fields []Field
	mu     sync.Mutex
}

// LogEntry is the wire shape of one emitted line.
type LogEntry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// NopLogger discards everything. Tests and optional dependencies use it.
type NopLogger struct{}

func (NopLogger) Debug(msg string, fields ...Field) {}
func (NopLogger) Info(msg string, fields ...Field)  {}
func (NopLogger) Warn(msg string, fields ...Field)  {}
func (NopLogger) Error(msg string, fields ...Field) {}
func (n NopLogger) With(fields ...Field) Logger     { return n }
func (NopLogger) SetLevel(level Level)              {}
func (NopLogger) GetLevel() Level                   { return InfoLevel }

// NewNopLogger returns a logger that discards all output.
func NewNopLogger() Logger {
	return NopLogger{}
}

// TimedOperation carries the start time of an in-flight operation so the
// completion log can report its latency. Create one with StartTimer.
type TimedOperation struct {
	logger Logger
	msg    string
	start  time.Time
	fields []Field
}
