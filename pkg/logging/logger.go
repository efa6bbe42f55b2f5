package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// NewJSONLogger creates a new JSON logger
func NewJSONLogger(writer io.Writer, level Level) *JSONLogger {
	return &JSONLogger{
		writer: writer,
		level:  level,
		fields: make([]Field, 0),
	}
}

// NewDefaultLogger creates a logger that writes to stdout, reading the level
// from the LOG_LEVEL environment variable (INFO if unset)
func NewDefaultLogger() *JSONLogger {
	level := InfoLevel
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		level = ParseLevel(levelStr)
	}
	return NewJSONLogger(os.Stdout, level)
}

// log is the internal logging method
func (l *JSONLogger) log(level Level, msg string, fields ...Field) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Build field map
	fieldMap := make(map[string]any)

	// Add pre-set fields
	for _, f := range l.fields {
		fieldMap[f.Key] = f.Value
	}

	// Add new fields
	for _, f := range fields {
		fieldMap[f.Key] = f.Value
	}

	entry := LogEntry{
		Time:    time.Now().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}

	// Only include fields if there are any
	if len(fieldMap) > 0 {
		entry.Fields = fieldMap
	}

	// Marshal to JSON
	data, err := json.Marshal(entry)
	if err != nil {
		// Fallback to simple text logging if JSON marshal fails
		fmt.Fprintf(l.writer, "[ERROR] Failed to marshal log entry: %v\n", err)
		return
	}

	l.writer.Write(data)
	l.writer.Write([]byte("\n"))
}

// Debug logs a debug-level message
func (l *JSONLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, fields...)
}

// Info logs an info-level message
func (l *JSONLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, fields...)
}

// Warn logs a warning-level message
func (l *JSONLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, fields...)
}

// Error logs an error-level message
func (l *JSONLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, fields...)
}

// With creates a child logger with the given fields pre-set
func (l *JSONLogger) With(fields ...Field) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Create a copy of existing fields
	newFields := make([]Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)

	return &JSONLogger{
		writer: l.writer,
		level:  l.level,
		fields: newFields,
	}
}

// SetLevel sets the minimum log level
func (l *JSONLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level
func (l *JSONLogger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// StartTimer marks the start of an operation whose completion log should
// carry a latency field. Fields given here are attached to the completion
// entry alongside any passed to End or EndError.
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{
		logger: logger,
		msg:    msg,
		start:  time.Now(),
		fields: fields,
	}
}

// End logs the operation at Info with its measured latency. Extra fields
// carry results only known at completion, like a replayed count.
func (t *TimedOperation) End(extra ...Field) {
	fields := append(append(t.fields, extra...), Latency(time.Since(t.start)))
	t.logger.Info(t.msg, fields...)
}

// EndError logs the operation at Error with its measured latency and the
// failure.
func (t *TimedOperation) EndError(err error, extra ...Field) {
	fields := append(append(t.fields, extra...), Latency(time.Since(t.start)), Error(err))
	t.logger.Error(t.msg, fields...)
}
