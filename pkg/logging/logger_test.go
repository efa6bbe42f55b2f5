package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func parseEntry(t *testing.T, line string) LogEntry {
	t.Helper()

	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("failed to parse log entry %q: %v", line, err)
	}
	return entry
}

func TestJSONLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines at WarnLevel, got %d", len(lines))
	}

	first := parseEntry(t, lines[0])
	if first.Level != "WARN" || first.Message != "warn message" {
		t.Errorf("unexpected first entry: %+v", first)
	}

	second := parseEntry(t, lines[1])
	if second.Level != "ERROR" {
		t.Errorf("expected ERROR level, got %s", second.Level)
	}
}

func TestJSONLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("operation dispatched",
		Service("database"),
		Method("select"),
		Collection("portfolio"),
		Attempt(2),
	)

	entry := parseEntry(t, strings.TrimSpace(buf.String()))
	if entry.Fields["service"] != "database" {
		t.Errorf("expected service=database, got %v", entry.Fields["service"])
	}
	if entry.Fields["collection"] != "portfolio" {
		t.Errorf("expected collection=portfolio, got %v", entry.Fields["collection"])
	}
	// JSON numbers decode as float64
	if entry.Fields["attempt"] != float64(2) {
		t.Errorf("expected attempt=2, got %v", entry.Fields["attempt"])
	}
}

func TestWithPresetsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	child := logger.With(Component("connmon"))
	child.Info("probe completed", Bool("online", true))

	entry := parseEntry(t, strings.TrimSpace(buf.String()))
	if entry.Fields["component"] != "connmon" {
		t.Errorf("preset field missing: %+v", entry.Fields)
	}
	if entry.Fields["online"] != true {
		t.Errorf("call-site field missing: %+v", entry.Fields)
	}

	// Parent must not gain the child's fields
	buf.Reset()
	logger.Info("plain")
	entry = parseEntry(t, strings.TrimSpace(buf.String()))
	if _, exists := entry.Fields["component"]; exists {
		t.Error("parent logger gained child fields")
	}
}

func TestErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Error("replay failed", Error(errors.New("connection refused")))

	entry := parseEntry(t, strings.TrimSpace(buf.String()))
	if entry.Fields["error"] != "connection refused" {
		t.Errorf("expected error field, got %v", entry.Fields["error"])
	}
}

func TestTimedOperationEnd(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	timer := StartTimer(logger, "queue drained", Component("fallback"))
	timer.End(Count(3))

	entry := parseEntry(t, strings.TrimSpace(buf.String()))
	if entry.Level != "INFO" {
		t.Errorf("expected INFO, got %s", entry.Level)
	}
	if entry.Fields["component"] != "fallback" {
		t.Errorf("start-time field missing: %+v", entry.Fields)
	}
	if entry.Fields["count"] != float64(3) {
		t.Errorf("completion field missing: %+v", entry.Fields)
	}
	if _, ok := entry.Fields["latency"]; !ok {
		t.Errorf("latency field missing: %+v", entry.Fields)
	}
}

func TestTimedOperationEndError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	timer := StartTimer(logger, "service restarted", Service("database"))
	timer.EndError(errors.New("cache unavailable"))

	entry := parseEntry(t, strings.TrimSpace(buf.String()))
	if entry.Level != "ERROR" {
		t.Errorf("expected ERROR, got %s", entry.Level)
	}
	if entry.Fields["error"] != "cache unavailable" {
		t.Errorf("error field missing: %+v", entry.Fields)
	}
	if _, ok := entry.Fields["latency"]; !ok {
		t.Errorf("latency field missing: %+v", entry.Fields)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{"ERROR", ErrorLevel},
		{"bogus", InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()

	// Must not panic, must swallow everything
	logger.Info("ignored")
	logger.Error("ignored", Error(errors.New("ignored")))
	if child := logger.With(Component("x")); child == nil {
		t.Error("With returned nil")
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, ErrorLevel)

	logger.Info("dropped")
	logger.SetLevel(DebugLevel)
	logger.Debug("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if logger.GetLevel() != DebugLevel {
		t.Errorf("GetLevel = %v, want DebugLevel", logger.GetLevel())
	}
}
