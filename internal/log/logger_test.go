package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfigFor(t *testing.T) {
	if !ConfigFor("production", "info").JSON {
		t.Error("production should log JSON")
	}
	if ConfigFor("development", "info").JSON {
		t.Error("development should log text")
	}
	if got := ConfigFor("test", "debug").Level; got != slog.LevelDebug {
		t.Errorf("level = %v, want debug", got)
	}
}

func newBufferLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	cfg := DefaultConfig()
	cfg.JSON = true
	cfg.Output = buf
	cfg.Level = level
	return New(cfg)
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, slog.LevelInfo).WithComponent(ComponentStorage)

	logger.Info("opened")
	logger.Info("explicit", FieldComponent, ComponentHTTP)

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0][FieldComponent] != ComponentStorage {
		t.Errorf("component = %v, want %s", lines[0][FieldComponent], ComponentStorage)
	}
	if lines[1][FieldComponent] != ComponentHTTP {
		t.Errorf("explicit component not kept: %v", lines[1][FieldComponent])
	}
	if strings.Count(buf.String(), `"component"`) != 2 {
		t.Errorf("component field duplicated: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, slog.LevelInfo)

	if got := FromContext(NewContext(context.Background(), logger)); got != logger {
		t.Error("FromContext should return the stored logger")
	}
	if got := FromContext(context.Background()); got == nil || got.Component() != "unknown" {
		t.Error("FromContext should fall back to the default logger")
	}
}

func TestStructuredLogger_LogHTTPEnd(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{500, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			sl := NewStructuredLogger(newBufferLogger(&buf, slog.LevelDebug))
			r := httptest.NewRequest("GET", "/api/transactions?limit=5", nil)

			sl.LogHTTPEnd(context.Background(), r, tt.status, 12, "req_1", "127.0.0.1")

			lines := decodeLines(t, &buf)
			if len(lines) != 1 {
				t.Fatalf("expected one line, got %d", len(lines))
			}
			line := lines[0]
			if line["level"] != tt.level {
				t.Errorf("level = %v, want %s", line["level"], tt.level)
			}
			if line[FieldStatusCode] != float64(tt.status) || line[FieldRequestID] != "req_1" || line[FieldQuery] != "limit=5" {
				t.Errorf("unexpected fields: %v", line)
			}
		})
	}
}

func TestStructuredLogger_LogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, slog.LevelInfo))

	sl.LogError(context.Background(), "Failed to save", errors.New("disk full"), ComponentStorage, OpCreate, nil)

	line := decodeLines(t, &buf)[0]
	if line[FieldError] != "disk full" || line[FieldOperation] != OpCreate || line[FieldComponent] != ComponentStorage {
		t.Errorf("unexpected fields: %v", line)
	}
}

func TestStructuredLogger_LogTransactionChanged(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, slog.LevelInfo))

	sl.LogTransactionChanged(context.Background(), OpDelete, "abc", "expense", 4000, "Food")

	line := decodeLines(t, &buf)[0]
	if line["msg"] != "Transaction deleted" || line[FieldTransactionID] != "abc" || line[FieldAmountCents] != float64(4000) {
		t.Errorf("unexpected fields: %v", line)
	}
}
