package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSetupJSONWithRequestID(t *testing.T) {
	previous := slog.Default()
	defer slog.SetDefault(previous)

	var buf bytes.Buffer
	Setup("info", "json", &buf)

	ctx := WithRequestID(context.Background(), "req-123")
	FromContext(ctx).Info("classified", "label", "spam")
	slog.Debug("suppressed below info")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Setup() logged %d lines, want 1: %q", len(lines), buf.String())
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if record["request_id"] != "req-123" {
		t.Errorf("request_id = %v, want req-123", record["request_id"])
	}
	if record["label"] != "spam" {
		t.Errorf("label = %v, want spam", record["label"])
	}
}

func TestSetupTextDebug(t *testing.T) {
	previous := slog.Default()
	defer slog.SetDefault(previous)

	var buf bytes.Buffer
	Setup("debug", "text", &buf)
	slog.Debug("bundle loaded", "bundleID", "toy")

	if !strings.Contains(buf.String(), "bundleID=toy") {
		t.Errorf("text log = %q, want bundleID=toy", buf.String())
	}
}

func TestRequestIDMissing(t *testing.T) {
	if _, ok := RequestID(context.Background()); ok {
		t.Error("RequestID() found an id in an empty context")
	}
}
