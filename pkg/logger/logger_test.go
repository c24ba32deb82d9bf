package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var out map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &out); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	return out
}

func TestNewWithWriter_ServiceField(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("catalog", "info", &buf)
	l.Info("hello")

	out := lastLine(t, &buf)
	if got := out["service"]; got != "catalog" {
		t.Errorf("service = %v, want %q", got, "catalog")
	}
	if got := out["msg"]; got != "hello" {
		t.Errorf("msg = %v, want %q", got, "hello")
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("catalog", "warn", &buf)

	l.Info("should be dropped")
	if buf.Len() != 0 {
		t.Errorf("info line logged at warn level: %s", buf.String())
	}

	l.Warn("should appear")
	if buf.Len() == 0 {
		t.Error("warn line not logged at warn level")
	}
}

func TestNewWithWriter_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("catalog", "noisy", &buf)

	l.Debug("dropped")
	if buf.Len() != 0 {
		t.Error("debug line logged at default info level")
	}

	l.Info("kept")
	if buf.Len() == 0 {
		t.Error("info line not logged at default info level")
	}
}

func TestCorrelationID_RoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "corr-42")
	if got := CorrelationIDFromContext(ctx); got != "corr-42" {
		t.Errorf("correlation id = %q, want %q", got, "corr-42")
	}
	if got := CorrelationIDFromContext(context.Background()); got != "" {
		t.Errorf("correlation id on empty context = %q, want empty", got)
	}
}

func TestWithContext_AddsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("catalog", "info", &buf)

	ctx := WithCorrelationID(context.Background(), "corr-789")
	WithContext(ctx, l).Info("enriched")

	out := lastLine(t, &buf)
	if got := out["correlation_id"]; got != "corr-789" {
		t.Errorf("correlation_id = %v, want %q", got, "corr-789")
	}
}

func TestWithContext_NoFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("catalog", "info", &buf)

	WithContext(context.Background(), l).Info("plain")

	out := lastLine(t, &buf)
	if _, ok := out["correlation_id"]; ok {
		t.Error("correlation_id should not be present when not in context")
	}
}

func TestFromContext_Fallback(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("catalog", "info", &buf)

	ctx := NewContext(context.Background(), l)
	FromContext(ctx).Info("stored logger")
	if buf.Len() == 0 {
		t.Error("stored logger was not returned from context")
	}

	if FromContext(context.Background()) == nil {
		t.Error("FromContext must fall back to a usable logger")
	}
}
