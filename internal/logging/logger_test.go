package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestDebugSuppressedWithoutDebugFlag(t *testing.T) {
	var buf bytes.Buffer
	l := New(false).WithOutput(&buf)

	l.Debug("connection accepted")
	l.Info("proxy listening")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected exactly one emitted line, got %d: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if rec["msg"] != "proxy listening" {
		t.Fatalf("unexpected surviving record: %v", rec)
	}
}

func TestDebugEmittedWithDebugFlag(t *testing.T) {
	var buf bytes.Buffer
	l := New(true).WithOutput(&buf)

	l.Debug("connection accepted")

	if !strings.Contains(buf.String(), "connection accepted") {
		t.Fatalf("expected debug record to be emitted, got %q", buf.String())
	}
}
