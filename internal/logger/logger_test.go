package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "WARN", Output: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l.Info("cache hit", "key", "janedoe")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	l.Warn("summarize failed", "key", "janedoe")
	if !strings.Contains(buf.String(), "summarize failed") || !strings.Contains(buf.String(), "key=janedoe") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{JSON: true, Output: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Info("saved", "destination", "notion")

	var got map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &got); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if got["msg"] != "saved" || got["destination"] != "notion" {
		t.Fatalf("unexpected fields: %#v", got)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(Config{Level: "chatty"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatalf("expected a logger")
	}
}
