package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ppiankov/firecheck/internal/model"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(model.LogConfig{Level: "debug", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("claim judged", "verdict", "supported", "rounds", 2)

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "claim judged" || entry["verdict"] != "supported" {
		t.Errorf("Unexpected entry: %v", entry)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(model.LogConfig{Level: "warn", Format: "logfmt"}, &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown", "url", "https://example.com")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Info should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("Expected warn entry, got %q", out)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(model.LogConfig{Level: "loud"}, nil); err == nil {
		t.Error("Expected error for unknown level")
	}
	if _, err := New(model.LogConfig{Format: "xml"}, nil); err == nil {
		t.Error("Expected error for unknown format")
	}
}
