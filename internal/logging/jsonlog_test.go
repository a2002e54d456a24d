package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestJSONLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("info")
	defer SetOutput(os.Stdout)

	Info("classified", map[string]any{"label": "FAKE", "tokens": 12})
	Debug("hidden", nil)
	Warn("slow", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var e map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatal(err)
	}
	if e["msg"] != "classified" || e["level"] != "INFO" || e["label"] != "FAKE" {
		t.Fatalf("unexpected entry %v", e)
	}
	if !strings.Contains(lines[1], `"level":"WARN"`) {
		t.Fatalf("expected warn line, got %s", lines[1])
	}
}

func TestParseLevel(t *testing.T) {
	SetLevel("debug")
	defer SetLevel("info")
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	Debug("visible", nil)
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("debug line missing")
	}
	if ParseLevel("nonsense").String() != "INFO" {
		t.Fatalf("unknown level should map to info")
	}
}
