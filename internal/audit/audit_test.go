package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAppendJSONLWritesOneLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	sink := Sink{JSONLPath: path}

	sink.Append(Event{
		Timestamp:  time.Unix(0, 0),
		Mode:       "hook",
		Decision:   "deny",
		Reasons:    []string{"--privileged grants full host capability access"},
		Command:    "docker run --privileged alpine",
		Subcommand: "run",
		Image:      "alpine",
		PID:        1234,
	}, nil)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1: %q", len(lines), string(data))
	}

	var decoded Event
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Decision != "deny" || decoded.Image != "alpine" {
		t.Fatalf("decoded = %#v, want decision=deny image=alpine", decoded)
	}
}

func TestAppendRedactsSensitiveFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	sink := Sink{JSONLPath: path}

	sink.Append(Event{
		Decision: "ask",
		Command:  "docker login",
		Fields:   map[string]string{"api_token": "sekret", "region": "us-east-1"},
	}, nil)

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "sekret") {
		t.Fatalf("audit line leaked a sensitive field value: %s", data)
	}
	if !strings.Contains(string(data), "us-east-1") {
		t.Fatalf("audit line dropped a non-sensitive field: %s", data)
	}
}

func TestAppendBothFormats(t *testing.T) {
	dir := t.TempDir()
	sink := Sink{
		JSONLPath: filepath.Join(dir, "audit.jsonl"),
		OTLPPath:  filepath.Join(dir, "audit.otlp.jsonl"),
	}
	sink.Append(Event{Decision: "allow", Command: "docker ps"}, nil)

	if _, err := os.Stat(sink.JSONLPath); err != nil {
		t.Fatalf("jsonl file missing: %v", err)
	}
	if _, err := os.Stat(sink.OTLPPath); err != nil {
		t.Fatalf("otlp file missing: %v", err)
	}
	data, _ := os.ReadFile(sink.OTLPPath)
	if !strings.Contains(string(data), "scopeLogs") {
		t.Fatalf("otlp line missing scopeLogs envelope: %s", data)
	}
}

func TestAppendToUnwritableDirDoesNotPanicAndWarns(t *testing.T) {
	sink := Sink{JSONLPath: filepath.Join(t.TempDir(), "missing-parent", "audit.jsonl")}

	var warned bool
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Append() panicked: %v", r)
		}
	}()
	sink.Append(Event{Decision: "deny", Command: "docker run --privileged alpine"}, func(string) { warned = true })
	if !warned {
		t.Fatalf("warn callback not invoked for an unwritable path")
	}
}

func TestAppendMultipleLinesAccumulate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	sink := Sink{JSONLPath: path}
	sink.Append(Event{Decision: "allow", Command: "docker ps"}, nil)
	sink.Append(Event{Decision: "deny", Command: "docker run --privileged alpine"}, nil)

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
}
