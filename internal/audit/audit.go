// Package audit assembles and appends one record per invocation describing
// the decision the core reached. Audit write failure must never alter the
// decision already committed, never panic, and at most emit a diagnostic to
// stderr — see Append.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// Event is one audit record.
type Event struct {
	Timestamp   time.Time         `json:"timestamp"`
	Mode        string            `json:"mode"` // "hook" or "wrapper"
	Decision    string            `json:"decision"`
	Reasons     []string          `json:"reasons,omitempty"`
	Command     string            `json:"command"`
	Subcommand  string            `json:"subcommand,omitempty"`
	Image       string            `json:"image,omitempty"`
	HostPaths   []string          `json:"host_paths,omitempty"`
	FlagNames   []string          `json:"flag_names,omitempty"`
	PID         int               `json:"pid"`
	Hostname    string            `json:"hostname,omitempty"`
	Environment string            `json:"environment,omitempty"`
	SessionID   string            `json:"session_id,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// sensitiveFieldMarkers mirror the teacher's field-redaction discipline:
// any Fields key containing one of these substrings is redacted before the
// event is serialized, so an accidentally-captured secret never reaches the
// audit log verbatim.
var sensitiveFieldMarkers = []string{"secret", "token", "password", "credential", "private_key", "api_key"}

func isSensitiveFieldKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, marker := range sensitiveFieldMarkers {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}

func redactFields(fields map[string]string) map[string]string {
	if len(fields) == 0 {
		return fields
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if isSensitiveFieldKey(k) {
			out[k] = "<redacted>"
			continue
		}
		out[k] = v
	}
	return out
}

// Format selects the line encoding Append writes.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatOTLP  Format = "otlp"
)

// Sink appends audit events to one or more line-delimited files.
type Sink struct {
	JSONLPath string
	OTLPPath  string
}

// Append writes event to every configured path. It never returns an error
// to a caller that would let a write failure change the already-committed
// decision; failures are reported via the warn callback (pass nil to
// silence them entirely, matching "at most a diagnostic").
func (s Sink) Append(event Event, warn func(string)) {
	event.Fields = redactFields(event.Fields)
	if s.JSONLPath != "" {
		if err := appendLine(s.JSONLPath, jsonlLine(event)); err != nil && warn != nil {
			warn(fmt.Sprintf("audit: jsonl append failed: %v", err))
		}
	}
	if s.OTLPPath != "" {
		if err := appendLine(s.OTLPPath, otlpLine(event)); err != nil && warn != nil {
			warn(fmt.Sprintf("audit: otlp append failed: %v", err))
		}
	}
}

func jsonlLine(event Event) ([]byte, error) {
	return json.Marshal(event)
}

// otlpEnvelope nests the event under a resource/scope/log-record shape
// compatible with a line-based OTLP log collector.
type otlpEnvelope struct {
	Resource struct {
		Attributes map[string]string `json:"attributes"`
	} `json:"resource"`
	ScopeLogs []otlpScopeLog `json:"scopeLogs"`
}

type otlpScopeLog struct {
	LogRecords []otlpLogRecord `json:"logRecords"`
}

type otlpLogRecord struct {
	TimeUnixNano string            `json:"timeUnixNano"`
	SeverityText string            `json:"severityText"`
	Body         string            `json:"body"`
	Attributes   map[string]string `json:"attributes"`
}

func otlpLine(event Event) ([]byte, error) {
	var env otlpEnvelope
	env.Resource.Attributes = map[string]string{
		"service.name": "safe-docker",
		"host.name":    event.Hostname,
		"deployment.environment": event.Environment,
	}
	attrs := map[string]string{
		"decision":   event.Decision,
		"mode":       event.Mode,
		"subcommand": event.Subcommand,
		"image":      event.Image,
		"session_id": event.SessionID,
		"reasons":    strings.Join(event.Reasons, "; "),
		"host_paths": strings.Join(event.HostPaths, ","),
		"flag_names": strings.Join(event.FlagNames, ","),
		"pid":        fmt.Sprintf("%d", event.PID),
	}
	for k, v := range event.Fields {
		attrs["field."+k] = v
	}
	record := otlpLogRecord{
		TimeUnixNano: fmt.Sprintf("%d", event.Timestamp.UnixNano()),
		SeverityText: severityFor(event.Decision),
		Body:         event.Command,
		Attributes:   attrs,
	}
	env.ScopeLogs = []otlpScopeLog{{LogRecords: []otlpLogRecord{record}}}
	return json.Marshal(env)
}

func severityFor(decision string) string {
	switch decision {
	case "deny":
		return "ERROR"
	case "ask":
		return "WARN"
	default:
		return "INFO"
	}
}

// appendLine performs an exclusive create-or-append open and writes one
// newline-terminated line, relying on the flock advisory lock to serialize
// concurrent invocations sharing the same audit file.
func appendLine(path string, encode func() ([]byte, error)) error {
	line, err := encode()
	if err != nil {
		return err
	}

	lock := flock.New(path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if locked, err := lock.TryLockContext(ctx, 20*time.Millisecond); err == nil && locked {
		defer lock.Unlock()
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(line, '\n'))
	return err
}
