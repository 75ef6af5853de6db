package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nekoruri/safe-docker/internal/audit"
	"github.com/nekoruri/safe-docker/internal/policy"
)

// hookInput is the PreToolUse payload read from stdin.
type hookInput struct {
	SessionID string `json:"session_id"`
	ToolName  string `json:"tool_name"`
	ToolInput struct {
		Command string `json:"command"`
	} `json:"tool_input"`
	Cwd string `json:"cwd"`
}

type hookSpecificOutput struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision"`
	PermissionDecisionReason string `json:"permissionDecisionReason"`
}

type hookOutput struct {
	HookSpecificOutput hookSpecificOutput `json:"hookSpecificOutput"`
}

// runHookMode implements the PreToolUse hook contract: read one JSON object
// from stdin, evaluate it, and write nothing on allow or a single decision
// object on ask/deny.
func runHookMode() int {
	cfg := loadConfigOrDefault()

	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxCommandBytes+1))
	if err != nil {
		return writeHookDecision(cfg, "hook", "", policy.Decision{
			Kind:    policy.Deny,
			Reasons: []string{"stdin could not be read"},
		}, "")
	}
	if len(data) > maxCommandBytes {
		return writeHookDecision(cfg, "hook", "", policy.Decision{
			Kind:    policy.Deny,
			Reasons: []string{"hook payload exceeds the maximum accepted size"},
		}, "")
	}

	var in hookInput
	if err := json.Unmarshal(bytes.TrimSpace(data), &in); err != nil {
		return writeHookDecision(cfg, "hook", "", policy.Decision{
			Kind:    policy.Deny,
			Reasons: []string{"hook payload was not valid JSON"},
		}, "")
	}

	if in.ToolName != "Bash" {
		// Only Bash tool invocations engage the guard; every other tool
		// silently allows.
		return 0
	}

	cwd := in.Cwd
	if cwd == "" {
		cwd, _ = os.Getwd()
	}

	result := evaluateCommand(in.ToolInput.Command, cwd, cfg)
	return writeHookDecision(cfg, "hook", in.SessionID, result.Decision, in.ToolInput.Command, result)
}

// writeHookDecision emits the decision (stdout JSON, or nothing on allow)
// first, then attempts the audit write — spec.md §5: "the decision is
// emitted before the audit write."
func writeHookDecision(cfg policy.Config, mode, sessionID string, d policy.Decision, command string, result ...pipelineResult) int {
	if d.Kind == policy.Allow {
		if cfg.Audit.Enabled {
			emitAuditEvent(cfg, mode, sessionID, command, d, result...)
		}
		return 0
	}

	out := hookOutput{HookSpecificOutput: hookSpecificOutput{
		HookEventName:            "PreToolUse",
		PermissionDecision:       d.Kind.String(),
		PermissionDecisionReason: joinReasons(d.Reasons),
	}}
	enc, err := json.Marshal(out)
	if err != nil {
		fmt.Fprintln(os.Stderr, "safe-docker: failed to encode hook decision")
		if cfg.Audit.Enabled {
			emitAuditEvent(cfg, mode, sessionID, command, d, result...)
		}
		return 1
	}
	fmt.Println(string(enc))

	code := 0
	if d.Kind == policy.Deny {
		code = 1
	}
	if cfg.Audit.Enabled {
		emitAuditEvent(cfg, mode, sessionID, command, d, result...)
	}
	return code
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += "; "
		}
		out += r
	}
	return out
}

func emitAuditEvent(cfg policy.Config, mode, sessionID, command string, d policy.Decision, result ...pipelineResult) {
	event := audit.Event{
		Mode:        mode,
		Decision:    d.Kind.String(),
		Reasons:     d.Reasons,
		Command:     command,
		PID:         os.Getpid(),
		Environment: os.Getenv("ENV"),
		SessionID:   sessionID,
	}
	if host, err := os.Hostname(); err == nil {
		event.Hostname = host
	}
	if len(result) > 0 {
		event.Subcommand = result[0].Subcommand
		event.Image = result[0].Image
		event.HostPaths = result[0].HostPaths
		event.FlagNames = result[0].FlagNames
	}

	for _, p := range []string{cfg.Audit.JSONLPath, cfg.Audit.OTLPPath} {
		if p != "" {
			_ = os.MkdirAll(filepath.Dir(p), 0o700)
		}
	}

	sink := audit.Sink{}
	switch cfg.Audit.Format {
	case policy.AuditFormatOTLP:
		sink.OTLPPath = cfg.Audit.OTLPPath
	case policy.AuditFormatBoth:
		sink.JSONLPath = cfg.Audit.JSONLPath
		sink.OTLPPath = cfg.Audit.OTLPPath
	default:
		sink.JSONLPath = cfg.Audit.JSONLPath
	}
	sink.Append(event, func(msg string) { warnf("%s", msg) })
}
