package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nekoruri/safe-docker/internal/policy"
)

// These exercise evaluateArgv, the argv-based entry point runWrapperMode
// calls instead of reconstructing a command string and re-tokenizing it
// through shellseg.

func TestEvaluateArgvDeniesPrivileged(t *testing.T) {
	home := withHome(t)
	r := evaluateArgv([]string{"run", "--privileged", "ubuntu"}, home, home, policy.Default())
	if r.Decision.Kind != policy.Deny {
		t.Fatalf("Kind = %v, want Deny", r.Decision.Kind)
	}
}

func TestEvaluateArgvAllowsBindInsideHome(t *testing.T) {
	home := withHome(t)
	r := evaluateArgv([]string{"run", "-v", filepath.Join(home, "projects") + ":/app", "ubuntu"}, home, home, policy.Default())
	if r.Decision.Kind != policy.Allow {
		t.Fatalf("Kind = %v, want Allow: %v", r.Decision.Kind, r.Decision.Reasons)
	}
}

// TestEvaluateArgvDetectsPrivilegedDespiteUnsafeLabelValue is the regression
// case for the wrapper-mode bypass: a `-l` value containing an unquoted `;`
// must not hide a later `--privileged` flag from detection. Reconstructing
// argv into "docker run -l note=a;b --privileged ubuntu" and handing it to
// shellseg.Split treats the `;` as a command separator and drops the
// `--privileged` segment from evaluation entirely, yielding a false Allow.
// evaluateArgv parses the tokenized argv directly, so no such segment
// boundary exists.
func TestEvaluateArgvDetectsPrivilegedDespiteUnsafeLabelValue(t *testing.T) {
	home := withHome(t)
	argv := []string{"run", "-l", "note=a;b", "--privileged", "ubuntu"}
	r := evaluateArgv(argv, home, home, policy.Default())
	if r.Decision.Kind != policy.Deny {
		t.Fatalf("Kind = %v, want Deny for --privileged hidden behind an unquoted ';' in a label value", r.Decision.Kind)
	}
}

func TestEvaluateArgvEmptyAllows(t *testing.T) {
	home := withHome(t)
	r := evaluateArgv(nil, home, home, policy.Default())
	if r.Decision.Kind != policy.Allow {
		t.Fatalf("Kind = %v, want Allow for an empty argv", r.Decision.Kind)
	}
}

func TestEvaluateArgvComposeUpDeniesPrivilegedService(t *testing.T) {
	home := withHome(t)
	content := "services:\n  web:\n    privileged: true\n    volumes:\n      - \"./data:/data\"\n"
	if err := os.WriteFile(filepath.Join(home, "compose.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	r := evaluateArgv([]string{"compose", "up"}, home, home, policy.Default())
	if r.Decision.Kind != policy.Deny {
		t.Fatalf("Kind = %v, want Deny for a privileged compose service: %v", r.Decision.Kind, r.Decision.Reasons)
	}
}
