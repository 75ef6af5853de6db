package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCmdSetupCreatesSymlink(t *testing.T) {
	target := t.TempDir()
	self, err := os.Executable()
	if err != nil {
		t.Skipf("os.Executable() unavailable in this environment: %v", err)
	}
	_ = self

	code := cmdSetup([]string{"--target", target})
	if code != 0 {
		t.Fatalf("cmdSetup() code = %d, want 0", code)
	}
	link := filepath.Join(target, "docker")
	info, err := os.Lstat(link)
	if err != nil {
		t.Fatalf("Lstat(%s) error = %v", link, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatalf("%s is not a symlink", link)
	}
}

func TestCmdSetupRefusesToOverwriteWithoutForce(t *testing.T) {
	target := t.TempDir()
	if code := cmdSetup([]string{"--target", target}); code != 0 {
		t.Fatalf("first cmdSetup() code = %d, want 0", code)
	}
	if code := cmdSetup([]string{"--target", target}); code == 0 {
		t.Fatalf("second cmdSetup() code = 0, want non-zero without --force")
	}
}

func TestCmdSetupForceReplacesExisting(t *testing.T) {
	target := t.TempDir()
	if code := cmdSetup([]string{"--target", target}); code != 0 {
		t.Fatalf("first cmdSetup() code = %d, want 0", code)
	}
	if code := cmdSetup([]string{"--target", target, "--force"}); code != 0 {
		t.Fatalf("forced cmdSetup() code = %d, want 0", code)
	}
}
