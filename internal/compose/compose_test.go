package compose

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nekoruri/safe-docker/internal/argparse"
)

func writeCompose(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "compose.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAnalyzeBindVolume(t *testing.T) {
	dir := t.TempDir()
	path := writeCompose(t, dir, `
services:
  web:
    image: nginx
    volumes:
      - /etc/passwd:/etc/passwd:ro
`)
	a, err := Analyze(path)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(a.HostPaths) != 1 || a.HostPaths[0] != "/etc/passwd" {
		t.Fatalf("HostPaths = %#v, want [/etc/passwd]", a.HostPaths)
	}
}

func TestAnalyzeLongFormBindVolume(t *testing.T) {
	dir := t.TempDir()
	path := writeCompose(t, dir, `
services:
  web:
    image: nginx
    volumes:
      - type: bind
        source: /data
        target: /data
        bind:
          propagation: rshared
`)
	a, err := Analyze(path)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(a.HostPaths) != 1 || a.HostPaths[0] != "/data" {
		t.Fatalf("HostPaths = %#v, want [/data]", a.HostPaths)
	}
	if len(a.Flags) != 1 || a.Flags[0].Kind != argparse.FlagMountPropagation {
		t.Fatalf("Flags = %#v, want one FlagMountPropagation", a.Flags)
	}
}

func TestAnalyzeNamedVolumeNoHostPath(t *testing.T) {
	dir := t.TempDir()
	path := writeCompose(t, dir, `
services:
  db:
    image: postgres
    volumes:
      - dbdata:/var/lib/postgresql/data
volumes:
  dbdata: {}
`)
	a, err := Analyze(path)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(a.HostPaths) != 0 {
		t.Fatalf("HostPaths = %#v, want none for a named volume", a.HostPaths)
	}
}

func TestAnalyzeEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeCompose(t, dir, `
services:
  web:
    image: nginx
    env_file:
      - /secrets/.env
`)
	a, err := Analyze(path)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(a.EnvFilePaths) != 1 || a.EnvFilePaths[0] != "/secrets/.env" {
		t.Fatalf("EnvFilePaths = %#v, want [/secrets/.env]", a.EnvFilePaths)
	}
}

func TestAnalyzePrivilegedAndNetworkHost(t *testing.T) {
	dir := t.TempDir()
	path := writeCompose(t, dir, `
services:
  web:
    image: nginx
    privileged: true
    network_mode: host
`)
	a, err := Analyze(path)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	var sawPrivileged, sawNetworkHost bool
	for _, f := range a.Flags {
		switch f.Kind {
		case argparse.FlagPrivileged:
			sawPrivileged = true
		case argparse.FlagNetworkHost:
			sawNetworkHost = true
		}
	}
	if !sawPrivileged || !sawNetworkHost {
		t.Fatalf("Flags = %#v, want both FlagPrivileged and FlagNetworkHost", a.Flags)
	}
}

func TestAnalyzeSysctlsMapping(t *testing.T) {
	dir := t.TempDir()
	path := writeCompose(t, dir, `
services:
  web:
    image: nginx
    sysctls:
      net.core.somaxconn: 1024
      kernel.shm_rmid_forced: 1
`)
	a, err := Analyze(path)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(a.Flags) != 2 {
		t.Fatalf("Flags = %#v, want two FlagSysctl entries", a.Flags)
	}
}

func TestAnalyzeIncludePaths(t *testing.T) {
	dir := t.TempDir()
	nestedPath := filepath.Join(dir, "nested.yaml")
	if err := os.WriteFile(nestedPath, []byte(`
services:
  db:
    image: postgres
`), 0o644); err != nil {
		t.Fatal(err)
	}
	path := writeCompose(t, dir, `
include:
  - nested.yaml
services:
  web:
    image: nginx
`)
	a, err := Analyze(path)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(a.IncludePaths) != 1 || a.IncludePaths[0] != "nested.yaml" {
		t.Fatalf("IncludePaths = %#v, want [nested.yaml]", a.IncludePaths)
	}
}

func TestAnalyzeIncludeMergesNestedHostPathsAndFlags(t *testing.T) {
	dir := t.TempDir()
	nestedPath := filepath.Join(dir, "nested.yaml")
	if err := os.WriteFile(nestedPath, []byte(`
services:
  db:
    privileged: true
    volumes:
      - /etc/passwd:/etc/passwd
`), 0o644); err != nil {
		t.Fatal(err)
	}
	path := writeCompose(t, dir, `
include:
  - nested.yaml
services:
  web:
    image: nginx
`)
	a, err := Analyze(path)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	foundHostPath := false
	for _, p := range a.HostPaths {
		if p == "/etc/passwd" {
			foundHostPath = true
		}
	}
	if !foundHostPath {
		t.Fatalf("HostPaths = %#v, want the included file's /etc/passwd bind to be merged in", a.HostPaths)
	}
	foundPrivileged := false
	for _, f := range a.Flags {
		if f.Kind == argparse.FlagPrivileged {
			foundPrivileged = true
		}
	}
	if !foundPrivileged {
		t.Fatalf("Flags = %#v, want the included file's privileged:true to be merged in", a.Flags)
	}
}

func TestAnalyzeMissingIncludeErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeCompose(t, dir, `
include:
  - does-not-exist.yaml
services:
  web:
    image: nginx
`)
	if _, err := Analyze(path); err == nil {
		t.Fatalf("Analyze() error = nil, want an error for a missing include target")
	}
}

func TestAnalyzeCyclicIncludeErrors(t *testing.T) {
	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.yaml")
	bPath := filepath.Join(dir, "b.yaml")
	if err := os.WriteFile(aPath, []byte(`
include:
  - b.yaml
services:
  a:
    image: nginx
`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bPath, []byte(`
include:
  - a.yaml
services:
  b:
    image: nginx
`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Analyze(aPath); err == nil {
		t.Fatalf("Analyze() error = nil, want an error for a cyclic include chain")
	}
}

func TestAnalyzeInterpolatesDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("HOST_DIR=/data/app\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := writeCompose(t, dir, `
services:
  web:
    image: nginx
    volumes:
      - ${HOST_DIR}:/app
`)
	a, err := Analyze(path)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(a.HostPaths) != 1 || a.HostPaths[0] != "/data/app" {
		t.Fatalf("HostPaths = %#v, want [/data/app]", a.HostPaths)
	}
}

func TestDiscoverWalksUpward(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "docker-compose.yml"), []byte("services: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	found, ok := Discover(sub)
	if !ok {
		t.Fatalf("Discover() ok = false, want true")
	}
	if found != filepath.Join(root, "docker-compose.yml") {
		t.Fatalf("Discover() = %q, want %q", found, filepath.Join(root, "docker-compose.yml"))
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	_, err := Analyze(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatalf("Analyze() error = nil, want an error for a missing file")
	}
}
