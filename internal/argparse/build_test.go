package argparse

import "testing"

func TestParseBuildContextIsHostPath(t *testing.T) {
	pc := parseBuild(SubBuild, []string{"-t", "myimg:latest", "/home/user/project"})
	if len(pc.HostPaths) != 1 || pc.HostPaths[0] != "/home/user/project" {
		t.Fatalf("HostPaths = %#v, want [/home/user/project]", pc.HostPaths)
	}
}

func TestParseBuildDashContextNotHostPath(t *testing.T) {
	pc := parseBuild(SubBuild, []string{"-t", "myimg:latest", "-"})
	if len(pc.HostPaths) != 0 {
		t.Fatalf("HostPaths = %#v, want none for stdin build context", pc.HostPaths)
	}
}

func TestParseBuildSecretArgExtractsSource(t *testing.T) {
	pc := parseBuild(SubBuild, []string{"--secret", "id=npm,src=/home/user/.npmrc", "."})
	found := false
	for _, p := range pc.HostPaths {
		if p == "/home/user/.npmrc" {
			found = true
		}
	}
	if !found {
		t.Fatalf("HostPaths = %#v, want to contain /home/user/.npmrc", pc.HostPaths)
	}
}

func TestParseBuildDockerfileFlag(t *testing.T) {
	pc := parseBuild(SubBuild, []string{"-f", "docker/Dockerfile.prod", "."})
	found := false
	for _, p := range pc.HostPaths {
		if p == "docker/Dockerfile.prod" {
			found = true
		}
	}
	if !found {
		t.Fatalf("HostPaths = %#v, want to contain docker/Dockerfile.prod", pc.HostPaths)
	}
}

func TestIsURLBuildContext(t *testing.T) {
	cases := map[string]bool{
		"https://github.com/example/repo.git": true,
		"git@github.com:example/repo.git":     true,
		"github.com/example/repo":             true,
		"/home/user/project":                  false,
		".":                                    false,
	}
	for input, want := range cases {
		if got := isURLBuildContext(input); got != want {
			t.Errorf("isURLBuildContext(%q) = %v, want %v", input, got, want)
		}
	}
}
