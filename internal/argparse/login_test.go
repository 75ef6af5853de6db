package argparse

import "testing"

func TestParseLoginBasic(t *testing.T) {
	pc := parseLogin([]string{"-u", "alice", "--password-stdin", "registry.example.com"})
	if pc.Subcommand != SubLogin {
		t.Fatalf("Subcommand = %v, want SubLogin", pc.Subcommand)
	}
	if len(pc.HostPaths) != 0 || len(pc.Flags) != 0 {
		t.Fatalf("pc = %#v, want no host paths or dangerous flags", pc)
	}
}

func TestParseLoginMissingUsernameValue(t *testing.T) {
	pc := parseLogin([]string{"--username"})
	if !pc.Incomplete {
		t.Fatalf("Incomplete = false, want true when --username has no value")
	}
}

func TestParseLoginInlineValue(t *testing.T) {
	pc := parseLogin([]string{"--username=alice", "registry.example.com"})
	if pc.Incomplete {
		t.Fatalf("Incomplete = true, want false for a well-formed inline value")
	}
}
