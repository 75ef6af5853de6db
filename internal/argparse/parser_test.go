package argparse

import (
	"reflect"
	"testing"
)

func TestParseRunBasic(t *testing.T) {
	pc := Parse([]string{"run", "-d", "--name", "web", "nginx:1.25"})
	if pc.Subcommand != SubRun {
		t.Fatalf("Subcommand = %v, want SubRun", pc.Subcommand)
	}
	if pc.Image != "nginx:1.25" {
		t.Fatalf("Image = %q, want nginx:1.25", pc.Image)
	}
	if len(pc.Flags) != 0 {
		t.Fatalf("Flags = %#v, want none", pc.Flags)
	}
}

func TestParseRawFlagsTracksEveryFlagToken(t *testing.T) {
	pc := Parse([]string{"run", "-d", "--name", "web", "--privileged", "nginx:1.25"})
	want := []string{"-d", "--name", "--privileged"}
	if !reflect.DeepEqual(pc.RawFlags, want) {
		t.Fatalf("RawFlags = %#v, want %#v", pc.RawFlags, want)
	}
}

func TestParsePrivileged(t *testing.T) {
	pc := Parse([]string{"run", "--privileged", "alpine"})
	if len(pc.Flags) != 1 || pc.Flags[0].Kind != FlagPrivileged {
		t.Fatalf("Flags = %#v, want one FlagPrivileged", pc.Flags)
	}
	if pc.Image != "alpine" {
		t.Fatalf("Image = %q, want alpine", pc.Image)
	}
}

func TestParseCapAdd(t *testing.T) {
	pc := Parse([]string{"run", "--cap-add=SYS_ADMIN", "alpine"})
	if len(pc.Flags) != 1 || pc.Flags[0].Kind != FlagCapAdd || pc.Flags[0].Name != "SYS_ADMIN" {
		t.Fatalf("Flags = %#v, want one FlagCapAdd(SYS_ADMIN)", pc.Flags)
	}
}

func TestParseNetworkHost(t *testing.T) {
	pc := Parse([]string{"run", "--network", "host", "alpine"})
	if len(pc.Flags) != 1 || pc.Flags[0].Kind != FlagNetworkHost {
		t.Fatalf("Flags = %#v, want one FlagNetworkHost", pc.Flags)
	}
}

func TestParseNetworkContainer(t *testing.T) {
	pc := Parse([]string{"run", "--network=container:db", "alpine"})
	if len(pc.Flags) != 1 || pc.Flags[0].Kind != FlagNetworkContainer || pc.Flags[0].Name != "db" {
		t.Fatalf("Flags = %#v, want FlagNetworkContainer(db)", pc.Flags)
	}
}

func TestParseHostPathsFromVolumeAndEnvFile(t *testing.T) {
	pc := Parse([]string{"run", "-v", "/etc/passwd:/etc/passwd:ro", "--env-file", "/secrets/.env", "alpine"})
	want := []string{"/etc/passwd", "/secrets/.env"}
	if !reflect.DeepEqual(pc.HostPaths, want) {
		t.Fatalf("HostPaths = %#v, want %#v", pc.HostPaths, want)
	}
}

func TestParseValueFlagConsumesDashPrefixedValue(t *testing.T) {
	// spec.md §8 parser completeness: a value-flag's value is consumed even
	// if it looks like another flag.
	pc := Parse([]string{"run", "--name", "-weird-name", "alpine"})
	if pc.Image != "alpine" {
		t.Fatalf("Image = %q, want alpine (value-flag must not misroute its value)", pc.Image)
	}
}

func TestParseMissingValueMarksIncomplete(t *testing.T) {
	pc := Parse([]string{"run", "--name"})
	if !pc.Incomplete {
		t.Fatalf("Incomplete = false, want true when --name has no value")
	}
}

func TestParseUnknownSubcommand(t *testing.T) {
	pc := Parse([]string{"info"})
	if pc.Subcommand != SubOther || pc.SubcommandOther != "info" {
		t.Fatalf("pc = %#v, want SubOther(info)", pc)
	}
}

func TestParseComposeUp(t *testing.T) {
	pc := Parse([]string{"compose", "-f", "docker-compose.yml", "up", "-d"})
	if pc.Subcommand != SubComposeUp {
		t.Fatalf("Subcommand = %v, want SubComposeUp", pc.Subcommand)
	}
	if pc.ComposeFile != "docker-compose.yml" {
		t.Fatalf("ComposeFile = %q, want docker-compose.yml", pc.ComposeFile)
	}
}

func TestParseComposeExec(t *testing.T) {
	pc := Parse([]string{"compose", "exec", "web", "sh"})
	if pc.Subcommand != SubComposeExec {
		t.Fatalf("Subcommand = %v, want SubComposeExec", pc.Subcommand)
	}
}

func TestParseBuildxBuild(t *testing.T) {
	pc := Parse([]string{"buildx", "build", "-t", "img:latest", "."})
	if pc.Subcommand != SubBuildxBuild {
		t.Fatalf("Subcommand = %v, want SubBuildxBuild", pc.Subcommand)
	}
	if len(pc.HostPaths) != 1 || pc.HostPaths[0] != "." {
		t.Fatalf("HostPaths = %#v, want [.]", pc.HostPaths)
	}
}

func TestParseBuildxBuildURLContextNotHostPath(t *testing.T) {
	pc := Parse([]string{"buildx", "build", "https://github.com/example/repo.git"})
	if len(pc.HostPaths) != 0 {
		t.Fatalf("HostPaths = %#v, want none for URL build context", pc.HostPaths)
	}
}
