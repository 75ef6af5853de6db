package argparse

import "testing"

func TestHandleVolumeSpecNamedVolume(t *testing.T) {
	var pc ParsedCommand
	if !handleVolumeSpec(&pc, "data:/var/lib/data") {
		t.Fatalf("handleVolumeSpec() = false, want true")
	}
	if len(pc.HostPaths) != 0 {
		t.Fatalf("HostPaths = %#v, want none for named volume", pc.HostPaths)
	}
}

func TestHandleVolumeSpecHostPath(t *testing.T) {
	var pc ParsedCommand
	if !handleVolumeSpec(&pc, "/home/user:/work:ro") {
		t.Fatalf("handleVolumeSpec() = false, want true")
	}
	if len(pc.HostPaths) != 1 || pc.HostPaths[0] != "/home/user" {
		t.Fatalf("HostPaths = %#v, want [/home/user]", pc.HostPaths)
	}
}

func TestHandleVolumeSpecSharedPropagation(t *testing.T) {
	var pc ParsedCommand
	handleVolumeSpec(&pc, "/data:/data:rshared")
	if len(pc.Flags) != 1 || pc.Flags[0].Kind != FlagMountPropagation || pc.Flags[0].Value != "rshared" {
		t.Fatalf("Flags = %#v, want one FlagMountPropagation(rshared)", pc.Flags)
	}
}

func TestHandleVolumeSpecMalformed(t *testing.T) {
	var pc ParsedCommand
	if handleVolumeSpec(&pc, "a:b:c:d") {
		t.Fatalf("handleVolumeSpec() = true, want false for too many fields")
	}
}

func TestHandleMountSpecBind(t *testing.T) {
	var pc ParsedCommand
	ok := handleMountSpec(&pc, "type=bind,source=/etc/passwd,target=/etc/passwd,readonly")
	if !ok {
		t.Fatalf("handleMountSpec() = false, want true")
	}
	if len(pc.HostPaths) != 1 || pc.HostPaths[0] != "/etc/passwd" {
		t.Fatalf("HostPaths = %#v, want [/etc/passwd]", pc.HostPaths)
	}
}

func TestHandleMountSpecBindMissingSource(t *testing.T) {
	var pc ParsedCommand
	if handleMountSpec(&pc, "type=bind,target=/data") {
		t.Fatalf("handleMountSpec() = true, want false when source is missing")
	}
}

func TestHandleMountSpecVolumeNoHostPath(t *testing.T) {
	var pc ParsedCommand
	ok := handleMountSpec(&pc, "type=volume,source=myvol,target=/data")
	if !ok {
		t.Fatalf("handleMountSpec() = false, want true")
	}
	if len(pc.HostPaths) != 0 {
		t.Fatalf("HostPaths = %#v, want none for named volume mount", pc.HostPaths)
	}
}

func TestHandleMountSpecBindPropagation(t *testing.T) {
	var pc ParsedCommand
	handleMountSpec(&pc, "type=bind,source=/data,target=/data,bind-propagation=shared")
	if len(pc.Flags) != 1 || pc.Flags[0].Kind != FlagMountPropagation || pc.Flags[0].Value != "shared" {
		t.Fatalf("Flags = %#v, want one FlagMountPropagation(shared)", pc.Flags)
	}
}

func TestLooksLikeHostPath(t *testing.T) {
	cases := map[string]bool{
		"/abs/path":    true,
		"./rel":        true,
		"~/dotfiles":   true,
		"myvolume":     false,
		"C:\\data":     true,
		"$HOME/data":   true,
	}
	for input, want := range cases {
		if got := looksLikeHostPath(input); got != want {
			t.Errorf("looksLikeHostPath(%q) = %v, want %v", input, got, want)
		}
	}
}
