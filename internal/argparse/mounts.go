package argparse

import (
	"strings"

	"github.com/docker/docker/api/types/mount"
)

// handleVolumeSpec parses a colon-delimited `-v`/`--volume` spec
// (SRC:DEST[:OPTIONS]) and records the host path/mount-propagation facts it
// implies. Returns false when the spec is malformed.
func handleVolumeSpec(pc *ParsedCommand, spec string) bool {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return false
	}
	parts := strings.Split(spec, ":")
	switch len(parts) {
	case 1:
		// anonymous volume into the container path; no host path involved.
		return true
	case 2, 3:
		source := parts[0]
		if looksLikeHostPath(source) {
			pc.addHostPath(source)
		}
		if len(parts) == 3 {
			applyVolumeOptions(pc, parts[2])
		}
		return true
	default:
		return false
	}
}

// looksLikeHostPath distinguishes a host filesystem path from a named
// docker volume reference in the SRC position of a volume spec.
func looksLikeHostPath(source string) bool {
	if source == "" {
		return false
	}
	if strings.HasPrefix(source, "/") || strings.HasPrefix(source, ".") || strings.HasPrefix(source, "~") {
		return true
	}
	if strings.ContainsAny(source, "\\") {
		return true
	}
	if len(source) >= 2 && source[1] == ':' && isDriveLetter(source[0]) {
		return true // Windows C:\... form
	}
	return strings.Contains(source, "$")
}

func isDriveLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func applyVolumeOptions(pc *ParsedCommand, options string) {
	for _, opt := range strings.Split(options, ",") {
		opt = strings.TrimSpace(strings.ToLower(opt))
		if mount.Propagation(opt) == mount.PropagationShared || mount.Propagation(opt) == mount.PropagationRShared {
			pc.addFlag(DangerousFlag{Kind: FlagMountPropagation, Value: opt})
		}
	}
}

// handleMountSpec parses a comma-delimited `--mount
// type=bind,source=...,target=...[,bind-propagation=...]` spec. Returns
// false when a bind mount lacks its source or target, or when the type is
// not bind, volume or tmpfs; volume and tmpfs mounts are not checked for
// required keys.
func handleMountSpec(pc *ParsedCommand, spec string) bool {
	fields := map[string]string{}
	for _, kv := range strings.Split(spec, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		k, v, ok := cutOnce(kv, "=")
		if !ok {
			// boolean mount option (e.g. "readonly") carries no value.
			fields[strings.ToLower(k)] = ""
			continue
		}
		fields[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	mtype := strings.ToLower(fields["type"])
	if mtype == "" {
		mtype = "volume"
	}
	switch mtype {
	case "bind":
		source, ok := fields["source"]
		if !ok {
			source, ok = fields["src"]
		}
		if !ok || strings.TrimSpace(source) == "" {
			return false
		}
		if _, hasTarget := fields["target"]; !hasTarget {
			if _, hasDst := fields["destination"]; !hasDst {
				if _, hasDst2 := fields["dst"]; !hasDst2 {
					return false
				}
			}
		}
		pc.addHostPath(source)
	case "volume", "tmpfs":
		// named volumes and tmpfs have no host-visible source path.
	default:
		return false
	}
	if prop, ok := fields["bind-propagation"]; ok {
		prop = strings.ToLower(strings.TrimSpace(prop))
		if mount.Propagation(prop) == mount.PropagationShared || mount.Propagation(prop) == mount.PropagationRShared {
			pc.addFlag(DangerousFlag{Kind: FlagMountPropagation, Value: prop})
		}
	}
	return true
}

func cutOnce(s, sep string) (before, after string, found bool) {
	idx := strings.Index(s, sep)
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+1:], true
}
