package argparse

import (
	"net"
	"regexp"
	"strings"
)

// dangerousSecurityOpts are the --security-opt values that disable a host
// protection outright (spec.md §4.2).
var dangerousSecurityOpts = map[string]bool{
	"apparmor=unconfined":     true,
	"seccomp=unconfined":      true,
	"label=disable":           true,
	"label:disable":           true,
	"no-new-privileges=false": true,
	"systempaths=unconfined":  true,
}

func handleSecurityOpt(pc *ParsedCommand, value string) {
	trimmed := strings.TrimSpace(value)
	lower := strings.ToLower(trimmed)
	if dangerousSecurityOpts[lower] {
		pc.addFlag(DangerousFlag{Kind: FlagSecurityOpt, Name: trimmed})
		return
	}
	if strings.HasPrefix(lower, "seccomp=") {
		path := trimmed[len("seccomp="):]
		if path != "" && !strings.EqualFold(path, "unconfined") {
			pc.addHostPath(path)
		}
	}
}

// handleNamespaceFlag applies the shared host|container:NAME grammar used by
// --network/--pid/--ipc.
func handleNamespaceFlag(pc *ParsedCommand, namespace, value string) {
	value = strings.TrimSpace(value)
	switch {
	case strings.EqualFold(value, "host"):
		switch namespace {
		case "network":
			pc.addFlag(DangerousFlag{Kind: FlagNetworkHost})
		case "pid":
			pc.addFlag(DangerousFlag{Kind: FlagPidHost})
		case "ipc":
			pc.addFlag(DangerousFlag{Kind: FlagIpcHost})
		}
	case strings.HasPrefix(strings.ToLower(value), "container:"):
		name := value[len("container:"):]
		switch namespace {
		case "network":
			pc.addFlag(DangerousFlag{Kind: FlagNetworkContainer, Name: name})
		case "pid":
			pc.addFlag(DangerousFlag{Kind: FlagPidContainer, Name: name})
		case "ipc":
			pc.addFlag(DangerousFlag{Kind: FlagIpcContainer, Name: name})
		}
	}
}

// handleSecretLikeFlag covers buildkit's --secret/--ssh, which are
// comma-delimited key=value lists; any src=PATH component is a host path.
func handleSecretLikeFlag(pc *ParsedCommand, value string) {
	for _, kv := range strings.Split(value, ",") {
		k, v, ok := cutOnce(strings.TrimSpace(kv), "=")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(k), "src") || strings.EqualFold(strings.TrimSpace(k), "source") {
			pc.addHostPath(strings.TrimSpace(v))
		}
	}
}

func handleSysctl(pc *ParsedCommand, value string) {
	key, val, ok := cutOnce(value, "=")
	if !ok {
		return
	}
	key = strings.TrimSpace(key)
	val = strings.TrimSpace(val)
	if strings.HasPrefix(key, "kernel.") || strings.HasPrefix(key, "net.") {
		pc.addFlag(DangerousFlag{Kind: FlagSysctl, Key: key, Value: val})
	}
}

// metadataIPs are the well-known cloud instance metadata addresses.
var metadataIPs = map[string]bool{
	"169.254.169.254": true,
	"fd00:ec2::254":   true,
	"100.100.100.200": true,
	"169.254.170.2":   true, // ECS task metadata
}

var metadataHostnames = map[string]bool{
	"metadata.google.internal": true,
	"metadata.azure.com":       true,
	"metadata":                 true,
}

func handleAddHost(pc *ParsedCommand, value string) {
	host, ip, ok := cutOnce(value, ":")
	if !ok {
		return
	}
	host = strings.TrimSpace(host)
	normalizedIP := normalizeAddHostIP(ip)
	if metadataIPs[normalizedIP] || metadataHostnames[strings.ToLower(host)] {
		pc.addFlag(DangerousFlag{Kind: FlagAddHost, Key: host, Value: strings.TrimSpace(ip)})
	}
}

func normalizeAddHostIP(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	raw = strings.ToLower(raw)
	if parsed := net.ParseIP(raw); parsed != nil {
		return parsed.String()
	}
	return raw
}

// buildArgSecretMarker matches credential-shaped --build-arg keys that
// contain SECRET/PASSWORD/TOKEN anywhere; isSecretLikeBuildArgKey adds KEY
// as an exact name, suffix, or infix component.
var buildArgSecretMarker = regexp.MustCompile(`SECRET|PASSWORD|TOKEN`)

func isSecretLikeBuildArgKey(key string) bool {
	upper := strings.ToUpper(strings.TrimSpace(key))
	if upper == "" {
		return false
	}
	if buildArgSecretMarker.MatchString(upper) {
		return true
	}
	if upper == "KEY" || strings.HasSuffix(upper, "_KEY") || strings.Contains(upper, "_KEY_") {
		return true
	}
	return false
}

func handleBuildArg(pc *ParsedCommand, value string) {
	key := value
	if idx := strings.IndexByte(value, '='); idx >= 0 {
		key = value[:idx]
	}
	key = strings.TrimSpace(key)
	if isSecretLikeBuildArgKey(key) {
		pc.addFlag(DangerousFlag{Kind: FlagBuildArgSecret, Key: key})
	}
}
