// Package compose analyses a compose YAML file into the same fact shape
// internal/argparse produces for a direct CLI invocation, so internal/policy
// can evaluate either source uniformly.
package compose

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/docker/docker/api/types/mount"
	"github.com/nekoruri/safe-docker/internal/argparse"
)

// Analysis is the fact shape produced from a compose file.
type Analysis struct {
	HostPaths []string
	Flags     []argparse.DangerousFlag
	// EnvFilePaths are env_file: references, tracked separately because
	// they carry stricter deny-on-outside semantics than an ordinary bind
	// mount source.
	EnvFilePaths []string
	// IncludePaths are top-level include: references, tracked separately
	// because they carry ask-on-outside (not deny-on-outside) semantics.
	IncludePaths []string
}

func (a *Analysis) addHostPath(p string) {
	if p != "" {
		a.HostPaths = append(a.HostPaths, p)
	}
}

func (a *Analysis) addFlag(f argparse.DangerousFlag) {
	a.Flags = append(a.Flags, f)
}

// discoveryNames are searched, in order, from the working directory upward.
var discoveryNames = []string{"compose.yml", "compose.yaml", "docker-compose.yml", "docker-compose.yaml"}

// Discover finds the nearest compose file starting at dir and walking up to
// the filesystem root, the same resolution order `docker compose` itself
// uses when no `-f` is given.
func Discover(dir string) (string, bool) {
	current := filepath.Clean(dir)
	for {
		for _, name := range discoveryNames {
			candidate := filepath.Join(current, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, true
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// Analyze reads and interprets the compose file at path, interpolating
// `${VAR}` references against its `.env` sibling before parsing, and
// recursively following any top-level `include:` entries per the GLOSSARY
// ("followed during analysis").
func Analyze(path string) (Analysis, error) {
	return analyzeFile(path, nil)
}

// analyzeFile does the actual work of Analyze, threading the chain of
// ancestor compose files (by canonical path) down through `include:`
// recursion so a cycle back to an already-in-progress file is caught and
// denied per spec.md §4.5 rather than recursing forever.
func analyzeFile(path string, ancestors []string) (Analysis, error) {
	canon := canonicalPath(path)
	for _, a := range ancestors {
		if a == canon {
			return Analysis{}, fmt.Errorf("cyclic include: %q is already being analyzed", path)
		}
	}
	ancestors = append(ancestors, canon)

	raw, err := os.ReadFile(path)
	if err != nil {
		return Analysis{}, fmt.Errorf("read compose file: %w", err)
	}

	envVars := loadDotEnv(filepath.Join(filepath.Dir(path), ".env"))
	interpolated := interpolate(raw, envVars)

	var root map[string]any
	if err := yaml.Unmarshal(interpolated, &root); err != nil {
		return Analysis{}, fmt.Errorf("parse compose YAML: %w", err)
	}

	var out Analysis
	if services, ok := root["services"].(map[string]any); ok {
		for _, svc := range services {
			svcMap, ok := svc.(map[string]any)
			if !ok {
				continue
			}
			analyzeService(&out, svcMap)
		}
	}
	if includeVal, ok := root["include"]; ok {
		for _, p := range includePaths(includeVal) {
			out.IncludePaths = append(out.IncludePaths, p)

			includeFile := p
			if !filepath.IsAbs(includeFile) {
				includeFile = filepath.Join(filepath.Dir(path), includeFile)
			}
			nested, err := analyzeFile(includeFile, ancestors)
			if err != nil {
				return Analysis{}, fmt.Errorf("include %q: %w", p, err)
			}
			out.HostPaths = append(out.HostPaths, nested.HostPaths...)
			out.EnvFilePaths = append(out.EnvFilePaths, nested.EnvFilePaths...)
			out.Flags = append(out.Flags, nested.Flags...)
			out.IncludePaths = append(out.IncludePaths, nested.IncludePaths...)
		}
	}
	return out, nil
}

// canonicalPath resolves path to an absolute, symlink-resolved form for
// cycle detection; a path that can't be resolved (doesn't exist yet, or a
// broken symlink) is carried through as its absolute form so two different
// spellings of the same missing file still collide.
func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

func analyzeService(out *Analysis, svc map[string]any) {
	if vols, ok := svc["volumes"].([]any); ok {
		for _, v := range vols {
			analyzeVolumeEntry(out, v)
		}
	}

	switch ef := svc["env_file"].(type) {
	case string:
		out.EnvFilePaths = append(out.EnvFilePaths, ef)
	case []any:
		for _, entry := range ef {
			switch e := entry.(type) {
			case string:
				out.EnvFilePaths = append(out.EnvFilePaths, e)
			case map[string]any:
				if p, ok := e["path"].(string); ok {
					out.EnvFilePaths = append(out.EnvFilePaths, p)
				}
			}
		}
	case map[string]any:
		if p, ok := ef["path"].(string); ok {
			out.EnvFilePaths = append(out.EnvFilePaths, p)
		}
	}

	if priv, ok := svc["privileged"].(bool); ok && priv {
		out.addFlag(argparse.DangerousFlag{Kind: argparse.FlagPrivileged})
	}

	analyzeNamespaceKey(out, svc, "network_mode", "network")
	analyzeNamespaceKey(out, svc, "pid", "pid")
	analyzeNamespaceKey(out, svc, "ipc", "ipc")
	analyzeNamespaceKey(out, svc, "uts", "uts")
	analyzeNamespaceKey(out, svc, "userns_mode", "userns")

	if capAdd, ok := svc["cap_add"].([]any); ok {
		for _, c := range capAdd {
			if name, ok := c.(string); ok {
				out.addFlag(argparse.DangerousFlag{Kind: argparse.FlagCapAdd, Name: strings.ToUpper(strings.TrimSpace(name))})
			}
		}
	}

	if secOpts, ok := svc["security_opt"].([]any); ok {
		for _, s := range secOpts {
			if val, ok := s.(string); ok {
				applySecurityOpt(out, val)
			}
		}
	}

	if devices, ok := svc["devices"].([]any); ok {
		for _, d := range devices {
			if spec, ok := d.(string); ok {
				src := spec
				if idx := strings.IndexByte(spec, ':'); idx > 0 {
					src = spec[:idx]
				}
				out.addFlag(argparse.DangerousFlag{Kind: argparse.FlagDevice, Name: src})
			}
		}
	}

	analyzeSysctls(out, svc["sysctls"])

	if hosts, ok := svc["extra_hosts"].([]any); ok {
		for _, h := range hosts {
			if entry, ok := h.(string); ok {
				applyExtraHost(out, entry)
			}
		}
	}

	if volumesFrom, ok := svc["volumes_from"].([]any); ok {
		for _, v := range volumesFrom {
			if ref, ok := v.(string); ok {
				out.addFlag(argparse.DangerousFlag{Kind: argparse.FlagVolumesFrom, Name: ref})
			}
		}
	}

	if cgroupParent, ok := svc["cgroup_parent"].(string); ok && strings.TrimSpace(cgroupParent) != "" {
		out.addHostPath(cgroupParent)
	}
}

func analyzeVolumeEntry(out *Analysis, v any) {
	switch val := v.(type) {
	case string:
		parts := strings.Split(val, ":")
		if len(parts) >= 2 && looksLikeHostPath(parts[0]) {
			out.addHostPath(parts[0])
		}
		if len(parts) == 3 {
			for _, opt := range strings.Split(parts[2], ",") {
				opt = strings.ToLower(strings.TrimSpace(opt))
				if mount.Propagation(opt) == mount.PropagationShared || mount.Propagation(opt) == mount.PropagationRShared {
					out.addFlag(argparse.DangerousFlag{Kind: argparse.FlagMountPropagation, Value: opt})
				}
			}
		}
	case map[string]any:
		mtype, _ := val["type"].(string)
		if mtype == "" || mtype == "bind" {
			if source, ok := val["source"].(string); ok && source != "" {
				out.addHostPath(source)
			} else if opts, ok := val["driver_opts"].(map[string]any); ok {
				if dev, ok := opts["device"].(string); ok && looksLikeHostPath(dev) {
					out.addHostPath(dev)
				}
			}
		}
		if bindOpts, ok := val["bind"].(map[string]any); ok {
			if prop, ok := bindOpts["propagation"].(string); ok {
				prop = strings.ToLower(prop)
				if mount.Propagation(prop) == mount.PropagationShared || mount.Propagation(prop) == mount.PropagationRShared {
					out.addFlag(argparse.DangerousFlag{Kind: argparse.FlagMountPropagation, Value: prop})
				}
			}
		}
	}
}

func looksLikeHostPath(source string) bool {
	return strings.HasPrefix(source, "/") || strings.HasPrefix(source, ".") || strings.HasPrefix(source, "~") || strings.Contains(source, "$")
}

func analyzeNamespaceKey(out *Analysis, svc map[string]any, key, namespace string) {
	val, ok := svc[key].(string)
	if !ok {
		return
	}
	val = strings.TrimSpace(val)
	switch {
	case strings.EqualFold(val, "host"):
		flagForHostNamespace(out, namespace)
	case strings.HasPrefix(strings.ToLower(val), "container:"):
		name := val[len("container:"):]
		flagForContainerNamespace(out, namespace, name)
	case strings.HasPrefix(strings.ToLower(val), "service:"):
		// compose's "share with another service" form; carries the same
		// host-visibility implication as container: once that service
		// resolves at runtime, so it is recorded the same way.
		name := val[len("service:"):]
		flagForContainerNamespace(out, namespace, name)
	}
}

func flagForHostNamespace(out *Analysis, namespace string) {
	switch namespace {
	case "network":
		out.addFlag(argparse.DangerousFlag{Kind: argparse.FlagNetworkHost})
	case "pid":
		out.addFlag(argparse.DangerousFlag{Kind: argparse.FlagPidHost})
	case "ipc":
		out.addFlag(argparse.DangerousFlag{Kind: argparse.FlagIpcHost})
	case "uts":
		out.addFlag(argparse.DangerousFlag{Kind: argparse.FlagUtsHost})
	case "userns":
		out.addFlag(argparse.DangerousFlag{Kind: argparse.FlagUsernsHost})
	}
}

func flagForContainerNamespace(out *Analysis, namespace, name string) {
	switch namespace {
	case "network":
		out.addFlag(argparse.DangerousFlag{Kind: argparse.FlagNetworkContainer, Name: name})
	case "pid":
		out.addFlag(argparse.DangerousFlag{Kind: argparse.FlagPidContainer, Name: name})
	case "ipc":
		out.addFlag(argparse.DangerousFlag{Kind: argparse.FlagIpcContainer, Name: name})
	}
}

var dangerousSecurityOpts = map[string]bool{
	"apparmor=unconfined":     true,
	"seccomp=unconfined":      true,
	"label=disable":           true,
	"label:disable":           true,
	"no-new-privileges=false": true,
	"systempaths=unconfined":  true,
}

func applySecurityOpt(out *Analysis, value string) {
	trimmed := strings.TrimSpace(value)
	lower := strings.ToLower(trimmed)
	if dangerousSecurityOpts[lower] {
		out.addFlag(argparse.DangerousFlag{Kind: argparse.FlagSecurityOpt, Name: trimmed})
		return
	}
	if strings.HasPrefix(lower, "seccomp=") {
		path := trimmed[len("seccomp="):]
		if path != "" && !strings.EqualFold(path, "unconfined") {
			out.addHostPath(path)
		}
	}
}

func analyzeSysctls(out *Analysis, raw any) {
	apply := func(key, val string) {
		key = strings.TrimSpace(key)
		if strings.HasPrefix(key, "kernel.") || strings.HasPrefix(key, "net.") {
			out.addFlag(argparse.DangerousFlag{Kind: argparse.FlagSysctl, Key: key, Value: strings.TrimSpace(val)})
		}
	}
	switch v := raw.(type) {
	case map[string]any:
		for k, val := range v {
			apply(k, fmt.Sprintf("%v", val))
		}
	case []any:
		for _, entry := range v {
			s, ok := entry.(string)
			if !ok {
				continue
			}
			k, val, found := strings.Cut(s, "=")
			if found {
				apply(k, val)
			}
		}
	}
}

var metadataIPs = map[string]bool{
	"169.254.169.254": true,
	"fd00:ec2::254":   true,
	"100.100.100.200": true,
	"169.254.170.2":   true,
}

var metadataHostnames = map[string]bool{
	"metadata.google.internal": true,
	"metadata.azure.com":       true,
	"metadata":                 true,
}

func applyExtraHost(out *Analysis, entry string) {
	host, ip, ok := strings.Cut(entry, ":")
	if !ok {
		return
	}
	host = strings.TrimSpace(host)
	ip = strings.ToLower(strings.TrimSpace(strings.Trim(ip, "[]")))
	if metadataIPs[ip] || metadataHostnames[strings.ToLower(host)] {
		out.addFlag(argparse.DangerousFlag{Kind: argparse.FlagAddHost, Key: host, Value: ip})
	}
}

func includePaths(raw any) []string {
	var out []string
	switch v := raw.(type) {
	case string:
		out = append(out, v)
	case []any:
		for _, entry := range v {
			switch e := entry.(type) {
			case string:
				out = append(out, e)
			case map[string]any:
				if p, ok := e["path"].(string); ok {
					out = append(out, p)
				}
			}
		}
	}
	return out
}

var interpolationPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:?-[^}]*)?\}`)

// interpolate substitutes `${VAR}` / `${VAR:-default}` / `${VAR-default}`
// references using vars, falling back to the declared default or leaving the
// reference untouched when neither is available.
func interpolate(content []byte, vars map[string]string) []byte {
	return interpolationPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		sub := interpolationPattern.FindSubmatch(match)
		name := string(sub[1])
		if val, ok := vars[name]; ok {
			return []byte(val)
		}
		if len(sub[2]) > 0 {
			def := bytes.TrimPrefix(sub[2], []byte(":"))
			return def[1:] // strip the leading "-" (or ":-")
		}
		return match
	})
}

func loadDotEnv(path string) map[string]string {
	vars := map[string]string{}
	data, err := os.ReadFile(path)
	if err != nil {
		return vars
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vars[strings.TrimSpace(k)] = strings.Trim(strings.TrimSpace(v), `"'`)
	}
	return vars
}
