// Package argparse recovers a structured ParsedCommand from a container-CLI
// argument vector, the way the policy evaluator needs to see it: every
// host-visible path pulled into HostPaths, every risky flag tagged as a
// DangerousFlag.
package argparse

import "fmt"

// Subcommand tags the primary operation a container-CLI invocation performs.
type Subcommand int

const (
	SubUnknown Subcommand = iota
	SubRun
	SubCreate
	SubExec
	SubCp
	SubBuild
	SubBuildxBuild
	SubLogin
	SubComposeUp
	SubComposeRun
	SubComposeCreate
	SubComposeExec
	SubOther
)

func (s Subcommand) String() string {
	switch s {
	case SubRun:
		return "run"
	case SubCreate:
		return "create"
	case SubExec:
		return "exec"
	case SubCp:
		return "cp"
	case SubBuild:
		return "build"
	case SubBuildxBuild:
		return "buildx build"
	case SubLogin:
		return "login"
	case SubComposeUp:
		return "compose up"
	case SubComposeRun:
		return "compose run"
	case SubComposeCreate:
		return "compose create"
	case SubComposeExec:
		return "compose exec"
	case SubOther:
		return "other"
	default:
		return "unknown"
	}
}

// IsCompose reports whether the subcommand is one of the compose variants.
func (s Subcommand) IsCompose() bool {
	switch s {
	case SubComposeUp, SubComposeRun, SubComposeCreate, SubComposeExec:
		return true
	default:
		return false
	}
}

// FlagKind enumerates the closed set of DangerousFlag variants named in the
// data model. Adding a new kind here requires extending Reason, the parser,
// and the policy evaluator's match — that three-way extension is the
// enforcement mechanism for the sum-type discipline.
type FlagKind int

const (
	FlagPrivileged FlagKind = iota
	FlagCapAdd
	FlagSecurityOpt
	FlagNetworkHost
	FlagPidHost
	FlagIpcHost
	FlagUtsHost
	FlagUsernsHost
	FlagCgroupnsHost
	FlagNetworkContainer
	FlagPidContainer
	FlagIpcContainer
	FlagDevice
	FlagVolumesFrom
	FlagMountPropagation
	FlagSysctl
	FlagAddHost
	FlagBuildArgSecret
)

// String names the flag variant, independent of any specific occurrence's
// Name/Key/Value — used where only the kind of risk matters (e.g. an audit
// event's flag_names field).
func (k FlagKind) String() string {
	switch k {
	case FlagPrivileged:
		return "privileged"
	case FlagCapAdd:
		return "cap-add"
	case FlagSecurityOpt:
		return "security-opt"
	case FlagNetworkHost:
		return "network-host"
	case FlagPidHost:
		return "pid-host"
	case FlagIpcHost:
		return "ipc-host"
	case FlagUtsHost:
		return "uts-host"
	case FlagUsernsHost:
		return "userns-host"
	case FlagCgroupnsHost:
		return "cgroupns-host"
	case FlagNetworkContainer:
		return "network-container"
	case FlagPidContainer:
		return "pid-container"
	case FlagIpcContainer:
		return "ipc-container"
	case FlagDevice:
		return "device"
	case FlagVolumesFrom:
		return "volumes-from"
	case FlagMountPropagation:
		return "mount-propagation"
	case FlagSysctl:
		return "sysctl"
	case FlagAddHost:
		return "add-host"
	case FlagBuildArgSecret:
		return "build-arg-secret"
	default:
		return "unknown"
	}
}

// DangerousFlag is a tagged fact about one flag occurrence. Which fields are
// populated depends on Kind; see Reason for the canonical reading of each.
type DangerousFlag struct {
	Kind  FlagKind
	Name  string // capability name / security-opt value / device path / --volumes-from reference / container name reference
	Key   string // sysctl key / --add-host hostname / build-arg key
	Value string // sysctl value / --add-host IP / mount-propagation mode
}

// Reason renders a human-readable explanation naming the offending flag,
// used verbatim in Decision.reasons so the caller can see why a command was
// refused.
func (f DangerousFlag) Reason() string {
	switch f.Kind {
	case FlagPrivileged:
		return "--privileged grants full host capability access"
	case FlagCapAdd:
		return fmt.Sprintf("--cap-add=%s grants a blocked Linux capability", f.Name)
	case FlagSecurityOpt:
		return fmt.Sprintf("--security-opt=%s disables a host-protecting security boundary", f.Name)
	case FlagNetworkHost:
		return "--network=host shares the host network namespace"
	case FlagPidHost:
		return "--pid=host shares the host process namespace"
	case FlagIpcHost:
		return "--ipc=host shares the host IPC namespace"
	case FlagUtsHost:
		return "--uts=host shares the host hostname/UTS namespace"
	case FlagUsernsHost:
		return "--userns=host disables user namespace remapping"
	case FlagCgroupnsHost:
		return "--cgroupns=host shares the host cgroup namespace"
	case FlagNetworkContainer:
		return fmt.Sprintf("--network=container:%s shares another container's network namespace", f.Name)
	case FlagPidContainer:
		return fmt.Sprintf("--pid=container:%s shares another container's process namespace", f.Name)
	case FlagIpcContainer:
		return fmt.Sprintf("--ipc=container:%s shares another container's IPC namespace", f.Name)
	case FlagDevice:
		return fmt.Sprintf("--device=%s exposes a host device node", f.Name)
	case FlagVolumesFrom:
		return fmt.Sprintf("--volumes-from=%s inherits mounts from another container", f.Name)
	case FlagMountPropagation:
		return fmt.Sprintf("mount propagation %q lets container mount events propagate to the host", f.Value)
	case FlagSysctl:
		return fmt.Sprintf("--sysctl %s=%s", f.Key, f.Value)
	case FlagAddHost:
		return fmt.Sprintf("--add-host %s:%s points at a cloud metadata address", f.Key, f.Value)
	case FlagBuildArgSecret:
		return fmt.Sprintf("--build-arg %s looks like a credential passed on the build command line", f.Key)
	default:
		return "unrecognised flag"
	}
}

// ParsedCommand is the structured view of one container-CLI invocation.
type ParsedCommand struct {
	Subcommand      Subcommand
	SubcommandOther string // set only when Subcommand == SubOther
	Image           string
	HostPaths       []string
	Flags           []DangerousFlag
	ComposeFile     string

	// RawFlags is every flag token seen during parsing (the flag name
	// only, e.g. "--privileged", "-v", "--network" — never its value),
	// independent of whether it was recognised as dangerous. It exists so
	// a user's `blocked_flags` config entry can deny a flag by literal
	// spelling even when the closed DangerousFlag taxonomy has no variant
	// for it.
	RawFlags []string

	// Incomplete is set when the parser could not fully recover the
	// command's structure (missing value-flag argument, malformed mount
	// spec, non-UTF-8 token). Policy treats an incomplete command as deny.
	Incomplete       bool
	IncompleteReason string
}

func (p *ParsedCommand) addHostPath(path string) {
	if path == "" {
		return
	}
	p.HostPaths = append(p.HostPaths, path)
}

func (p *ParsedCommand) addRawFlag(flag string) {
	if flag == "" {
		return
	}
	p.RawFlags = append(p.RawFlags, flag)
}

func (p *ParsedCommand) addFlag(f DangerousFlag) {
	p.Flags = append(p.Flags, f)
}

func (p *ParsedCommand) markIncomplete(reason string) {
	p.Incomplete = true
	if p.IncompleteReason == "" {
		p.IncompleteReason = reason
	}
}
