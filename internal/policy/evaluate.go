// Package policy folds a parsed container-CLI command, plus the host paths
// it would touch, into the final allow/ask/deny Decision.
package policy

import (
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/mount"
	"github.com/nekoruri/safe-docker/internal/argparse"
	"github.com/nekoruri/safe-docker/internal/imageref"
	"github.com/nekoruri/safe-docker/internal/pathvalidate"
)

// Kind is the closed set of terminal decision outcomes.
type Kind int

const (
	Allow Kind = iota
	Ask
	Deny
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Ask:
		return "ask"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// Decision is the terminal output of the policy evaluator.
type Decision struct {
	Kind    Kind
	Reasons []string
}

// subcommandsRequiringImageCheck are the subcommands whose Image field is
// subject to allowed_images whitelisting.
var subcommandsRequiringImageCheck = map[argparse.Subcommand]bool{
	argparse.SubRun: true, argparse.SubCreate: true,
	argparse.SubComposeUp: true, argparse.SubComposeRun: true, argparse.SubComposeCreate: true,
}

// Evaluate applies the deny > ask > allow precedence from the policy
// evaluator contract to a parsed command. home is the caller's home
// directory, used for path-scope classification.
func Evaluate(pc argparse.ParsedCommand, cfg Config, home string) Decision {
	var denyReasons, askReasons []string

	if pc.Incomplete {
		reason := "command could not be fully parsed"
		if pc.IncompleteReason != "" {
			reason = pc.IncompleteReason
		}
		denyReasons = append(denyReasons, reason)
	}

	if subcommandsRequiringImageCheck[pc.Subcommand] && pc.Image != "" && len(cfg.AllowedImages) > 0 {
		if !imageref.Allowed(pc.Image, cfg.AllowedImages) {
			denyReasons = append(denyReasons, fmt.Sprintf("image %q is not in the configured allowlist", pc.Image))
		}
	}

	for _, raw := range pc.RawFlags {
		if isBlockedFlag(raw, cfg.BlockedFlags) {
			denyReasons = append(denyReasons, fmt.Sprintf("%s is blocked by configuration", raw))
		}
	}

	for _, raw := range pc.HostPaths {
		class := pathvalidate.Classify(raw, home, cfg.AllowedPaths, cfg.SensitivePaths)
		switch class.Kind {
		case pathvalidate.KindOutsideHome:
			denyReasons = append(denyReasons, fmt.Sprintf("%q resolves to %q, outside the home directory", raw, class.Resolved))
		case pathvalidate.KindDockerSocket:
			if cfg.BlockDockerSocket {
				denyReasons = append(denyReasons, fmt.Sprintf("%q is the container engine socket", raw))
			}
		case pathvalidate.KindSensitiveWithinHome:
			askReasons = append(askReasons, fmt.Sprintf("%q touches the sensitive path %q", raw, class.Subpath))
		case pathvalidate.KindUnexpandable:
			askReasons = append(askReasons, fmt.Sprintf("%q %s", raw, class.Reason))
		}
	}

	for _, flag := range pc.Flags {
		switch flag.Kind {
		case argparse.FlagPrivileged,
			argparse.FlagNetworkHost, argparse.FlagPidHost, argparse.FlagIpcHost,
			argparse.FlagUtsHost, argparse.FlagUsernsHost, argparse.FlagCgroupnsHost,
			argparse.FlagNetworkContainer, argparse.FlagPidContainer, argparse.FlagIpcContainer,
			argparse.FlagDevice:
			denyReasons = append(denyReasons, flag.Reason())
		case argparse.FlagCapAdd:
			if isBlockedCapability(flag.Name, cfg.BlockedCapabilities) {
				denyReasons = append(denyReasons, flag.Reason())
			}
		case argparse.FlagSecurityOpt:
			denyReasons = append(denyReasons, flag.Reason())
		case argparse.FlagMountPropagation:
			if p := mount.Propagation(flag.Value); p == mount.PropagationShared || p == mount.PropagationRShared {
				denyReasons = append(denyReasons, flag.Reason())
			}
		case argparse.FlagSysctl:
			if strings.HasPrefix(flag.Key, "kernel.") {
				denyReasons = append(denyReasons, flag.Reason())
			} else if strings.HasPrefix(flag.Key, "net.") {
				askReasons = append(askReasons, flag.Reason())
			}
		case argparse.FlagVolumesFrom, argparse.FlagAddHost, argparse.FlagBuildArgSecret:
			askReasons = append(askReasons, flag.Reason())
		}
	}

	if len(denyReasons) > 0 {
		return Decision{Kind: Deny, Reasons: dedup(denyReasons)}
	}
	if len(askReasons) > 0 {
		return Decision{Kind: Ask, Reasons: dedup(askReasons)}
	}
	return Decision{Kind: Allow}
}

func isBlockedCapability(name string, blocked []string) bool {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, b := range blocked {
		if strings.EqualFold(b, name) {
			return true
		}
	}
	return false
}

// isBlockedFlag reports whether flag (the literal spelling seen on the
// command line, e.g. "--privileged" or "-v") matches a blocked_flags entry.
// This is the escape hatch for denying a flag the closed DangerousFlag
// taxonomy has no variant for.
func isBlockedFlag(flag string, blocked []string) bool {
	flag = strings.TrimSpace(flag)
	for _, b := range blocked {
		if strings.EqualFold(strings.TrimSpace(b), flag) {
			return true
		}
	}
	return false
}

func dedup(reasons []string) []string {
	seen := make(map[string]bool, len(reasons))
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
