package main

import (
	"fmt"
	"path/filepath"

	"github.com/nekoruri/safe-docker/internal/argparse"
	"github.com/nekoruri/safe-docker/internal/compose"
	"github.com/nekoruri/safe-docker/internal/pathvalidate"
	"github.com/nekoruri/safe-docker/internal/policy"
	"github.com/nekoruri/safe-docker/internal/shellseg"
)

// maxCommandBytes bounds the hook JSON command field and any raw command
// string handed to the pipeline; see the input-transport error class.
const maxCommandBytes = 256 * 1024

// wrappedNames are the basenames the pipeline recognises as a container
// runtime invocation when unwrapping a shell command string.
var wrappedNames = []string{"docker", "docker-compose", "podman"}

// pipelineResult is the outcome of evaluating one raw command string, plus
// the facts an audit event needs about the worst-scoring segment.
type pipelineResult struct {
	Decision   policy.Decision
	Subcommand string
	Image      string
	HostPaths  []string
	FlagNames  []string
}

// evaluateCommand runs the full shellseg -> argparse/compose -> policy
// pipeline over a raw command string, folding every docker-invoking segment
// it contains into a single worst-of decision (deny > ask > allow), the
// same precedence the evaluator itself uses.
func evaluateCommand(raw string, cwd string, cfg policy.Config) pipelineResult {
	if len(raw) > maxCommandBytes {
		return pipelineResult{Decision: policy.Decision{
			Kind:    policy.Deny,
			Reasons: []string{"command exceeds the maximum accepted size"},
		}}
	}

	home, err := pathvalidate.HomeDir()
	if err != nil {
		return pipelineResult{Decision: policy.Decision{
			Kind:    policy.Deny,
			Reasons: []string{"could not resolve a home directory to validate paths against"},
		}}
	}

	segments := shellseg.Split(raw)
	best := pipelineResult{Decision: policy.Decision{Kind: policy.Allow}}
	sawInvocation := false

	for _, seg := range segments {
		if !seg.Tokenizeable {
			best = worst(best, pipelineResult{Decision: policy.Decision{
				Kind:    policy.Deny,
				Reasons: []string{fmt.Sprintf("segment %q could not be safely tokenised", seg.Raw)},
			}})
			continue
		}
		if !shellseg.IsDockerInvocation(seg, wrappedNames...) {
			continue
		}
		sawInvocation = true
		if seg.TruncatedWrapping {
			best = worst(best, pipelineResult{Decision: policy.Decision{
				Kind:    policy.Deny,
				Reasons: []string{"shell indirection exceeded the maximum unwrap depth"},
			}})
			continue
		}
		best = worst(best, evaluateSegment(seg, cwd, home, cfg))
	}

	if !sawInvocation && best.Decision.Kind == policy.Allow {
		return pipelineResult{Decision: policy.Decision{Kind: policy.Allow}}
	}
	return best
}

// evaluateArgv runs the argparse/compose -> policy pipeline directly over an
// already-tokenized argument vector, skipping shell segmentation entirely.
// Wrapper mode calls this: its argv came from exec(3), already split by the
// calling shell, so re-joining it into a string and re-splitting with
// shellseg would let shell metacharacters inside a flag's value (e.g. a
// label containing a `;`) be misread as a segment boundary and hide
// whatever follows from policy evaluation.
func evaluateArgv(argv []string, cwd, home string, cfg policy.Config) pipelineResult {
	if len(argv) == 0 {
		return pipelineResult{Decision: policy.Decision{Kind: policy.Allow}}
	}

	pc := argparse.Parse(argv)
	if pc.Subcommand.IsCompose() {
		return evaluateComposeSegment(pc, cwd, home, cfg)
	}

	d := policy.Evaluate(pc, cfg, home)
	return pipelineResult{
		Decision:   d,
		Subcommand: pc.Subcommand.String(),
		Image:      pc.Image,
		HostPaths:  pc.HostPaths,
		FlagNames:  flagNames(pc.Flags),
	}
}

func evaluateSegment(seg shellseg.Segment, cwd, home string, cfg policy.Config) pipelineResult {
	args := seg.Argv
	if len(args) > 0 {
		args = args[1:] // drop the runtime binary name itself
	}
	pc := argparse.Parse(args)

	var result pipelineResult
	if pc.Subcommand.IsCompose() {
		result = evaluateComposeSegment(pc, cwd, home, cfg)
	} else {
		d := policy.Evaluate(pc, cfg, home)
		result = pipelineResult{
			Decision:   d,
			Subcommand: pc.Subcommand.String(),
			Image:      pc.Image,
			HostPaths:  pc.HostPaths,
			FlagNames:  flagNames(pc.Flags),
		}
	}

	if seg.HadUnexpandedVariable && result.Decision.Kind == policy.Allow {
		result.Decision = policy.Decision{
			Kind:    policy.Ask,
			Reasons: []string{fmt.Sprintf("segment %q references a shell variable that could not be resolved", seg.Raw)},
		}
	}
	return result
}

func evaluateComposeSegment(pc argparse.ParsedCommand, cwd, home string, cfg policy.Config) pipelineResult {
	path := pc.ComposeFile
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}
	if path == "" {
		found, ok := compose.Discover(cwd)
		if !ok {
			return pipelineResult{
				Subcommand: pc.Subcommand.String(),
				Decision: policy.Decision{
					Kind:    policy.Deny,
					Reasons: []string{"no compose file could be discovered for this invocation"},
				},
			}
		}
		path = found
	}

	a, err := compose.Analyze(path)
	if err != nil {
		return pipelineResult{
			Subcommand: pc.Subcommand.String(),
			Decision: policy.Decision{
				Kind:    policy.Deny,
				Reasons: []string{fmt.Sprintf("compose file %q could not be analysed: %v", path, err)},
			},
		}
	}

	base := policy.Evaluate(pc, cfg, home)
	composeDecision := policy.EvaluateCompose(a, cfg, home)
	d := worstDecision(base, composeDecision)

	return pipelineResult{
		Decision:   d,
		Subcommand: pc.Subcommand.String(),
		Image:      pc.Image,
		HostPaths:  append(append([]string{}, pc.HostPaths...), a.HostPaths...),
		FlagNames:  append(flagNames(pc.Flags), flagNames(a.Flags)...),
	}
}

func flagNames(flags []argparse.DangerousFlag) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		out = append(out, f.Kind.String())
	}
	return out
}

func worst(a, b pipelineResult) pipelineResult {
	if b.Decision.Kind > a.Decision.Kind {
		return b
	}
	if b.Decision.Kind == a.Decision.Kind && b.Decision.Kind != policy.Allow {
		a.Decision.Reasons = append(a.Decision.Reasons, b.Decision.Reasons...)
		return a
	}
	return a
}

func worstDecision(a, b policy.Decision) policy.Decision {
	if b.Kind > a.Kind {
		return b
	}
	if b.Kind == a.Kind {
		a.Reasons = append(a.Reasons, b.Reasons...)
		return a
	}
	return a
}
