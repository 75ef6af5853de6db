// Package shellseg splits a raw shell command string the way a POSIX shell
// would dispatch it, into independently evaluable segments, and unwraps the
// common indirection wrappers (sudo, eval, sh -c, xargs, leading VAR=val
// assignments) so the policy core sees the command that will actually run.
package shellseg

import (
	"strings"

	"github.com/google/shlex"
)

// maxUnwrapDepth bounds recursive indirection unwrapping. A command needing
// more hops than this is treated as deliberately obfuscated.
const maxUnwrapDepth = 8

// Segment is one independently evaluable piece of a command line, with its
// shell indirection already unwrapped.
type Segment struct {
	// Raw is the segment text as it appeared before unwrapping.
	Raw string
	// Argv is the tokenized, unwrapped argument vector ready for argparse.
	Argv []string
	// EnvPrefix holds any leading NAME=VALUE assignments stripped before Argv.
	EnvPrefix []string
	// HadUnexpandedVariable is set when a token still references a shell
	// variable that could not be resolved while unwrapping.
	HadUnexpandedVariable bool
	// TruncatedWrapping is set when unwrapping hit maxUnwrapDepth without
	// reaching a terminal command.
	TruncatedWrapping bool
	// Tokenizeable is false when the segment could not be tokenized at all
	// (unbalanced quotes); Argv is empty in that case.
	Tokenizeable bool
}

// shWrappers are the recognised `<shell> -c <string>` indirection forms.
var shWrappers = map[string]bool{
	"sh": true, "bash": true, "zsh": true, "dash": true, "ksh": true,
	"/bin/sh": true, "/bin/bash": true, "/bin/zsh": true, "/bin/dash": true,
	"/usr/bin/sh": true, "/usr/bin/bash": true, "/usr/bin/zsh": true,
}

// Split breaks a raw command string on top-level `|`, `;`, `&&`, `||`, and
// newlines, leaving quoted/escaped/backticked regions intact, then unwraps
// each resulting piece's indirection and tokenizes it.
func Split(command string) []Segment {
	var segs []Segment
	for _, raw := range splitTopLevel(command) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		segs = append(segs, unwrap(raw, 0))
	}
	return segs
}

// splitTopLevel performs the quote/escape/backtick-aware split described in
// spec.md §4.1. Heredocs and process substitutions are not interpreted; they
// pass through as ordinary characters inside whatever segment contains them.
func splitTopLevel(command string) []string {
	var parts []string
	var cur strings.Builder
	var inSingle, inDouble, inBacktick bool
	runes := []rune(command)
	n := len(runes)

	flush := func() {
		parts = append(parts, cur.String())
		cur.Reset()
	}

	for i := 0; i < n; i++ {
		r := runes[i]
		switch {
		case r == '\\' && !inSingle && i+1 < n:
			cur.WriteRune(r)
			cur.WriteRune(runes[i+1])
			i++
			continue
		case r == '\'' && !inDouble && !inBacktick:
			inSingle = !inSingle
			cur.WriteRune(r)
			continue
		case r == '"' && !inSingle && !inBacktick:
			inDouble = !inDouble
			cur.WriteRune(r)
			continue
		case r == '`' && !inSingle && !inDouble:
			inBacktick = !inBacktick
			cur.WriteRune(r)
			continue
		}

		if inSingle || inDouble || inBacktick {
			cur.WriteRune(r)
			continue
		}

		switch {
		case r == '\n', r == ';':
			flush()
			continue
		case r == '|' && i+1 < n && runes[i+1] == '|':
			flush()
			i++
			continue
		case r == '&' && i+1 < n && runes[i+1] == '&':
			flush()
			i++
			continue
		case r == '|':
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	return parts
}

// unwrap recursively strips env-var prefixes and recognised indirection
// wrappers from a single segment until it reaches a terminal command or
// exhausts maxUnwrapDepth.
func unwrap(raw string, depth int) Segment {
	seg := Segment{Raw: raw}

	tokens, err := shlex.Split(raw)
	if err != nil {
		return seg // Tokenizeable stays false
	}
	seg.Tokenizeable = true

	tokens, prefix := stripEnvPrefix(tokens)
	seg.EnvPrefix = append(seg.EnvPrefix, prefix...)

	if len(tokens) == 0 {
		seg.Argv = tokens
		return seg
	}

	if depth >= maxUnwrapDepth {
		seg.TruncatedWrapping = true
		seg.Argv = tokens
		markVariables(&seg)
		return seg
	}

	head := tokens[0]
	switch {
	case head == "sudo":
		rest := stripSudoFlags(tokens[1:])
		if len(rest) == 0 {
			seg.Argv = tokens
			markVariables(&seg)
			return seg
		}
		return unwrapJoin(raw, rest, seg, depth)

	case head == "eval":
		if len(tokens) < 2 {
			seg.Argv = tokens
			markVariables(&seg)
			return seg
		}
		inner := strings.Join(tokens[1:], " ")
		return mergeUnwrap(raw, seg, unwrap(inner, depth+1))

	case shWrappers[head]:
		if idx := indexOf(tokens, "-c"); idx >= 0 && idx+1 < len(tokens) {
			return mergeUnwrap(raw, seg, unwrap(tokens[idx+1], depth+1))
		}
		seg.Argv = tokens
		markVariables(&seg)
		return seg

	case head == "xargs":
		rest := stripXargsFlags(tokens[1:])
		if len(rest) == 0 {
			seg.Argv = tokens
			markVariables(&seg)
			return seg
		}
		return unwrapJoin(raw, rest, seg, depth)

	default:
		seg.Argv = tokens
		markVariables(&seg)
		return seg
	}
}

// unwrapJoin re-enters unwrap with the remaining tokens joined back into a
// string, so a nested wrapper (e.g. `sudo sh -c '...'`) is still recognised.
func unwrapJoin(raw string, rest []string, outer Segment, depth int) Segment {
	inner := unwrap(strings.Join(rest, " "), depth+1)
	return mergeUnwrap(raw, outer, inner)
}

func mergeUnwrap(raw string, outer, inner Segment) Segment {
	inner.Raw = raw
	inner.EnvPrefix = append(outer.EnvPrefix, inner.EnvPrefix...)
	return inner
}

func indexOf(tokens []string, target string) int {
	for i, t := range tokens {
		if t == target {
			return i
		}
	}
	return -1
}

// stripEnvPrefix removes leading `NAME=VALUE` assignment tokens, returning
// the remaining command tokens and the prefixes that were stripped.
func stripEnvPrefix(tokens []string) (rest []string, prefix []string) {
	i := 0
	for i < len(tokens) && isEnvAssignment(tokens[i]) {
		prefix = append(prefix, tokens[i])
		i++
	}
	return tokens[i:], prefix
}

func isEnvAssignment(tok string) bool {
	eq := strings.IndexByte(tok, '=')
	if eq <= 0 {
		return false
	}
	name := tok[:eq]
	for i, r := range name {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

var sudoValueFlags = map[string]bool{
	"-u": true, "--user": true, "-g": true, "--group": true,
	"-p": true, "--prompt": true, "-C": true, "--close-from": true,
}

func stripSudoFlags(tokens []string) []string {
	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		if tok == "--" {
			i++
			break
		}
		if !strings.HasPrefix(tok, "-") {
			break
		}
		if sudoValueFlags[tok] {
			i += 2
			continue
		}
		i++
	}
	return tokens[i:]
}

var xargsValueFlags = map[string]bool{
	"-I": true, "-n": true, "-P": true, "-d": true, "-E": true, "-L": true, "-s": true,
}

func stripXargsFlags(tokens []string) []string {
	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		if !strings.HasPrefix(tok, "-") {
			break
		}
		if xargsValueFlags[tok] {
			i += 2
			continue
		}
		i++
	}
	return tokens[i:]
}

// markVariables flags a segment whose tokens still reference an unexpanded
// `$VAR` or `${VAR}` shell variable.
func markVariables(seg *Segment) {
	for _, tok := range seg.Argv {
		if containsVariableReference(tok) {
			seg.HadUnexpandedVariable = true
			return
		}
	}
}

func containsVariableReference(tok string) bool {
	for i := 0; i < len(tok); i++ {
		if tok[i] != '$' {
			continue
		}
		if i+1 >= len(tok) {
			continue
		}
		next := tok[i+1]
		if next == '{' || next == '_' || (next >= 'a' && next <= 'z') || (next >= 'A' && next <= 'Z') {
			return true
		}
	}
	return false
}

// IsDockerInvocation reports whether a segment's unwrapped argv invokes the
// wrapped CLI (or its compose alias) as argv[0].
func IsDockerInvocation(seg Segment, wrappedNames ...string) bool {
	if len(seg.Argv) == 0 {
		return false
	}
	head := baseName(seg.Argv[0])
	for _, name := range wrappedNames {
		if head == name {
			return true
		}
	}
	return false
}

func baseName(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
