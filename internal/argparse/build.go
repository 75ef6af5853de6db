package argparse

import "strings"

// parseBuild handles `build` and `buildx build`. Docker's build grammar has
// no image-position token; the final bare positional is the build context.
func parseBuild(sub Subcommand, args []string) ParsedCommand {
	pc := ParsedCommand{Subcommand: sub}
	var lastPositional string
	i := 0
	for i < len(args) {
		tok := args[i]
		if !strings.HasPrefix(tok, "-") || tok == "-" {
			lastPositional = tok
			i++
			continue
		}

		flag, inlineVal, hasInline := splitFlagValue(tok)
		pc.addRawFlag(flag)
		switch flag {
		case "--build-arg":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for --build-arg")
				return pc
			}
			handleBuildArg(&pc, val)
			i += n
			continue
		case "--secret", "--ssh":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for " + flag)
				return pc
			}
			handleSecretLikeFlag(&pc, val)
			i += n
			continue
		case "--security-opt":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for --security-opt")
				return pc
			}
			handleSecurityOpt(&pc, val)
			i += n
			continue
		case "-f", "--file":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for " + flag)
				return pc
			}
			if isHostPathLike(val) {
				pc.addHostPath(val)
			}
			i += n
			continue
		}

		if isValueFlag(flag) {
			_, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for " + flag)
				return pc
			}
			i += n
			continue
		}
		i++
	}

	if lastPositional != "" && lastPositional != "-" && !isURLBuildContext(lastPositional) {
		pc.addHostPath(lastPositional)
	}
	return pc
}

func isHostPathLike(val string) bool {
	return strings.HasPrefix(val, "/") || strings.ContainsAny(val, "/\\")
}

func isURLBuildContext(val string) bool {
	lower := strings.ToLower(val)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"),
		strings.HasPrefix(lower, "git://"), strings.HasPrefix(lower, "git@"),
		strings.HasPrefix(lower, "github.com/"):
		return true
	default:
		return false
	}
}
