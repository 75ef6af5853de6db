package argparse

import (
	"strings"
	"unicode/utf8"
)

// Parse converts an argv vector into a ParsedCommand. args[0] is the
// container-CLI subcommand (e.g. "run", "compose"); callers strip the
// program name (docker/docker-compose/the wrapper's own argv[0]) before
// calling Parse.
func Parse(args []string) ParsedCommand {
	for _, a := range args {
		if !utf8.ValidString(a) {
			pc := other("")
			pc.markIncomplete("argument is not valid UTF-8")
			return pc
		}
	}
	if len(args) == 0 {
		return ParsedCommand{Subcommand: SubOther, SubcommandOther: ""}
	}
	sub := args[0]
	rest := args[1:]
	switch sub {
	case "run":
		return parseRunCreate(SubRun, rest)
	case "create":
		return parseRunCreate(SubCreate, rest)
	case "exec":
		return parseExec(rest)
	case "cp":
		return parseCp(rest)
	case "build":
		return parseBuild(SubBuild, rest)
	case "buildx":
		if len(rest) > 0 && rest[0] == "build" {
			return parseBuild(SubBuildxBuild, rest[1:])
		}
		return other("buildx " + strings.Join(rest, " "))
	case "login":
		return parseLogin(rest)
	case "compose", "docker-compose":
		return parseComposeInvocation(rest)
	default:
		return other(sub)
	}
}

func other(name string) ParsedCommand {
	return ParsedCommand{Subcommand: SubOther, SubcommandOther: strings.TrimSpace(name)}
}

func parseComposeInvocation(args []string) ParsedCommand {
	var composeFile string
	var rawFlags []string
	i := 0
	for i < len(args) {
		tok := args[i]
		if tok == "-f" || tok == "--file" {
			rawFlags = append(rawFlags, tok)
			if i+1 >= len(args) {
				pc := other("compose")
				pc.markIncomplete("missing value for " + tok)
				return pc
			}
			if composeFile == "" {
				composeFile = args[i+1]
			}
			i += 2
			continue
		}
		if flag, val, ok := splitFlagValue(tok); ok && (flag == "-f" || flag == "--file") {
			rawFlags = append(rawFlags, flag)
			if composeFile == "" {
				composeFile = val
			}
			i++
			continue
		}
		// first non-flag token is the compose subcommand
		if !strings.HasPrefix(tok, "-") {
			break
		}
		flag, _, _ := splitFlagValue(tok)
		rawFlags = append(rawFlags, flag)
		i++
	}
	if i >= len(args) {
		pc := other("compose")
		pc.ComposeFile = composeFile
		pc.RawFlags = rawFlags
		return pc
	}
	subName := args[i]
	remainder := args[i+1:]
	var pc ParsedCommand
	switch subName {
	case "up":
		pc = parseRunCreate(SubComposeUp, remainder)
	case "run":
		pc = parseRunCreate(SubComposeRun, remainder)
	case "create":
		pc = parseRunCreate(SubComposeCreate, remainder)
	case "exec":
		pc = parseExec(remainder)
		pc.Subcommand = SubComposeExec
	default:
		pc = other("compose " + subName)
	}
	pc.ComposeFile = composeFile
	pc.RawFlags = append(rawFlags, pc.RawFlags...)
	return pc
}

// parseRunCreate handles `run`/`create`/the compose equivalents, which share
// the bulk of docker's flag surface.
func parseRunCreate(sub Subcommand, args []string) ParsedCommand {
	pc := ParsedCommand{Subcommand: sub}
	i := 0
	imageSeen := false
	for i < len(args) {
		tok := args[i]
		if !strings.HasPrefix(tok, "-") {
			// first bare positional is the image reference; anything after
			// belongs to the containerized command, not this invocation.
			if !imageSeen {
				pc.Image = tok
				imageSeen = true
			}
			i++
			if imageSeen {
				break
			}
			continue
		}

		flag, inlineVal, hasInline := splitFlagValue(tok)
		pc.addRawFlag(flag)

		switch flag {
		case "--privileged":
			pc.addFlag(DangerousFlag{Kind: FlagPrivileged})
			i++
			continue
		case "--cap-add":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for --cap-add")
				return pc
			}
			pc.addFlag(DangerousFlag{Kind: FlagCapAdd, Name: strings.ToUpper(strings.TrimSpace(val))})
			i += n
			continue
		case "--cap-drop":
			_, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for --cap-drop")
				return pc
			}
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
		case "--network", "--net":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for " + flag)
				return pc
			}
			handleNamespaceFlag(&pc, "network", val)
			i += n
			continue
		case "--pid":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for --pid")
				return pc
			}
			handleNamespaceFlag(&pc, "pid", val)
			i += n
			continue
		case "--ipc":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for --ipc")
				return pc
			}
			handleNamespaceFlag(&pc, "ipc", val)
			i += n
			continue
		case "--uts":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for --uts")
				return pc
			}
			if strings.EqualFold(strings.TrimSpace(val), "host") {
				pc.addFlag(DangerousFlag{Kind: FlagUtsHost})
			}
			i += n
			continue
		case "--userns":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for --userns")
				return pc
			}
			if strings.EqualFold(strings.TrimSpace(val), "host") {
				pc.addFlag(DangerousFlag{Kind: FlagUsernsHost})
			}
			i += n
			continue
		case "--cgroupns":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for --cgroupns")
				return pc
			}
			if strings.EqualFold(strings.TrimSpace(val), "host") {
				pc.addFlag(DangerousFlag{Kind: FlagCgroupnsHost})
			}
			i += n
			continue
		case "--device":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for --device")
				return pc
			}
			src := val
			if idx := strings.IndexByte(val, ':'); idx > 0 {
				src = val[:idx]
			}
			pc.addFlag(DangerousFlag{Kind: FlagDevice, Name: src})
			i += n
			continue
		case "--volumes-from":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for --volumes-from")
				return pc
			}
			pc.addFlag(DangerousFlag{Kind: FlagVolumesFrom, Name: val})
			i += n
			continue
		case "-v", "--volume":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for " + flag)
				return pc
			}
			if !handleVolumeSpec(&pc, val) {
				pc.markIncomplete("malformed volume spec: " + val)
				return pc
			}
			i += n
			continue
		case "--mount":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for --mount")
				return pc
			}
			if !handleMountSpec(&pc, val) {
				pc.markIncomplete("malformed mount spec: " + val)
				return pc
			}
			i += n
			continue
		case "--env-file", "--label-file":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for " + flag)
				return pc
			}
			pc.addHostPath(val)
			i += n
			continue
		case "--cidfile":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for --cidfile")
				return pc
			}
			pc.addHostPath(val)
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
		case "--sysctl":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for --sysctl")
				return pc
			}
			handleSysctl(&pc, val)
			i += n
			continue
		case "--add-host":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for --add-host")
				return pc
			}
			handleAddHost(&pc, val)
			i += n
			continue
		case "--build-arg":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for --build-arg")
				return pc
			}
			handleBuildArg(&pc, val)
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
		// unrecognised boolean switch (e.g. --rm, -d, --detach, --read-only)
		i++
	}
	return pc
}

// flagValue resolves the value for a flag occurrence at args[i]. It returns
// the value, the number of argv slots consumed (1 for inline "=value", 2 for
// a following token), and whether a value was found at all. Per spec.md §8
// "parser completeness", the following token is consumed verbatim even if it
// begins with "-".
func flagValue(args []string, i int, hasInline bool, inlineVal string) (string, int, bool) {
	if hasInline {
		return inlineVal, 1, true
	}
	if i+1 >= len(args) {
		return "", 1, false
	}
	return args[i+1], 2, true
}
