package argparse

import "strings"

// parseExec handles `docker exec [OPTIONS] CONTAINER COMMAND [ARG...]`.
// Once the container positional is seen, remaining tokens belong to the
// exec'd command and are not docker's own flags.
func parseExec(args []string) ParsedCommand {
	pc := ParsedCommand{Subcommand: SubExec}
	i := 0
	containerSeen := false
	for i < len(args) {
		tok := args[i]
		if !strings.HasPrefix(tok, "-") {
			containerSeen = true
			i++
			break
		}

		flag, inlineVal, hasInline := splitFlagValue(tok)
		pc.addRawFlag(flag)
		switch flag {
		case "--privileged":
			pc.addFlag(DangerousFlag{Kind: FlagPrivileged})
			i++
			continue
		case "--env-file":
			val, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for --env-file")
				return pc
			}
			pc.addHostPath(val)
			i += n
			continue
		case "-e", "--env", "-u", "--user", "-w", "--workdir", "--detach-keys":
			_, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for " + flag)
				return pc
			}
			i += n
			continue
		}
		// -d/--detach, -i/--interactive, -t/--tty
		i++
	}
	_ = containerSeen
	return pc
}
