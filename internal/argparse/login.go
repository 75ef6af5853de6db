package argparse

import "strings"

// parseLogin handles `docker login [OPTIONS] [SERVER]`. Login carries no
// host paths or dangerous flags; it exists as its own Subcommand tag so
// policy can apply image-whitelist-style rules distinctly if configured.
func parseLogin(args []string) ParsedCommand {
	pc := ParsedCommand{Subcommand: SubLogin}
	i := 0
	for i < len(args) {
		tok := args[i]
		if !strings.HasPrefix(tok, "-") {
			i++
			continue
		}
		flag, inlineVal, hasInline := splitFlagValue(tok)
		pc.addRawFlag(flag)
		switch flag {
		case "-u", "--username", "-p", "--password":
			_, n, ok := flagValue(args, i, hasInline, inlineVal)
			if !ok {
				pc.markIncomplete("missing value for " + flag)
				return pc
			}
			i += n
			continue
		}
		i++ // --password-stdin and other boolean switches
	}
	return pc
}
