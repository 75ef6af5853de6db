package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run dispatches to a root command when argv[0] matches one, otherwise
// auto-detects hook vs. wrapper mode: stdin connected to a pipe with no
// docker-style argv at all reads as a PreToolUse hook invocation; any argv
// is treated as a direct substitution for the real binary.
func run(argv []string) int {
	if len(argv) > 0 {
		if handled, code := dispatchRootCommand(argv[0], argv[1:]); handled {
			return code
		}
	}

	if len(argv) == 0 && !isTerminalStdin() {
		return runHookMode()
	}

	return runWrapperMode(argv)
}

func isTerminalStdin() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return true
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
