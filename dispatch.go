package main

// rootCommandHandler handles one top-level safe-docker command and returns
// the process exit code.
type rootCommandHandler func(args []string) int

// dispatchRootCommand looks up cmd in the root command table and runs it.
// The bool return reports whether cmd was recognised at all — an argv that
// doesn't match a root command falls through to hook/wrapper auto-detection
// rather than erroring, since "docker" itself is not a registered command.
func dispatchRootCommand(cmd string, args []string) (bool, int) {
	handlers := rootCommandHandlers()
	handler, ok := handlers[cmd]
	if !ok {
		return false, 0
	}
	return true, handler(args)
}

func rootCommandHandlers() map[string]rootCommandHandler {
	handlers := make(map[string]rootCommandHandler, 8)
	register := func(handler rootCommandHandler, names ...string) {
		for _, name := range names {
			handlers[name] = handler
		}
	}

	register(func(_ []string) int {
		printVersion()
		return 0
	}, "--version", "-v", "version")

	register(func(_ []string) int {
		usage()
		return 0
	}, "--help", "-h", "help")

	register(cmdCheckConfig, "--check-config")

	register(cmdSetup, "setup")

	return handlers
}
