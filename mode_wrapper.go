package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/nekoruri/safe-docker/internal/pathvalidate"
	"github.com/nekoruri/safe-docker/internal/policy"
)

// runWrapperMode substitutes for the real docker/docker-compose binary.
// Allow execs the real binary in place; deny prints a reason and exits
// non-zero; ask prompts on a controlling terminal or falls back to the
// configured non-interactive behaviour.
func runWrapperMode(argv []string) int {
	if os.Getenv("BYPASS") == "1" || os.Getenv("ACTIVE") == "1" {
		// ACTIVE=1 means this process was exec'd by a prior guard
		// invocation already; skip straight to the real binary to avoid
		// evaluating the same command twice through a self-referential
		// PATH entry.
		return execReal(resolveBinaryPath(loadConfigOrDefault()), argv)
	}

	dryRun := false
	verbose := false
	var dockerPathOverride string
	var rest []string
	for i := 0; i < len(argv); i++ {
		switch argv[i] {
		case "--dry-run":
			dryRun = true
		case "--verbose":
			verbose = true
		case "--docker-path":
			if i+1 >= len(argv) {
				fmt.Fprintln(os.Stderr, styleError("--docker-path requires a value"))
				return 1
			}
			i++
			dockerPathOverride = argv[i]
		default:
			rest = append(rest, argv[i])
		}
	}

	cfg := loadConfigOrDefault()
	if dockerPathOverride != "" {
		cfg.Wrapper.BinaryPath = dockerPathOverride
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, styleError("could not resolve the working directory"))
		return 1
	}

	home, err := pathvalidate.HomeDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, styleError("could not resolve a home directory to validate paths against"))
		return 1
	}

	// rest is already tokenized by the calling shell (this process was
	// exec'd in place of the real binary); parse it directly rather than
	// rejoining into a string and re-segmenting through shellseg.
	result := evaluateArgv(rest, cwd, home, cfg)
	d := result.Decision
	command := "docker " + strings.Join(rest, " ")

	switch d.Kind {
	case policy.Deny:
		fmt.Fprintln(os.Stderr, styleError("denied:")+" "+joinReasons(d.Reasons))
		if verbose {
			fmt.Fprintln(os.Stderr, styleDim("remediation: move the path inside your home directory, drop the flag, or adjust allowed_paths/allowed_images in the config file."))
		}
		if cfg.Audit.Enabled {
			emitAuditEvent(cfg, "wrapper", "", command, d, result)
		}
		return 1
	case policy.Ask:
		approved := resolveAsk(d, cfg, verbose)
		if cfg.Audit.Enabled {
			emitAuditEvent(cfg, "wrapper", "", command, d, result)
		}
		if !approved {
			return 1
		}
	}

	if dryRun {
		fmt.Println(styleDecision(d.Kind.String()) + ": " + joinReasons(d.Reasons))
		if cfg.Audit.Enabled && d.Kind == policy.Allow {
			emitAuditEvent(cfg, "wrapper", "", command, d, result)
		}
		return 0
	}

	// d.Kind == Allow here (Deny returned above, Ask either returned or was
	// approved): audit right before exec, since a successful exec replaces
	// this process and nothing after this line ever runs.
	if cfg.Audit.Enabled && d.Kind == policy.Allow {
		emitAuditEvent(cfg, "wrapper", "", command, d, result)
	}

	return execReal(resolveBinaryPath(cfg), rest)
}

// resolveAsk prompts on a controlling terminal and returns whether the user
// approved. With no controlling terminal it falls back to cfg's configured
// non-interactive behaviour, defaulting to deny.
func resolveAsk(d policy.Decision, cfg policy.Config, verbose bool) bool {
	fmt.Fprintln(os.Stderr, styleWarn("ask:")+" "+joinReasons(d.Reasons))
	if verbose {
		fmt.Fprintln(os.Stderr, styleDim("remediation: confirm this is intentional, or adjust the policy config to stop being asked."))
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		allow := cfg.Wrapper.AskInNonTTY == policy.AskBehaviourAllow
		if allow {
			fmt.Fprintln(os.Stderr, styleDim("no controlling terminal; ask_in_non_tty=allow, proceeding"))
		} else {
			fmt.Fprintln(os.Stderr, styleDim("no controlling terminal; ask_in_non_tty=deny, refusing"))
		}
		return allow
	}

	fmt.Fprint(os.Stderr, "proceed? [y/N] ")
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}

func resolveBinaryPath(cfg policy.Config) string {
	if cfg.Wrapper.BinaryPath != "" {
		return cfg.Wrapper.BinaryPath
	}
	return "docker"
}

// execReal replaces the current process image with the real binary,
// setting ACTIVE=1 so a self-referential PATH entry cannot recurse into the
// guard a second time.
func execReal(binaryPath string, argv []string) int {
	path, err := exec.LookPath(binaryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s: %v\n", styleError("safe-docker:"), "could not locate the wrapped binary", err)
		return 1
	}

	env := append(os.Environ(), "ACTIVE=1")
	fullArgv := append([]string{path}, argv...)
	if err := syscall.Exec(path, fullArgv, env); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", styleError("safe-docker: exec failed:"), err)
		return 1
	}
	return 0 // unreachable on success; syscall.Exec replaces the process image
}
