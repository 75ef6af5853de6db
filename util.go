package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/term"
)

func usage() {
	fmt.Print(colorizeHelp(`safe-docker [args...]

Pre-execution policy guard for container runtime commands. Runs either as a
PreToolUse hook (reads a tool-invocation JSON message from stdin) or as a
drop-in wrapper for the real docker/docker-compose binary.

Usage:
  safe-docker <docker args...>              (wrapper mode)
  safe-docker --help | -h
  safe-docker --version | -v
  safe-docker --dry-run <docker args...>
  safe-docker --verbose <docker args...>
  safe-docker --docker-path PATH <docker args...>
  safe-docker --check-config [--config PATH]
  safe-docker setup [--target DIR] [--force]

Flags:
  --dry-run            evaluate and print the decision only; do not exec
  --verbose            include remediation tips in the decision reason
  --docker-path PATH   override the wrapped binary location
  --check-config       validate the TOML config file and exit
  --config PATH        config file path for --check-config

Environment:
  HOME                       resolves the scope a path is validated against
  WRAPPED_BINARY_PATH        overrides config for the real binary location
  ASK_BEHAVIOUR_IN_NON_TTY   deny|allow — resolves Ask with no controlling terminal
  BYPASS=1                   skip the guard entirely (wrapper mode only)
  ACTIVE=1                   internal recursion sentinel, set before exec
  AUDIT=1                    force audit logging on regardless of config
  ENV                        deployment environment label recorded in audit events
`))
}

const appVersion = "v0.1.0"

func printVersion() {
	fmt.Println(appVersion)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, styleError(err.Error()))
	os.Exit(1)
}

func printUsage(line string) {
	raw := strings.TrimSpace(line)
	if strings.HasPrefix(raw, "usage:") {
		rest := strings.TrimSpace(strings.TrimPrefix(raw, "usage:"))
		fmt.Printf("%s %s\n", styleUsage("usage:"), rest)
		return
	}
	fmt.Println(styleUsage(raw))
}

func printUnknown(kind, cmd string) {
	kind = strings.TrimSpace(kind)
	if kind != "" {
		kind += " "
	}
	fmt.Fprintf(os.Stderr, "%s %s%s\n", styleError("unknown"), kind+"command:", styleCmd(cmd))
}

func warnf(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, styleWarn("warning:")+" "+fmt.Sprintf(format, args...))
}

func infof(format string, args ...interface{}) {
	fmt.Println(styleInfo(fmt.Sprintf(format, args...)))
}

var ansiEnabled = initAnsiEnabled()

func initAnsiEnabled() bool {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("TERM")), "dumb") {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func ansi(codes ...string) string {
	return "\x1b[" + strings.Join(codes, ";") + "m"
}

func colorize(s string, codes ...string) string {
	if !ansiEnabled || s == "" {
		return s
	}
	return ansi(codes...) + s + ansi("0")
}

func styleHeading(s string) string { return colorize(s, "1", "36") }
func styleCmd(s string) string     { return colorize(s, "1", "32") }
func styleFlag(s string) string    { return colorize(s, "33") }
func styleArg(s string) string     { return colorize(s, "35") }
func styleDim(s string) string     { return colorize(s, "90") }
func styleInfo(s string) string    { return colorize(s, "36") }
func styleSuccess(s string) string { return colorize(s, "32") }
func styleWarn(s string) string    { return colorize(s, "33") }
func styleError(s string) string   { return colorize(s, "31") }
func styleUsage(s string) string   { return colorize(s, "1", "33") }

func styleDecision(kind string) string {
	switch strings.ToLower(kind) {
	case "allow":
		return styleSuccess(kind)
	case "ask":
		return styleWarn(kind)
	case "deny":
		return styleError(kind)
	default:
		return kind
	}
}

var (
	helpSectionRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 /-]*:$`)
	helpFlagRe    = regexp.MustCompile(`--[a-zA-Z0-9-]+`)
	helpArgRe     = regexp.MustCompile(`<[^>]+>`)
)

func colorizeHelp(text string) string {
	if !ansiEnabled {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if helpSectionRe.MatchString(trimmed) {
			prefix := line[:len(line)-len(strings.TrimLeft(line, " "))]
			lines[i] = prefix + styleHeading(trimmed)
			continue
		}
		line = helpFlagRe.ReplaceAllStringFunc(line, styleFlag)
		line = helpArgRe.ReplaceAllStringFunc(line, styleArg)
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
