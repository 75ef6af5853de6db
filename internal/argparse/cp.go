package argparse

import "strings"

// cpBooleanFlags are the boolean switches `docker cp` accepts; anything else
// is an unexpected flag we don't need to model for host-path purposes.
var cpBooleanFlags = map[string]bool{
	"-a": true, "--archive": true,
	"-L": true, "--follow-link": true,
	"-q": true, "--quiet": true,
}

// parseCp handles `docker cp SRC DEST`, where exactly one side carries a
// `container:` prefix.
func parseCp(args []string) ParsedCommand {
	pc := ParsedCommand{Subcommand: SubCp}
	var positionals []string
	for _, tok := range args {
		if cpBooleanFlags[tok] {
			pc.addRawFlag(tok)
			continue
		}
		if strings.HasPrefix(tok, "-") {
			pc.addRawFlag(tok)
			continue
		}
		positionals = append(positionals, tok)
	}
	if len(positionals) != 2 {
		pc.markIncomplete("docker cp requires exactly two paths")
		return pc
	}
	src, dst := positionals[0], positionals[1]
	srcIsContainer := isContainerRef(src)
	dstIsContainer := isContainerRef(dst)
	switch {
	case srcIsContainer == dstIsContainer:
		pc.markIncomplete("docker cp requires exactly one container: side")
		return pc
	case srcIsContainer:
		pc.addHostPath(dst)
	default:
		pc.addHostPath(src)
	}
	return pc
}

// isContainerRef reports whether a docker cp positional argument is in
// `CONTAINER:PATH` form rather than a bare host path. A colon whose prefix
// looks like a filesystem path (contains a separator, or is a Windows drive
// letter) is not a container reference.
func isContainerRef(s string) bool {
	idx := strings.IndexByte(s, ':')
	if idx <= 0 {
		return false
	}
	prefix := s[:idx]
	if strings.ContainsAny(prefix, "/\\") {
		return false
	}
	if len(prefix) == 1 && isDriveLetter(prefix[0]) {
		return false
	}
	return true
}
