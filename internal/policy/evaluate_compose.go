package policy

import (
	"fmt"

	"github.com/nekoruri/safe-docker/internal/argparse"
	"github.com/nekoruri/safe-docker/internal/compose"
	"github.com/nekoruri/safe-docker/internal/pathvalidate"
)

// EvaluateCompose folds a compose.Analysis into a Decision with the same
// deny > ask > allow precedence as Evaluate, plus compose's two
// path-classes with non-default severity: env_file_paths deny on escape,
// include_paths merely ask.
func EvaluateCompose(a compose.Analysis, cfg Config, home string) Decision {
	var denyReasons, askReasons []string

	pc := argparse.ParsedCommand{HostPaths: a.HostPaths, Flags: a.Flags}
	base := Evaluate(pc, cfg, home)
	switch base.Kind {
	case Deny:
		denyReasons = append(denyReasons, base.Reasons...)
	case Ask:
		askReasons = append(askReasons, base.Reasons...)
	}

	for _, raw := range a.EnvFilePaths {
		class := pathvalidate.Classify(raw, home, cfg.AllowedPaths, cfg.SensitivePaths)
		switch class.Kind {
		case pathvalidate.KindOutsideHome:
			denyReasons = append(denyReasons, fmt.Sprintf("env_file %q resolves to %q, outside the home directory", raw, class.Resolved))
		case pathvalidate.KindUnexpandable:
			askReasons = append(askReasons, fmt.Sprintf("env_file %q %s", raw, class.Reason))
		case pathvalidate.KindSensitiveWithinHome:
			askReasons = append(askReasons, fmt.Sprintf("env_file %q touches the sensitive path %q", raw, class.Subpath))
		}
	}

	for _, raw := range a.IncludePaths {
		class := pathvalidate.Classify(raw, home, cfg.AllowedPaths, cfg.SensitivePaths)
		switch class.Kind {
		case pathvalidate.KindOutsideHome:
			askReasons = append(askReasons, fmt.Sprintf("include %q resolves to %q, outside the home directory", raw, class.Resolved))
		case pathvalidate.KindUnexpandable:
			askReasons = append(askReasons, fmt.Sprintf("include %q %s", raw, class.Reason))
		}
	}

	if len(denyReasons) > 0 {
		return Decision{Kind: Deny, Reasons: dedup(denyReasons)}
	}
	if len(askReasons) > 0 {
		return Decision{Kind: Ask, Reasons: dedup(askReasons)}
	}
	return Decision{Kind: Allow}
}
