package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/nekoruri/safe-docker/internal/policy"
)

// tomlConfig is the on-disk shape of ~/.config/safe-docker/config.toml. It
// mirrors policy.Config field-for-field but carries toml tags and the
// omitempty discipline a hand-edited file needs.
type tomlConfig struct {
	SchemaVersion       int      `toml:"schema_version"`
	AllowedPaths        []string `toml:"allowed_paths,omitempty"`
	SensitivePaths      []string `toml:"sensitive_paths,omitempty"`
	BlockedFlags        []string `toml:"blocked_flags,omitempty"`
	BlockedCapabilities []string `toml:"blocked_capabilities,omitempty"`
	AllowedImages       []string `toml:"allowed_images,omitempty"`
	BlockDockerSocket   *bool    `toml:"block_docker_socket,omitempty"`

	Wrapper tomlWrapperConfig `toml:"wrapper,omitempty"`
	Audit   tomlAuditConfig   `toml:"audit,omitempty"`
}

type tomlWrapperConfig struct {
	BinaryPath  string `toml:"binary_path,omitempty"`
	AskInNonTTY string `toml:"ask_in_non_tty,omitempty"`
}

type tomlAuditConfig struct {
	Enabled   bool   `toml:"enabled,omitempty"`
	Format    string `toml:"format,omitempty"`
	JSONLPath string `toml:"jsonl_path,omitempty"`
	OTLPPath  string `toml:"otlp_path,omitempty"`
}

func defaultTOMLConfig() tomlConfig {
	d := policy.Default()
	blockSocket := d.BlockDockerSocket
	return tomlConfig{
		SchemaVersion:       schemaVersion,
		SensitivePaths:      d.SensitivePaths,
		BlockedCapabilities: d.BlockedCapabilities,
		BlockDockerSocket:   &blockSocket,
		Wrapper: tomlWrapperConfig{
			AskInNonTTY: string(d.Wrapper.AskInNonTTY),
		},
		Audit: tomlAuditConfig{
			Format: string(d.Audit.Format),
		},
	}
}

// toPolicy resolves a decoded tomlConfig into the evaluator's Config,
// layering the WRAPPED_BINARY_PATH, ASK_BEHAVIOUR_IN_NON_TTY and AUDIT
// environment sentinels on top of whatever the file specified.
func (c tomlConfig) toPolicy() policy.Config {
	cfg := policy.Default()
	if len(c.AllowedPaths) > 0 {
		cfg.AllowedPaths = c.AllowedPaths
	}
	if len(c.SensitivePaths) > 0 {
		cfg.SensitivePaths = c.SensitivePaths
	}
	if len(c.BlockedFlags) > 0 {
		cfg.BlockedFlags = c.BlockedFlags
	}
	if len(c.BlockedCapabilities) > 0 {
		cfg.BlockedCapabilities = c.BlockedCapabilities
	}
	if len(c.AllowedImages) > 0 {
		cfg.AllowedImages = c.AllowedImages
	}
	if c.BlockDockerSocket != nil {
		cfg.BlockDockerSocket = *c.BlockDockerSocket
	}

	cfg.Wrapper.BinaryPath = c.Wrapper.BinaryPath
	switch policy.NonTTYAskBehaviour(strings.ToLower(strings.TrimSpace(c.Wrapper.AskInNonTTY))) {
	case policy.AskBehaviourAllow:
		cfg.Wrapper.AskInNonTTY = policy.AskBehaviourAllow
	case policy.AskBehaviourDeny:
		cfg.Wrapper.AskInNonTTY = policy.AskBehaviourDeny
	}

	cfg.Audit.Enabled = c.Audit.Enabled
	switch policy.AuditFormat(strings.ToLower(strings.TrimSpace(c.Audit.Format))) {
	case policy.AuditFormatOTLP:
		cfg.Audit.Format = policy.AuditFormatOTLP
	case policy.AuditFormatBoth:
		cfg.Audit.Format = policy.AuditFormatBoth
	case policy.AuditFormatJSONL:
		cfg.Audit.Format = policy.AuditFormatJSONL
	}
	cfg.Audit.JSONLPath = c.Audit.JSONLPath
	cfg.Audit.OTLPPath = c.Audit.OTLPPath

	if override := strings.TrimSpace(os.Getenv("WRAPPED_BINARY_PATH")); override != "" {
		cfg.Wrapper.BinaryPath = override
	}
	if override := strings.TrimSpace(os.Getenv("ASK_BEHAVIOUR_IN_NON_TTY")); override != "" {
		switch policy.NonTTYAskBehaviour(strings.ToLower(override)) {
		case policy.AskBehaviourAllow:
			cfg.Wrapper.AskInNonTTY = policy.AskBehaviourAllow
		case policy.AskBehaviourDeny:
			cfg.Wrapper.AskInNonTTY = policy.AskBehaviourDeny
		}
	}
	if os.Getenv("AUDIT") == "1" {
		cfg.Audit.Enabled = true
	}

	if cfg.Audit.Enabled {
		if dir, err := auditDir(); err == nil {
			if cfg.Audit.JSONLPath == "" {
				cfg.Audit.JSONLPath = filepath.Join(dir, "audit.jsonl")
			}
			if cfg.Audit.OTLPPath == "" {
				cfg.Audit.OTLPPath = filepath.Join(dir, "audit.otlp.jsonl")
			}
		}
	}
	return cfg
}

func auditDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "safe-docker"), nil
}

func configPath() (string, error) {
	if override := strings.TrimSpace(os.Getenv("SAFE_DOCKER_CONFIG")); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "safe-docker", "config.toml"), nil
}

var (
	configWarnOnceMu   sync.Mutex
	configWarnOnceSeen = map[string]struct{}{}
)

func warnConfigLoadFailedOnce(err error) {
	if err == nil {
		return
	}
	key := err.Error()
	configWarnOnceMu.Lock()
	_, seen := configWarnOnceSeen[key]
	if !seen {
		configWarnOnceSeen[key] = struct{}{}
	}
	configWarnOnceMu.Unlock()
	if seen {
		return
	}
	warnf("config load failed, falling back to defaults: %v", err)
}

// loadConfig reads and decodes the TOML config file. A missing file is not
// an error: it resolves to the schema default. A malformed file is an
// error so --check-config can surface it; loadConfigOrDefault swallows it.
// Unknown keys are not an error: they are reported with a warning and
// ignored.
func loadConfig(path string) (tomlConfig, error) {
	cfg := defaultTOMLConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return defaultTOMLConfig(), fmt.Errorf("read config %s: %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var unknown *toml.StrictMissingError
		if !errors.As(err, &unknown) {
			return defaultTOMLConfig(), fmt.Errorf("parse config %s: %w", path, err)
		}
		warnf("config %s: ignoring unknown keys:\n%s", path, unknown.String())
		cfg = defaultTOMLConfig()
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return defaultTOMLConfig(), fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return cfg, nil
}

// loadConfigOrDefault loads the policy configuration the wrapper/hook path
// actually runs with. Any load failure is silent except for a one-time
// warning: a guard that cannot read its own config must still fail safe by
// running with the fail-safe defaults, never by refusing to run at all.
func loadConfigOrDefault() policy.Config {
	path, err := configPath()
	if err != nil {
		warnConfigLoadFailedOnce(err)
		return defaultTOMLConfig().toPolicy()
	}
	cfg, err := loadConfig(path)
	if err != nil {
		warnConfigLoadFailedOnce(err)
		return defaultTOMLConfig().toPolicy()
	}
	return cfg.toPolicy()
}
