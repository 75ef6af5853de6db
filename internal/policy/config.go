package policy

// NonTTYAskBehaviour governs how an Ask resolves when the wrapper has no
// controlling terminal to prompt on.
type NonTTYAskBehaviour string

const (
	AskBehaviourDeny  NonTTYAskBehaviour = "deny"
	AskBehaviourAllow NonTTYAskBehaviour = "allow"
)

// AuditFormat selects the audit sink's line encoding.
type AuditFormat string

const (
	AuditFormatJSONL AuditFormat = "jsonl"
	AuditFormatOTLP  AuditFormat = "otlp"
	AuditFormatBoth  AuditFormat = "both"
)

// WrapperConfig holds the options specific to wrapper mode.
type WrapperConfig struct {
	BinaryPath  string
	AskInNonTTY NonTTYAskBehaviour
}

// AuditConfig holds the options specific to the audit sink.
type AuditConfig struct {
	Enabled   bool
	Format    AuditFormat
	JSONLPath string
	OTLPPath  string
}

// Config is the fully-resolved policy configuration, as loaded from TOML and
// defaulted by the root config loader.
type Config struct {
	AllowedPaths        []string
	SensitivePaths      []string
	BlockedFlags        []string
	BlockedCapabilities []string
	AllowedImages       []string
	BlockDockerSocket   bool
	Wrapper             WrapperConfig
	Audit               AuditConfig
}

// Default returns the fail-safe default configuration: no image whitelist,
// the docker socket blocked, ask denied when there is no TTY to prompt on.
func Default() Config {
	return Config{
		BlockDockerSocket: true,
		SensitivePaths:    []string{".ssh", ".aws", ".gnupg", ".kube", ".docker/config.json"},
		BlockedCapabilities: []string{
			"ALL", "SYS_ADMIN", "SYS_MODULE", "SYS_PTRACE", "SYS_RAWIO",
			"NET_ADMIN", "DAC_READ_SEARCH", "DAC_OVERRIDE", "SYS_BOOT",
		},
		Wrapper: WrapperConfig{
			AskInNonTTY: AskBehaviourDeny,
		},
		Audit: AuditConfig{
			Enabled: false,
			Format:  AuditFormatJSONL,
		},
	}
}
