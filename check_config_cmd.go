package main

import "fmt"

// cmdCheckConfig implements `safe-docker --check-config [--config PATH]`:
// load and parse the TOML config file, reporting success or the parse
// error. A missing file counts as success (the defaults apply); a malformed
// file is reported and fails the command instead of falling back to
// defaults the way the runtime path does.
func cmdCheckConfig(args []string) int {
	path, err := checkConfigPath(args)
	if err != nil {
		fmt.Println(styleError(err.Error()))
		return 1
	}

	cfg, err := loadConfig(path)
	if err != nil {
		fmt.Println(styleError("config invalid: ") + err.Error())
		return 1
	}

	infof("config OK: %s", path)
	if len(cfg.AllowedImages) > 0 {
		infof("allowed_images: %d entries", len(cfg.AllowedImages))
	}
	if len(cfg.BlockedCapabilities) > 0 {
		infof("blocked_capabilities: %d entries", len(cfg.BlockedCapabilities))
	}
	return 0
}

func checkConfigPath(args []string) (string, error) {
	for i := 0; i < len(args); i++ {
		if args[i] == "--config" {
			if i+1 >= len(args) {
				return "", fmt.Errorf("--config requires a value")
			}
			return args[i+1], nil
		}
	}
	return configPath()
}
