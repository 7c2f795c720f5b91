package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvConfigPath overrides config discovery.
const EnvConfigPath = "CURSOR_VOICE_CONFIG"

// Discover finds the config file. Priority order: explicit path (--config),
// $CURSOR_VOICE_CONFIG, ~/.config/cursor-voice/config.yaml, ./config.yaml.
func Discover(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	var checked, candidates []string
	if p := os.Getenv(EnvConfigPath); p != "" {
		candidates = append(candidates, p)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "cursor-voice", "config.yaml"))
	}
	candidates = append(candidates, "config.yaml")

	for _, c := range candidates {
		checked = append(checked, c)
		if pathExists(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("no config found (checked: %v)", checked)
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
