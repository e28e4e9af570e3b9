// Package settings loads kar's defaults from KAR_* environment variables.
// Command-line flags override every value here.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Settings are the values kar falls back to when no flag is given.
type Settings struct {
	ConfigPath    string `env:"KAR_CONFIG"         envDefault:"~/.config/kar/config.ts"`
	Profile       string `env:"KAR_PROFILE"        envDefault:"kar"`
	KarabinerPath string `env:"KAR_KARABINER_PATH" envDefault:"~/.config/karabiner/karabiner.json"`
	Runtime       string `env:"KAR_RUNTIME"        envDefault:"auto"`
	StrictLayers  bool   `env:"KAR_STRICT_LAYERS"`
	Debug         bool   `env:"KAR_DEBUG"`
}

// Load parses the environment and expands ~ in path settings.
func Load() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	if os.Getenv("DEBUG") == "true" {
		s.Debug = true
	}

	var err error
	if s.ConfigPath, err = ExpandPath(s.ConfigPath); err != nil {
		return Settings{}, err
	}
	if s.KarabinerPath, err = ExpandPath(s.KarabinerPath); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// ConfigDir returns the directory holding the config file.
func (s Settings) ConfigDir() string {
	return filepath.Dir(s.ConfigPath)
}
