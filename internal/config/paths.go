package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath is the environment variable for explicit config path
	EnvConfigPath = "PRINTKEEPER_CONFIG"
	// ConfigFileName is the default config file name
	ConfigFileName = "printkeeper.yaml"
	// ConfigDirName is the config directory name under XDG
	ConfigDirName = "printkeeper"
)

// FindConfigPath searches for config file in priority order:
// 1. $PRINTKEEPER_CONFIG (explicit path)
// 2. ./printkeeper.yaml (working directory)
// 3. $XDG_CONFIG_HOME/printkeeper/config.yaml
// 4. ~/.config/printkeeper/config.yaml
// 5. /etc/printkeeper/config.yaml
//
// Returns empty string if no config file found
func FindConfigPath() string {
	for _, path := range configCandidates() {
		if fileExists(path) {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

func configCandidates() []string {
	var candidates []string
	if path := os.Getenv(EnvConfigPath); path != "" {
		candidates = append(candidates, path)
	}
	candidates = append(candidates, ConfigFileName)
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		candidates = append(candidates, filepath.Join(xdgHome, ConfigDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		candidates = append(candidates, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return append(candidates, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// RegistryPaths returns the registry path to use first and its alternate.
// The primary path is only offered when its directory already exists.
// Whether it can be written is decided by the registry before its first read.
func (c *Config) RegistryPaths() (primary, fallback string) {
	primary, fallback = c.Registry.Path, c.Registry.FallbackPath
	if primary == "" || !dirExists(filepath.Dir(primary)) {
		return fallback, ""
	}
	return primary, fallback
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir(configPath string) error {
	dir := filepath.Dir(configPath)
	return os.MkdirAll(dir, 0755)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
