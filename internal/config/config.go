// Package config provides configuration management for printkeeper.
//
// Settings come from three layers, later layers winning:
// - the YAML config file, if one is found
// - environment variables (PRINTER_BOOT_DELAY, PRINT_MAX_RETRIES, ...)
// - command-line flags
//
// Config file locations (priority order):
//  1. $PRINTKEEPER_CONFIG
//  2. ./printkeeper.yaml
//  3. ~/.config/printkeeper/config.yaml
//  4. /etc/printkeeper/config.yaml
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultRegistryPath = "/etc/cups/printer_mac_registry.json"
	DefaultServerPort   = 3006
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Server:  ServerConfig{Host: "0.0.0.0", Port: DefaultServerPort},
		Database: DatabaseConfig{
			Path: "./printkeeper.db",
		},
		Registry: RegistryConfig{
			Path:         DefaultRegistryPath,
			FallbackPath: defaultFallbackRegistryPath(),
		},
		Queues: QueueConfig{Prefix: "printer"},
		Discovery: DiscoveryConfig{
			Port:          9100,
			Timeout:       Duration(180 * time.Second),
			HostTimeout:   Duration(time.Second),
			MaxConcurrent: 64,
			SettleDelay:   Duration(500 * time.Millisecond),
		},
		Sources: DefaultSources(),
		SNMP: SNMPConfig{
			Enabled:   true,
			Community: "public",
			Port:      161,
			Timeout:   Duration(2 * time.Second),
		},
		Readiness: ReadinessConfig{
			Timeout:   Duration(5 * time.Second),
			Remediate: true,
		},
		Dispatch: DispatchConfig{
			MaxAttempts:     3,
			RetryDelay:      Duration(2 * time.Second),
			BootMaxAttempts: 3,
			BootRetryDelay:  Duration(10 * time.Second),
		},
		Boot: BootConfig{
			Delay:          Duration(30 * time.Second),
			StabilizeDelay: Duration(5 * time.Second),
			NetworkWait:    Duration(60 * time.Second),
			SpoolerWait:    Duration(60 * time.Second),
		},
		Logging: defaultLogging(),
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	d := DefaultConfig()

	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Database.Path == "" {
		c.Database.Path = d.Database.Path
	}
	if c.Registry.Path == "" {
		c.Registry.Path = d.Registry.Path
	}
	if c.Registry.FallbackPath == "" {
		c.Registry.FallbackPath = d.Registry.FallbackPath
	}
	if c.Queues.Prefix == "" {
		c.Queues.Prefix = d.Queues.Prefix
	}
	if c.Discovery.Port == 0 {
		c.Discovery.Port = d.Discovery.Port
	}
	if c.Discovery.MaxConcurrent == 0 {
		c.Discovery.MaxConcurrent = d.Discovery.MaxConcurrent
	}
	if c.SNMP.Community == "" {
		c.SNMP.Community = d.SNMP.Community
	}
	if c.SNMP.Port == 0 {
		c.SNMP.Port = d.SNMP.Port
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

// Clamp forces numeric settings into sane bounds
func (c *Config) Clamp() {
	c.Dispatch.MaxAttempts = clampInt(c.Dispatch.MaxAttempts, 1, 20)
	c.Dispatch.BootMaxAttempts = clampInt(c.Dispatch.BootMaxAttempts, 1, 20)
	c.Dispatch.RetryDelay = clampDuration(c.Dispatch.RetryDelay, 0, 5*time.Minute)
	c.Dispatch.BootRetryDelay = clampDuration(c.Dispatch.BootRetryDelay, 0, 5*time.Minute)

	c.Readiness.Timeout = clampDuration(c.Readiness.Timeout, 100*time.Millisecond, time.Minute)
	c.Discovery.HostTimeout = clampDuration(c.Discovery.HostTimeout, 100*time.Millisecond, time.Minute)
	c.Discovery.Timeout = clampDuration(c.Discovery.Timeout, time.Second, 30*time.Minute)
	c.Discovery.SettleDelay = clampDuration(c.Discovery.SettleDelay, 0, 10*time.Second)
	c.Discovery.MaxConcurrent = clampInt(c.Discovery.MaxConcurrent, 1, 1024)
	c.Discovery.Port = clampInt(c.Discovery.Port, 1, 65535)
	c.SNMP.Timeout = clampDuration(c.SNMP.Timeout, 100*time.Millisecond, time.Minute)

	c.Boot.Delay = clampDuration(c.Boot.Delay, 0, 10*time.Minute)
	c.Boot.StabilizeDelay = clampDuration(c.Boot.StabilizeDelay, 0, 10*time.Minute)
	c.Boot.NetworkWait = clampDuration(c.Boot.NetworkWait, 0, 10*time.Minute)
	c.Boot.SpoolerWait = clampDuration(c.Boot.SpoolerWait, 0, 10*time.Minute)

	c.Server.Port = clampInt(c.Server.Port, 1, 65535)
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Listen: %s, Registry: %s (fallback %s)\n",
		c.Addr(), c.Registry.Path, c.Registry.FallbackPath)
	summary += fmt.Sprintf("Dispatch: %d attempts / %s, boot %d attempts / %s, readiness timeout %s\n",
		c.Dispatch.MaxAttempts, c.Dispatch.RetryDelay.Duration(),
		c.Dispatch.BootMaxAttempts, c.Dispatch.BootRetryDelay.Duration(),
		c.Readiness.Timeout.Duration())
	summary += fmt.Sprintf("Enabled sources (%d):", len(c.Sources.Enabled()))
	for _, s := range c.Sources.Enabled() {
		summary += fmt.Sprintf(" %s", s.Name)
	}

	return summary
}

func defaultFallbackRegistryPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "printer-server", "printer_mac_registry.json")
	}
	return "printer_mac_registry.json"
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func clampDuration(d Duration, lo, hi time.Duration) Duration {
	return Duration(min(max(d.Duration(), lo), hi))
}
