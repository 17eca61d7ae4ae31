package config

import (
	"time"

	"printkeeper/internal/logger"
)

// Config is the root configuration structure
type Config struct {
	Version   int             `yaml:"version"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Registry  RegistryConfig  `yaml:"registry"`
	Queues    QueueConfig     `yaml:"queues"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Sources   SourcesConfig   `yaml:"sources"`
	SNMP      SNMPConfig      `yaml:"snmp"`
	Readiness ReadinessConfig `yaml:"readiness"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Boot      BootConfig      `yaml:"boot"`
	Logging   logger.Config   `yaml:"logging"`
}

// ServerConfig holds the request-facing HTTP listener settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds history journal settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RegistryConfig holds identity registry locations
type RegistryConfig struct {
	Path         string `yaml:"path"`          // Primary, used only if its directory exists
	FallbackPath string `yaml:"fallback_path"` // User-writable alternate
}

// QueueConfig holds queue naming settings
type QueueConfig struct {
	Prefix string `yaml:"prefix"`
}

// DiscoveryConfig holds network scan settings
type DiscoveryConfig struct {
	Subnet        string   `yaml:"subnet,omitempty"` // Empty = derive from default gateway
	Port          int      `yaml:"port"`
	Timeout       Duration `yaml:"timeout"`      // Total wall-clock ceiling
	HostTimeout   Duration `yaml:"host_timeout"` // Per-host connect timeout
	MaxConcurrent int      `yaml:"max_concurrent"`
	SettleDelay   Duration `yaml:"settle_delay"` // Wait after poking a host before reading the neighbor cache
}

// SNMPConfig holds settings for the SNMP hardware address lookup
type SNMPConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Community string   `yaml:"community"`
	Port      int      `yaml:"port"`
	Timeout   Duration `yaml:"timeout"`
}

// ReadinessConfig holds queue readiness settings
type ReadinessConfig struct {
	Timeout   Duration `yaml:"timeout"`
	Remediate bool     `yaml:"remediate"`
}

// DispatchConfig holds job retry policies
type DispatchConfig struct {
	MaxAttempts     int      `yaml:"max_attempts"`
	RetryDelay      Duration `yaml:"retry_delay"`
	BootMaxAttempts int      `yaml:"boot_max_attempts"`
	BootRetryDelay  Duration `yaml:"boot_retry_delay"`
}

// BootConfig holds startup sequencing settings
type BootConfig struct {
	Delay          Duration `yaml:"delay"`           // Settle before the first discovery pass
	StabilizeDelay Duration `yaml:"stabilize_delay"` // Wait after reconciling before notifying
	NetworkWait    Duration `yaml:"network_wait"`
	SpoolerWait    Duration `yaml:"spooler_wait"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
