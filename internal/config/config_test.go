package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Server.Port != 3006 {
		t.Errorf("Server.Port = %d, want 3006", cfg.Server.Port)
	}
	if cfg.Dispatch.MaxAttempts != 3 || cfg.Dispatch.RetryDelay.Duration() != 2*time.Second {
		t.Errorf("Dispatch = %+v, want 3 attempts / 2s", cfg.Dispatch)
	}
	if cfg.Dispatch.BootRetryDelay.Duration() != 10*time.Second {
		t.Errorf("BootRetryDelay = %s, want 10s", cfg.Dispatch.BootRetryDelay.Duration())
	}
	if cfg.Readiness.Timeout.Duration() != 5*time.Second {
		t.Errorf("Readiness.Timeout = %s, want 5s", cfg.Readiness.Timeout.Duration())
	}
	if cfg.Boot.Delay.Duration() != 30*time.Second {
		t.Errorf("Boot.Delay = %s, want 30s", cfg.Boot.Delay.Duration())
	}
	if cfg.Registry.Path != DefaultRegistryPath {
		t.Errorf("Registry.Path = %s, want %s", cfg.Registry.Path, DefaultRegistryPath)
	}
	if !strings.HasSuffix(cfg.Registry.FallbackPath, filepath.Join("printer-server", "printer_mac_registry.json")) {
		t.Errorf("Registry.FallbackPath = %s", cfg.Registry.FallbackPath)
	}
}

func TestApplyEnvFrom(t *testing.T) {
	env := map[string]string{
		EnvBootDelay:        "12",
		EnvMaxRetries:       "5",
		EnvRetryDelay:       "0.5",
		EnvReadinessTimeout: "3",
		EnvServerPort:       "8080",
		EnvSNMPCommunity:    "private",
		EnvLogLevel:         "debug",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := DefaultConfig()
	if err := cfg.ApplyEnvFrom(lookup); err != nil {
		t.Fatalf("ApplyEnvFrom() error: %v", err)
	}

	if cfg.Boot.Delay.Duration() != 12*time.Second {
		t.Errorf("Boot.Delay = %s, want 12s", cfg.Boot.Delay.Duration())
	}
	if cfg.Dispatch.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.Dispatch.MaxAttempts)
	}
	if cfg.Dispatch.RetryDelay.Duration() != 500*time.Millisecond {
		t.Errorf("RetryDelay = %s, want 500ms", cfg.Dispatch.RetryDelay.Duration())
	}
	if cfg.Readiness.Timeout.Duration() != 3*time.Second {
		t.Errorf("Readiness.Timeout = %s, want 3s", cfg.Readiness.Timeout.Duration())
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.SNMP.Community != "private" {
		t.Errorf("SNMP.Community = %s, want private", cfg.SNMP.Community)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
}

func TestApplyEnvFromMalformed(t *testing.T) {
	env := map[string]string{
		EnvMaxRetries: "lots",
		EnvRetryDelay: "4",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := DefaultConfig()
	err := cfg.ApplyEnvFrom(lookup)
	if err == nil || !strings.Contains(err.Error(), EnvMaxRetries) {
		t.Fatalf("ApplyEnvFrom() error = %v, want mention of %s", err, EnvMaxRetries)
	}
	if cfg.Dispatch.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want default 3", cfg.Dispatch.MaxAttempts)
	}
	if cfg.Dispatch.RetryDelay.Duration() != 4*time.Second {
		t.Errorf("RetryDelay = %s, want 4s (valid values still apply)", cfg.Dispatch.RetryDelay.Duration())
	}
}

func TestApplyEnvFromRejectsUnrepresentableSeconds(t *testing.T) {
	for _, v := range []string{"NaN", "Inf", "-Inf", "1e30", "-1e30"} {
		t.Run(v, func(t *testing.T) {
			cfg := DefaultConfig()
			want := cfg.Dispatch.RetryDelay
			err := cfg.ApplyEnvFrom(func(key string) (string, bool) {
				if key == EnvRetryDelay {
					return v, true
				}
				return "", false
			})
			if err == nil || !strings.Contains(err.Error(), EnvRetryDelay) {
				t.Fatalf("ApplyEnvFrom(%s) error = %v, want mention of %s", v, err, EnvRetryDelay)
			}
			if cfg.Dispatch.RetryDelay != want {
				t.Errorf("RetryDelay = %s, want unchanged %s", cfg.Dispatch.RetryDelay.Duration(), want.Duration())
			}
		})
	}
}

func TestClamp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dispatch.MaxAttempts = 0
	cfg.Dispatch.BootMaxAttempts = 500
	cfg.Dispatch.RetryDelay = Duration(-time.Second)
	cfg.Readiness.Timeout = 0
	cfg.Boot.Delay = Duration(time.Hour)
	cfg.Server.Port = 70000

	cfg.Clamp()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"max attempts floor", cfg.Dispatch.MaxAttempts, 1},
		{"boot attempts ceiling", cfg.Dispatch.BootMaxAttempts, 20},
		{"retry delay floor", cfg.Dispatch.RetryDelay.Duration(), time.Duration(0)},
		{"readiness timeout floor", cfg.Readiness.Timeout.Duration(), 100 * time.Millisecond},
		{"boot delay ceiling", cfg.Boot.Delay.Duration(), 10 * time.Minute},
		{"port ceiling", cfg.Server.Port, 65535},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Queues.Prefix = "receipt"
	cfg.Discovery.Subnet = "192.168.1.0/24"
	cfg.Sources.MDNS.Enabled = false
	cfg.Dispatch.RetryDelay = Duration(7 * time.Second)

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, path, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if path != configPath {
		t.Errorf("path = %s, want %s", path, configPath)
	}
	if loaded.Queues.Prefix != "receipt" {
		t.Errorf("Queues.Prefix = %s, want receipt", loaded.Queues.Prefix)
	}
	if loaded.Discovery.Subnet != "192.168.1.0/24" {
		t.Errorf("Discovery.Subnet = %s", loaded.Discovery.Subnet)
	}
	if loaded.Sources.MDNS.Enabled {
		t.Error("MDNS should stay disabled")
	}
	if loaded.Dispatch.RetryDelay.Duration() != 7*time.Second {
		t.Errorf("RetryDelay = %s, want 7s", loaded.Dispatch.RetryDelay.Duration())
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  port: 9000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %s, want default", cfg.Server.Host)
	}
	if !cfg.Readiness.Remediate {
		t.Error("Readiness.Remediate should default to true")
	}
	if cfg.Dispatch.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Dispatch.MaxAttempts)
	}
}

func TestRegistryPaths(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Registry.FallbackPath = filepath.Join(tmpDir, "home", "registry.json")

	t.Run("primary dir exists", func(t *testing.T) {
		cfg.Registry.Path = filepath.Join(tmpDir, "registry.json")
		primary, fallback := cfg.RegistryPaths()
		if primary != cfg.Registry.Path || fallback != cfg.Registry.FallbackPath {
			t.Errorf("RegistryPaths() = %s, %s", primary, fallback)
		}
	})

	t.Run("primary dir missing", func(t *testing.T) {
		cfg.Registry.Path = filepath.Join(tmpDir, "missing", "registry.json")
		primary, fallback := cfg.RegistryPaths()
		if primary != cfg.Registry.FallbackPath || fallback != "" {
			t.Errorf("RegistryPaths() = %s, %s", primary, fallback)
		}
	})
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "explicit.yaml")

	if err := DefaultConfig().Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	t.Setenv(EnvConfigPath, configPath)
	if found := FindConfigPath(); found != configPath {
		t.Errorf("FindConfigPath() = %s, want %s", found, configPath)
	}
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)

	if d.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %s, want 5m", d.Duration())
	}

	marshaled, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error: %v", err)
	}
	if marshaled != "5m0s" {
		t.Errorf("MarshalYAML() = %v, want 5m0s", marshaled)
	}
}
