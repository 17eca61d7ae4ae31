package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"printkeeper/internal/logger"
)

// Environment variables recognized as overrides
const (
	EnvBootDelay        = "PRINTER_BOOT_DELAY" // seconds
	EnvMaxRetries       = "PRINT_MAX_RETRIES"
	EnvRetryDelay       = "PRINT_RETRY_DELAY" // seconds
	EnvBootRetryDelay   = "BOOT_RETRY_DELAY"  // seconds
	EnvReadinessTimeout = "READINESS_TIMEOUT" // seconds
	EnvServerHost       = "SERVER_HOST"
	EnvServerPort       = "SERVER_PORT"
	EnvLogLevel         = "LOG_LEVEL"
	EnvSNMPCommunity    = "SNMP_COMMUNITY"
	EnvDatabase         = "PRINTKEEPER_DB"
	EnvRegistryPath     = "PRINTKEEPER_REGISTRY"
)

// maxEnvSeconds keeps second counts well inside time.Duration
const maxEnvSeconds = 365 * 24 * 60 * 60

// LookupFunc reads one environment variable
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides settings from the process environment
func (c *Config) ApplyEnv() error {
	return c.ApplyEnvFrom(os.LookupEnv)
}

// ApplyEnvFrom overrides settings from lookup. Malformed values are skipped
// and reported together; valid ones are still applied.
func (c *Config) ApplyEnvFrom(lookup LookupFunc) error {
	var errs []error

	seconds := func(key string, dst *Duration) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			errs = append(errs, fmt.Errorf("%s=%q: not a number of seconds", key, v))
			return
		}
		if math.Abs(f) > maxEnvSeconds {
			errs = append(errs, fmt.Errorf("%s=%q: out of range", key, v))
			return
		}
		*dst = Duration(time.Duration(f * float64(time.Second)))
	}
	integer := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: not an integer", key, v))
			return
		}
		*dst = n
	}
	text := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	seconds(EnvBootDelay, &c.Boot.Delay)
	integer(EnvMaxRetries, &c.Dispatch.MaxAttempts)
	seconds(EnvRetryDelay, &c.Dispatch.RetryDelay)
	seconds(EnvBootRetryDelay, &c.Dispatch.BootRetryDelay)
	seconds(EnvReadinessTimeout, &c.Readiness.Timeout)
	text(EnvServerHost, &c.Server.Host)
	integer(EnvServerPort, &c.Server.Port)
	text(EnvLogLevel, &c.Logging.Level)
	text(EnvSNMPCommunity, &c.SNMP.Community)
	text(EnvDatabase, &c.Database.Path)
	text(EnvRegistryPath, &c.Registry.Path)

	return errors.Join(errs...)
}

func defaultLogging() logger.Config {
	return logger.Config{Level: "info", Output: "stdout"}
}
