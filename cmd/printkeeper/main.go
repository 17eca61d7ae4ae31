package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"printkeeper/internal/config"
	"printkeeper/internal/logger"
)

const longHelp = `Keeps CUPS queues attached to networked receipt printers.

Printers are found on the local subnet, identified by hardware address and
kept on a stable queue name across DHCP changes. Raw jobs are submitted
through an HTTP API after a readiness check, with bounded retries.

Settings come from the config file, then the environment
(PRINTER_BOOT_DELAY, PRINT_MAX_RETRIES, SERVER_PORT, ...), then flags.`

var exampleUsage = strings.TrimSpace(`
  printkeeper serve --port 3006
  printkeeper discover --subnet 192.168.1.0/24
  printkeeper boot-notify
  printkeeper readiness printer_1 --remediate=false
  printkeeper print printer_1 receipt.bin
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// flagValues holds command-line overrides. Only flags the user set are
// applied on top of the file and environment.
type flagValues struct {
	configPath       string
	host             string
	port             int
	db               string
	registry         string
	logLevel         string
	subnet           string
	maxRetries       int
	retryDelay       time.Duration
	readinessTimeout time.Duration
	bootDelay        time.Duration
}

func main() {
	var flags flagValues
	log := logger.WithComponent("cli")

	root := &cobra.Command{
		Use:           "printkeeper",
		Short:         "Receipt printer discovery and print server for CUPS",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaults := config.DefaultConfig()
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to config file (default: search $PRINTKEEPER_CONFIG, ./printkeeper.yaml, ~/.config, /etc)")
	pf.StringVar(&flags.host, "host", defaults.Server.Host, "HTTP listen host")
	pf.IntVar(&flags.port, "port", defaults.Server.Port, "HTTP listen port")
	pf.StringVar(&flags.db, "db", defaults.Database.Path, "SQLite history database path")
	pf.StringVar(&flags.registry, "registry", defaults.Registry.Path, "printer identity registry file")
	pf.StringVar(&flags.logLevel, "log-level", defaults.Logging.Level, "log level (debug, info, warn, error)")
	pf.StringVar(&flags.subnet, "subnet", "", "CIDR to scan (default: derived from the default route)")
	pf.IntVar(&flags.maxRetries, "max-retries", defaults.Dispatch.MaxAttempts, "print attempts per job")
	pf.DurationVar(&flags.retryDelay, "retry-delay", defaults.Dispatch.RetryDelay.Duration(), "delay between print attempts")
	pf.DurationVar(&flags.readinessTimeout, "readiness-timeout", defaults.Readiness.Timeout.Duration(), "reachability probe timeout")
	pf.DurationVar(&flags.bootDelay, "boot-delay", defaults.Boot.Delay.Duration(), "settle time before the first discovery pass")

	root.AddCommand(
		newServeCmd(&flags),
		newDiscoverCmd(&flags),
		newBootNotifyCmd(&flags),
		newReadinessCmd(&flags),
		newPrintCmd(&flags),
	)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("printkeeper")
		os.Exit(1)
	}
}

// loadConfig layers file, environment and changed flags, then sets up logging
func loadConfig(cmd *cobra.Command, flags *flagValues) (*config.Config, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if flags.configPath != "" {
		cfg, path, err = config.LoadFromPath(flags.configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	envErr := cfg.ApplyEnv()

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
	applyFlags(cfg, flags, changed)
	cfg.Clamp()

	if err := logger.Init(cfg.Logging); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log := logger.WithComponent("config")
	if envErr != nil {
		log.Warn().Err(envErr).Msg("Ignoring malformed environment overrides")
	}
	if path != "" {
		log.Info().Str("path", path).Msg("Loaded config file")
	}
	log.Debug().Msg(cfg.Summary())

	return cfg, nil
}

func applyFlags(cfg *config.Config, flags *flagValues, changed map[string]bool) {
	if changed["host"] {
		cfg.Server.Host = flags.host
	}
	if changed["port"] {
		cfg.Server.Port = flags.port
	}
	if changed["db"] {
		cfg.Database.Path = flags.db
	}
	if changed["registry"] {
		cfg.Registry.Path = flags.registry
	}
	if changed["log-level"] {
		cfg.Logging.Level = flags.logLevel
	}
	if changed["subnet"] {
		cfg.Discovery.Subnet = flags.subnet
	}
	if changed["max-retries"] {
		cfg.Dispatch.MaxAttempts = flags.maxRetries
	}
	if changed["retry-delay"] {
		cfg.Dispatch.RetryDelay = config.Duration(flags.retryDelay)
	}
	if changed["readiness-timeout"] {
		cfg.Readiness.Timeout = config.Duration(flags.readinessTimeout)
	}
	if changed["boot-delay"] {
		cfg.Boot.Delay = config.Duration(flags.bootDelay)
	}
}
