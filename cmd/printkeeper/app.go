package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"printkeeper/internal/adapter"
	"printkeeper/internal/config"
	"printkeeper/internal/core/bootstrap"
	"printkeeper/internal/cups"
	"printkeeper/internal/domain"
	"printkeeper/internal/logger"
	"printkeeper/internal/registry"
	"printkeeper/internal/repository/sqlite"
	"printkeeper/internal/service"
	"printkeeper/internal/shell"
)

// app holds the wired services shared by every subcommand
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	history    *sqlite.Repository
	registry   *registry.Registry
	cups       *cups.Client
	events     *service.EventBus
	detector   bootstrap.Detector
	scanner    *adapter.NetworkScanner
	reconciler *service.ReconcileService
	gate       *service.ReadinessGate
	dispatcher *service.Dispatcher
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.GetLogger()
	runner := shell.Exec{}

	history, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", cfg.Database.Path, err)
	}
	log.Info().Str("path", cfg.Database.Path).Msg("Database opened")

	primary, fallback := cfg.RegistryPaths()
	reg := registry.New(primary, fallback, log)
	records := reg.Load(ctx)
	log.Info().Str("path", reg.Path()).Int("records", len(records)).Msg("Registry loaded")

	a := &app{
		cfg:      cfg,
		logger:   log,
		history:  history,
		registry: reg,
		cups:     cups.NewClient(runner, log),
		events:   service.NewEventBus(),
		detector: bootstrap.Detector{Runner: runner},
	}

	hints := adapter.NewHintLookup()
	sources := adapter.NewSourceRegistry(log)
	sources.SetDiscoveryEventHandler(a.events.PublishDiscoveryEvent)
	if err := a.registerSources(sources, hints); err != nil {
		history.Close()
		return nil, err
	}

	a.scanner = adapter.NewNetworkScanner(adapter.ScannerConfig{
		Port:    cfg.Discovery.Port,
		Ceiling: cfg.Discovery.Timeout.Duration(),
	}, sources, a.subnet, log)

	resolver := adapter.NewMACResolver(adapter.TCPProber{}, a.neighborLookups(runner, hints),
		adapter.WithPokePort(cfg.Discovery.Port, cfg.Discovery.HostTimeout.Duration()),
		adapter.WithSettleDelay(cfg.Discovery.SettleDelay.Duration()),
		adapter.WithResolverLogger(log),
	)

	a.reconciler = service.NewReconcileService(a.cups, hintedScanner{a.scanner, hints}, resolver, reg, log,
		service.WithQueuePrefix(cfg.Queues.Prefix),
		service.WithHistory(history),
		service.WithEventBus(a.events),
	)
	a.gate = service.NewReadinessGate(a.cups, adapter.TCPProber{}, cfg.Readiness.Timeout.Duration(), log)
	a.dispatcher = service.NewDispatcher(a.gate, a.cups, log,
		service.WithDispatchHistory(history),
		service.WithDispatchEventBus(a.events),
	)

	return a, nil
}

// registerSources adds the passive sources and one active source. nmap
// falls back to the TCP sweep when the binary is missing.
func (a *app) registerSources(sources *adapter.SourceRegistry, hints *adapter.HintLookup) error {
	cfg := a.cfg.Sources
	disc := a.cfg.Discovery

	nmapOpts := []adapter.NmapOption{adapter.WithHints(hints)}
	if bin := cfg.NmapBinary(); bin != "" {
		nmapOpts = append(nmapOpts, adapter.WithBinaryPath(bin))
	}
	nmapSource := adapter.NewNmapSource(a.logger, nmapOpts...)
	sweep := adapter.NewSweepSource(adapter.SweepConfig{
		Timeout:       disc.HostTimeout.Duration(),
		MaxConcurrent: disc.MaxConcurrent,
	}, adapter.TCPProber{}, a.logger)

	var active adapter.Source
	enabled := true
	switch {
	case cfg.Nmap.Enabled && cfg.Sweep.Enabled:
		active = adapter.Fallback(nmapSource, sweep)
	case cfg.Nmap.Enabled:
		active = nmapSource
	default:
		active, enabled = sweep, cfg.Sweep.Enabled
	}

	for _, s := range []struct {
		source  adapter.Source
		enabled bool
	}{
		{adapter.NewMDNSSource(0, a.logger), cfg.MDNS.Enabled},
		{adapter.NewCUPSSource(a.cups, a.logger), cfg.CUPS.Enabled},
		{active, enabled},
	} {
		if err := sources.Register(s.source, s.enabled); err != nil {
			return fmt.Errorf("register source: %w", err)
		}
	}
	return nil
}

// neighborLookups orders the MAC mechanisms cheapest first
func (a *app) neighborLookups(runner shell.Runner, hints *adapter.HintLookup) []adapter.NeighborLookup {
	lookups := []adapter.NeighborLookup{
		hints,
		adapter.IPNeighborLookup{Runner: runner},
		adapter.ARPCommandLookup{Runner: runner},
		adapter.ProcARPLookup{},
	}
	if a.cfg.SNMP.Enabled {
		snmp := adapter.NewSNMPLookup(a.cfg.SNMP.Community)
		snmp.Port = uint16(a.cfg.SNMP.Port)
		snmp.Timeout = a.cfg.SNMP.Timeout.Duration()
		lookups = append(lookups, snmp)
	}
	return lookups
}

// subnet returns the configured CIDR or derives it from the default route
func (a *app) subnet(ctx context.Context) (string, error) {
	if a.cfg.Discovery.Subnet != "" {
		return a.cfg.Discovery.Subnet, nil
	}
	return a.detector.Subnet(ctx)
}

func (a *app) retryPolicy() service.RetryPolicy {
	return service.RetryPolicy{
		MaxAttempts: a.cfg.Dispatch.MaxAttempts,
		Delay:       a.cfg.Dispatch.RetryDelay.Duration(),
	}
}

func (a *app) bootPolicy() service.RetryPolicy {
	return service.RetryPolicy{
		MaxAttempts: a.cfg.Dispatch.BootMaxAttempts,
		Delay:       a.cfg.Dispatch.BootRetryDelay.Duration(),
	}
}

func (a *app) Close() {
	if err := a.history.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to close history")
	}
}

// hintedScanner forgets the MAC hints of the previous pass before scanning
type hintedScanner struct {
	scanner *adapter.NetworkScanner
	hints   *adapter.HintLookup
}

func (s hintedScanner) Scan(ctx context.Context) ([]domain.Endpoint, error) {
	s.hints.Reset()
	return s.scanner.Scan(ctx)
}
