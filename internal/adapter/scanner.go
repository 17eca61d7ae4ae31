package adapter

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"printkeeper/internal/domain"
)

// ScannerConfig holds configuration for the network scanner
type ScannerConfig struct {
	// Port is the raw print port sources look for
	Port int
	// Ceiling bounds the wall-clock time of one scan
	Ceiling time.Duration
	// Grace is how long to wait for sources to stop after the ceiling
	Grace time.Duration
}

// DefaultScannerConfig returns the defaults for a single subnet
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		Port:    domain.RawPrintPort,
		Ceiling: 180 * time.Second,
		Grace:   2 * time.Second,
	}
}

// SubnetFunc returns the CIDR to scan
type SubnetFunc func(ctx context.Context) (string, error)

// NetworkScanner runs every enabled source against the local subnet and
// merges what they find
type NetworkScanner struct {
	config  ScannerConfig
	sources *SourceRegistry
	subnet  SubnetFunc
	logger  zerolog.Logger

	mu       sync.Mutex
	scanning bool
}

// NewNetworkScanner creates a scanner over the registry's sources
func NewNetworkScanner(config ScannerConfig, sources *SourceRegistry, subnet SubnetFunc, logger zerolog.Logger) *NetworkScanner {
	def := DefaultScannerConfig()
	if config.Port <= 0 {
		config.Port = def.Port
	}
	if config.Ceiling <= 0 {
		config.Ceiling = def.Ceiling
	}
	if config.Grace <= 0 {
		config.Grace = def.Grace
	}
	return &NetworkScanner{
		config:  config,
		sources: sources,
		subnet:  subnet,
		logger:  logger.With().Str("component", "scanner").Logger(),
	}
}

// Sources returns the scanner's source registry
func (s *NetworkScanner) Sources() *SourceRegistry {
	return s.sources
}

// IsScanning returns whether a scan is in progress
func (s *NetworkScanner) IsScanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// Scan returns the union of every source's endpoints, deduplicated by URI
// and sorted by IP. Hitting the ceiling is not an error; the endpoints
// reported so far are returned. Only cancellation of ctx itself is.
func (s *NetworkScanner) Scan(ctx context.Context) ([]domain.Endpoint, error) {
	s.mu.Lock()
	s.scanning = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()
	}()

	start := time.Now()
	target := Target{Port: s.config.Port}
	if s.subnet != nil {
		subnet, err := s.subnet(ctx)
		if err != nil {
			s.logger.Warn().Err(fmt.Errorf("%w: subnet detection: %w", domain.ErrDiscovery, err)).Msg("No subnet for active sources")
		}
		target.Subnet = subnet
	}

	sources := s.sources.Enabled()
	s.logger.Info().Str("subnet", target.Subnet).Int("sources", len(sources)).Dur("ceiling", s.config.Ceiling).Msg("Starting discovery")
	s.sources.PublishDiscoveryEvent(EventDiscoveryStarted, map[string]interface{}{
		"subnet":  target.Subnet,
		"sources": len(sources),
		"message": fmt.Sprintf("Discovering printers on %s", displaySubnet(target.Subnet)),
	})

	scanCtx, cancel := context.WithTimeout(ctx, s.config.Ceiling)
	defer cancel()

	var (
		mu     sync.Mutex
		found  = make(map[string]domain.Endpoint)
		closed bool
	)
	report := func(ep domain.Endpoint) {
		mu.Lock()
		defer mu.Unlock()
		if closed || ep.URI == "" {
			return
		}
		if _, ok := found[ep.URI]; !ok {
			found[ep.URI] = ep
		}
	}

	var g errgroup.Group
	for _, src := range sources {
		g.Go(func() error {
			err := src.Discover(scanCtx, target, report)
			switch {
			case err == nil:
			case scanCtx.Err() != nil:
				s.logger.Info().Str("source", src.Name()).Msg("Source stopped at discovery ceiling")
			default:
				s.logger.Warn().Err(fmt.Errorf("%w: %s: %w", domain.ErrDiscovery, src.Name(), err)).Msg("Discovery source failed")
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-scanCtx.Done():
		select {
		case <-done:
		case <-time.After(s.config.Grace):
			s.logger.Warn().Msg("Sources still running after ceiling, returning partial results")
		}
	}

	mu.Lock()
	closed = true
	endpoints := make([]domain.Endpoint, 0, len(found))
	for _, ep := range found {
		endpoints = append(endpoints, ep)
	}
	mu.Unlock()
	SortEndpoints(endpoints)

	elapsed := time.Since(start)
	s.logger.Info().Int("endpoints", len(endpoints)).Dur("elapsed", elapsed).Msg("Discovery complete")
	s.sources.PublishDiscoveryEvent(EventDiscoveryComplete, map[string]interface{}{
		"endpoints": len(endpoints),
		"elapsed":   elapsed.String(),
		"message":   fmt.Sprintf("Discovery complete: %d endpoint(s)", len(endpoints)),
	})

	if err := ctx.Err(); err != nil {
		return endpoints, err
	}
	return endpoints, nil
}

// SortEndpoints orders endpoints by IP, then port, then URI
func SortEndpoints(eps []domain.Endpoint) {
	sort.Slice(eps, func(i, j int) bool {
		a, aerr := netip.ParseAddr(eps[i].IP)
		b, berr := netip.ParseAddr(eps[j].IP)
		aok, bok := aerr == nil, berr == nil
		switch {
		case aok && bok:
			if a != b {
				return a.Less(b)
			}
		case aok != bok:
			return aok
		case eps[i].IP != eps[j].IP:
			return eps[i].IP < eps[j].IP
		}
		if eps[i].Port != eps[j].Port {
			return eps[i].Port < eps[j].Port
		}
		return eps[i].URI < eps[j].URI
	})
}

func displaySubnet(subnet string) string {
	if subnet == "" {
		return "local network"
	}
	return subnet
}
