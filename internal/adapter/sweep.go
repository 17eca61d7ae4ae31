package adapter

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"printkeeper/internal/domain"
)

// maxSweepHosts bounds how many addresses one sweep will probe
const maxSweepHosts = 1024

// SweepConfig holds configuration for the TCP sweep
type SweepConfig struct {
	// Timeout for individual connection attempts
	Timeout time.Duration
	// MaxConcurrent limits parallel probe operations
	MaxConcurrent int
}

// DefaultSweepConfig returns sensible defaults for a /24
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Timeout:       1 * time.Second,
		MaxConcurrent: 64,
	}
}

// SweepSource finds endpoints by connecting to the raw port on every host
type SweepSource struct {
	config    SweepConfig
	prober    Prober
	publisher EventPublisher
	logger    zerolog.Logger
}

// NewSweepSource creates a TCP sweep source
func NewSweepSource(config SweepConfig, prober Prober, logger zerolog.Logger) *SweepSource {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultSweepConfig().MaxConcurrent
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultSweepConfig().Timeout
	}
	if prober == nil {
		prober = TCPProber{}
	}
	return &SweepSource{
		config: config,
		prober: prober,
		logger: logger.With().Str("component", "sweep").Logger(),
	}
}

// SetEventPublisher sets the event publisher for progress updates
func (s *SweepSource) SetEventPublisher(pub EventPublisher) {
	s.publisher = pub
}

// Name returns the source identifier
func (s *SweepSource) Name() string {
	return "sweep"
}

// Kind returns the source kind
func (s *SweepSource) Kind() SourceKind {
	return SourceKindActive
}

// Discover probes every host in the target subnet in parallel
func (s *SweepSource) Discover(ctx context.Context, target Target, report ReportFunc) error {
	if target.Subnet == "" {
		return fmt.Errorf("sweep: no subnet to scan")
	}
	ips, err := expandCIDR(target.Subnet)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	port := target.Port
	if port == 0 {
		port = domain.RawPrintPort
	}

	s.logger.Info().Str("subnet", target.Subnet).Int("hosts", len(ips)).Int("port", port).Msg("Starting TCP sweep")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrent)

	found := 0
	results := make(chan domain.Endpoint)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for ep := range results {
			found++
			report(ep)
			if s.publisher != nil {
				s.publisher.PublishDiscoveryEvent(EventDiscoveryProgress, map[string]interface{}{
					"source":  s.Name(),
					"ip":      ep.IP,
					"message": fmt.Sprintf("Raw print port open on %s", ep.IP),
				})
			}
		}
	}()

	for _, ip := range ips {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if s.prober.Probe(gctx, ip, port, s.config.Timeout) {
				ep := domain.NewEndpoint(ip, port)
				ep.Source = s.Name()
				results <- ep
			}
			return nil
		})
	}

	_ = g.Wait()
	close(results)
	<-collected

	s.logger.Info().Int("found", found).Msg("TCP sweep complete")
	return ctx.Err()
}

// expandCIDR converts a CIDR notation to a list of host IPs
func expandCIDR(cidr string) ([]string, error) {
	_, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		// Try parsing as single IP
		if ip := net.ParseIP(cidr); ip != nil {
			return []string{ip.String()}, nil
		}
		return nil, err
	}

	ip := ipNet.IP.To4()
	if ip == nil {
		return nil, fmt.Errorf("only IPv4 supported")
	}

	networkInt := binary.BigEndian.Uint32(ip)
	maskInt := binary.BigEndian.Uint32(ipNet.Mask)

	firstIP := networkInt & maskInt
	lastIP := firstIP | ^maskInt

	// Skip network and broadcast addresses
	ones, bits := ipNet.Mask.Size()
	if ones <= 30 && bits == 32 {
		firstIP++
		lastIP--
	}

	if lastIP-firstIP >= maxSweepHosts {
		return nil, fmt.Errorf("CIDR range too large (max %d IPs)", maxSweepHosts)
	}

	ips := make([]string, 0, lastIP-firstIP+1)
	for i := firstIP; i <= lastIP; i++ {
		ipBytes := make([]byte, 4)
		binary.BigEndian.PutUint32(ipBytes, i)
		ips = append(ips, net.IP(ipBytes).String())
	}

	return ips, nil
}
