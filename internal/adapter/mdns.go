package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog"

	"printkeeper/internal/domain"
)

const (
	// PDLService is the DNS-SD service type for raw (JetDirect) printers
	PDLService = "_pdl-datastream._tcp"
	mdnsDomain = "local."
)

// BrowseFunc matches (*zeroconf.Resolver).Browse
type BrowseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// MDNSSource listens for printers advertising raw print service over mDNS.
// It sends no probes of its own.
type MDNSSource struct {
	window    time.Duration
	browse    BrowseFunc
	publisher EventPublisher
	logger    zerolog.Logger
}

// NewMDNSSource creates an mDNS source that browses for window
func NewMDNSSource(window time.Duration, logger zerolog.Logger) *MDNSSource {
	if window <= 0 {
		window = 5 * time.Second
	}
	return &MDNSSource{
		window: window,
		logger: logger.With().Str("component", "mdns").Logger(),
	}
}

// SetEventPublisher sets the event publisher for progress updates
func (m *MDNSSource) SetEventPublisher(pub EventPublisher) {
	m.publisher = pub
}

// Name returns the source identifier
func (m *MDNSSource) Name() string {
	return "mdns"
}

// Kind returns the source kind
func (m *MDNSSource) Kind() SourceKind {
	return SourceKindPassive
}

// Discover browses for the listening window and reports each IPv4 address
// an advertisement carries
func (m *MDNSSource) Discover(ctx context.Context, target Target, report ReportFunc) error {
	browse := m.browse
	if browse == nil {
		resolver, err := zeroconf.NewResolver()
		if err != nil {
			return fmt.Errorf("mdns: %w: %v", ErrSourceUnavailable, err)
		}
		browse = resolver.Browse
	}

	browseCtx, cancel := context.WithTimeout(ctx, m.window)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := browse(browseCtx, PDLService, mdnsDomain, entries); err != nil {
		return fmt.Errorf("mdns: browse failed: %w", err)
	}

	seen := make(map[string]bool)
	for {
		select {
		case <-browseCtx.Done():
			m.logger.Debug().Int("found", len(seen)).Msg("mDNS browse window closed")
			return ctx.Err()
		case entry, ok := <-entries:
			if !ok {
				return ctx.Err()
			}
			for _, ep := range entryEndpoints(entry, target.Port) {
				if seen[ep.URI] {
					continue
				}
				seen[ep.URI] = true
				ep.Source = m.Name()
				report(ep)
				if m.publisher != nil {
					m.publisher.PublishDiscoveryEvent(EventDiscoveryProgress, map[string]interface{}{
						"source":   m.Name(),
						"ip":       ep.IP,
						"instance": entry.Instance,
						"message":  fmt.Sprintf("%s advertised at %s", entry.Instance, ep.IP),
					})
				}
			}
		}
	}
}

// entryEndpoints converts an advertisement to endpoints, one per IPv4 address
func entryEndpoints(entry *zeroconf.ServiceEntry, fallbackPort int) []domain.Endpoint {
	if entry == nil {
		return nil
	}
	port := entry.Port
	if port <= 0 {
		port = fallbackPort
	}
	eps := make([]domain.Endpoint, 0, len(entry.AddrIPv4))
	for _, ip := range entry.AddrIPv4 {
		if ip == nil || ip.To4() == nil {
			continue
		}
		eps = append(eps, domain.NewEndpoint(ip.String(), port))
	}
	return eps
}
