package adapter

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/rs/zerolog"

	"printkeeper/internal/domain"
)

// NmapSource finds endpoints with an nmap port scan of the subnet.
// MAC addresses nmap reports for on-link hosts are passed to the hint cache.
type NmapSource struct {
	binaryPath  string
	hostTimeout time.Duration
	timing      nmap.Timing
	hints       *HintLookup
	publisher   EventPublisher
	logger      zerolog.Logger

	mu        sync.Mutex
	checked   bool
	available bool
}

// NewNmapSource creates a new nmap-based discovery source
func NewNmapSource(logger zerolog.Logger, opts ...NmapOption) *NmapSource {
	source := &NmapSource{
		hostTimeout: 30 * time.Second,
		timing:      nmap.TimingAggressive,
		logger:      logger.With().Str("component", "nmap").Logger(),
	}

	for _, opt := range opts {
		opt(source)
	}

	return source
}

// SetEventPublisher sets the event publisher for progress updates
func (n *NmapSource) SetEventPublisher(pub EventPublisher) {
	n.publisher = pub
}

// publishProgress emits a discovery progress event
func (n *NmapSource) publishProgress(eventType string, payload interface{}) {
	if n.publisher != nil {
		n.publisher.PublishDiscoveryEvent(eventType, payload)
	}
}

// Name returns the source identifier
func (n *NmapSource) Name() string {
	return "nmap"
}

// Kind returns the source kind
func (n *NmapSource) Kind() SourceKind {
	return SourceKindActive
}

// Discover runs `nmap -p <port> --open -T4 --host-timeout 30s <subnet>`
func (n *NmapSource) Discover(ctx context.Context, target Target, report ReportFunc) error {
	if !n.isNmapAvailable() {
		return fmt.Errorf("nmap: %w", ErrSourceUnavailable)
	}
	if target.Subnet == "" {
		return fmt.Errorf("nmap: no subnet to scan")
	}
	port := target.Port
	if port == 0 {
		port = domain.RawPrintPort
	}

	opts := []nmap.Option{
		nmap.WithTargets(target.Subnet),
		nmap.WithPorts(strconv.Itoa(port)),
		nmap.WithOpenOnly(),
		nmap.WithTimingTemplate(n.timing),
		nmap.WithHostTimeout(n.hostTimeout),
	}
	if n.binaryPath != "" {
		opts = append(opts, nmap.WithBinaryPath(n.binaryPath))
	}

	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return fmt.Errorf("nmap: failed to create scanner: %w", err)
	}

	n.logger.Info().Str("subnet", target.Subnet).Int("port", port).Msg("Starting nmap scan")
	n.publishProgress(EventDiscoveryStarted, map[string]interface{}{
		"source":  n.Name(),
		"message": fmt.Sprintf("Starting nmap scan of %s", target.Subnet),
	})

	result, warnings, err := scanner.Run()
	if warnings != nil && len(*warnings) > 0 {
		n.logger.Debug().Strs("warnings", *warnings).Msg("nmap warnings")
	}
	if err != nil {
		return fmt.Errorf("nmap: scan failed: %w", err)
	}

	found := n.processResults(result, port, report)
	n.logger.Info().Int("found", found).Msg("nmap scan complete")
	return nil
}

// processResults reports every up host with the port open
func (n *NmapSource) processResults(result *nmap.Run, port int, report ReportFunc) int {
	if result == nil {
		return 0
	}

	found := 0
	for _, host := range result.Hosts {
		if len(host.Addresses) == 0 || host.Status.State != "up" {
			continue
		}

		var ip, mac string
		for _, addr := range host.Addresses {
			switch addr.AddrType {
			case "ipv4":
				ip = addr.Addr
			case "mac":
				mac = strings.ToUpper(addr.Addr)
			}
		}
		if ip == "" {
			continue
		}

		if !hasOpenPort(host.Ports, port) {
			continue
		}

		if mac != "" && n.hints != nil {
			n.hints.Observe(ip, mac)
		}

		ep := domain.NewEndpoint(ip, port)
		ep.Source = n.Name()
		report(ep)
		found++

		n.publishProgress(EventDiscoveryProgress, map[string]interface{}{
			"source":  n.Name(),
			"ip":      ip,
			"mac":     mac,
			"message": fmt.Sprintf("Raw print port open on %s", ip),
		})
	}
	return found
}

func hasOpenPort(ports []nmap.Port, want int) bool {
	for _, p := range ports {
		if int(p.ID) == want && p.State.State == "open" {
			return true
		}
	}
	return false
}

// isNmapAvailable checks once whether the nmap binary exists
func (n *NmapSource) isNmapAvailable() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.checked {
		bin := n.binaryPath
		if bin == "" {
			bin = "nmap"
		}
		_, err := exec.LookPath(bin)
		n.available = err == nil
		n.checked = true
		if !n.available {
			n.logger.Info().Msg("nmap not installed, active discovery falls back to TCP sweep")
		}
	}
	return n.available
}
