package adapter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"printkeeper/internal/domain"
	"printkeeper/internal/shell"
)

// ErrNoNeighbor is returned when a lookup has no usable entry for an address
var ErrNoNeighbor = errors.New("no neighbor entry")

var macToken = regexp.MustCompile(`(?i)\b([0-9a-f]{1,2}[:-]){5}[0-9a-f]{1,2}\b`)

// NeighborLookup resolves an IP to a hardware address through one mechanism
type NeighborLookup interface {
	Name() string
	Lookup(ctx context.Context, ip string) (domain.HardwareAddress, error)
}

// HintLookup answers from addresses observed earlier in the pass,
// e.g. the MACs nmap reports for on-link hosts.
type HintLookup struct {
	mu    sync.RWMutex
	hints map[string]domain.HardwareAddress
}

// NewHintLookup creates an empty hint cache
func NewHintLookup() *HintLookup {
	return &HintLookup{hints: make(map[string]domain.HardwareAddress)}
}

// Name returns the lookup identifier
func (h *HintLookup) Name() string {
	return "hint"
}

// Observe records a MAC seen for ip. Unparseable values are ignored.
func (h *HintLookup) Observe(ip, mac string) {
	hw, err := domain.ParseHardwareAddress(mac)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.hints[ip] = hw
	h.mu.Unlock()
}

// Reset forgets every hint
func (h *HintLookup) Reset() {
	h.mu.Lock()
	h.hints = make(map[string]domain.HardwareAddress)
	h.mu.Unlock()
}

// Lookup returns the observed address for ip
func (h *HintLookup) Lookup(_ context.Context, ip string) (domain.HardwareAddress, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if hw, ok := h.hints[ip]; ok {
		return hw, nil
	}
	return "", ErrNoNeighbor
}

// IPNeighborLookup queries `ip neighbor show <ip>`
type IPNeighborLookup struct {
	Runner shell.Runner
}

// Name returns the lookup identifier
func (l IPNeighborLookup) Name() string {
	return "ip-neighbor"
}

// Lookup parses the lladdr of the neighbor entry:
//
//	10.0.0.5 dev eth0 lladdr aa:bb:cc:dd:ee:01 REACHABLE
func (l IPNeighborLookup) Lookup(ctx context.Context, ip string) (domain.HardwareAddress, error) {
	out, err := l.Runner.Run(ctx, "ip", "neighbor", "show", ip)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != ip {
			continue
		}
		for i, f := range fields {
			if f == "lladdr" && i+1 < len(fields) {
				return domain.ParseHardwareAddress(fields[i+1])
			}
		}
	}
	return "", ErrNoNeighbor
}

// ARPCommandLookup queries `arp -n <ip>`
type ARPCommandLookup struct {
	Runner shell.Runner
}

// Name returns the lookup identifier
func (l ARPCommandLookup) Name() string {
	return "arp"
}

// Lookup takes the first MAC-looking token on the row for ip
func (l ARPCommandLookup) Lookup(ctx context.Context, ip string) (domain.HardwareAddress, error) {
	out, err := l.Runner.Run(ctx, "arp", "-n", ip)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, ip) {
			continue
		}
		if tok := macToken.FindString(line); tok != "" {
			return domain.ParseHardwareAddress(tok)
		}
	}
	return "", ErrNoNeighbor
}

// ProcARPLookup reads the kernel ARP table directly
type ProcARPLookup struct {
	Path string // defaults to /proc/net/arp
}

// Name returns the lookup identifier
func (l ProcARPLookup) Name() string {
	return "proc-arp"
}

// Lookup scans the table for ip:
//
//	IP address       HW type     Flags       HW address            Mask     Device
//	10.0.0.5         0x1         0x2         aa:bb:cc:dd:ee:01     *        eth0
func (l ProcARPLookup) Lookup(_ context.Context, ip string) (domain.HardwareAddress, error) {
	path := l.Path
	if path == "" {
		path = "/proc/net/arp"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Scan() // header
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] != ip {
			continue
		}
		if fields[2] == "0x0" {
			return "", ErrNoNeighbor // incomplete
		}
		return domain.ParseHardwareAddress(fields[3])
	}
	return "", ErrNoNeighbor
}
