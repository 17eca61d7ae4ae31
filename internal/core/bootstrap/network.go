package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"printkeeper/internal/shell"
)

// ErrNoNetwork is returned when no usable IPv4 address or route exists
var ErrNoNetwork = errors.New("no usable network")

// Network describes the host's place on the local network
type Network struct {
	Hostname string `json:"hostname"`
	LocalIP  string `json:"local_ip"`
	Gateway  string `json:"gateway,omitempty"`
	Subnet   string `json:"subnet,omitempty"`
}

// Detector inspects the host network. The zero value reads the live system.
type Detector struct {
	RoutePath string       // defaults to /proc/net/route
	Runner    shell.Runner // for `ip route`; nil skips that fallback
	// Dial is used to learn the outbound address; defaults to net.Dial
	Dial func(network, address string) (net.Conn, error)
}

// Detect gathers hostname, local IP, gateway and scan subnet
func (d Detector) Detect(ctx context.Context) Network {
	hostname, _ := os.Hostname()
	n := Network{Hostname: hostname}
	n.LocalIP, _ = d.LocalIP()
	n.Gateway, _ = d.Gateway(ctx)
	n.Subnet, _ = d.Subnet(ctx)
	return n
}

// Subnet returns the /24 to scan: the one around the default gateway, else
// the one around the primary private address
func (d Detector) Subnet(ctx context.Context) (string, error) {
	if gw, err := d.Gateway(ctx); err == nil {
		return SubnetAround(gw)
	}
	ip, err := d.LocalIP()
	if err != nil {
		return "", err
	}
	return SubnetAround(ip)
}

// Gateway returns the default IPv4 gateway from /proc/net/route, falling
// back to `ip route`
func (d Detector) Gateway(ctx context.Context) (string, error) {
	path := d.RoutePath
	if path == "" {
		path = "/proc/net/route"
	}
	if data, err := os.ReadFile(path); err == nil {
		if gw, ok := parseProcRoute(string(data)); ok {
			return gw, nil
		}
	}

	if d.Runner != nil {
		out, err := d.Runner.Run(ctx, "ip", "route")
		if err == nil {
			if gw, ok := parseIPRoute(string(out)); ok {
				return gw, nil
			}
		}
	}
	return "", fmt.Errorf("default gateway: %w", ErrNoNetwork)
}

// parseProcRoute finds the default route; the gateway is hex, little-endian
func parseProcRoute(data string) (string, bool) {
	lines := strings.Split(data, "\n")
	if len(lines) < 2 {
		return "", false
	}

	// Skip header
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		// Default route has destination 00000000
		if fields[1] != "00000000" || len(fields[2]) != 8 || fields[2] == "00000000" {
			continue
		}
		var b1, b2, b3, b4 uint8
		if _, err := fmt.Sscanf(fields[2], "%02x%02x%02x%02x", &b4, &b3, &b2, &b1); err != nil {
			continue
		}
		return fmt.Sprintf("%d.%d.%d.%d", b1, b2, b3, b4), true
	}
	return "", false
}

// parseIPRoute reads `default via 192.168.1.1 dev eth0 ...`
func parseIPRoute(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != "default" {
			continue
		}
		for i, f := range fields {
			if f == "via" && i+1 < len(fields) {
				if ip := net.ParseIP(fields[i+1]); ip != nil && ip.To4() != nil {
					return ip.String(), true
				}
			}
		}
	}
	return "", false
}

// LocalIP returns the host's primary IPv4 address. The outbound address of a
// UDP socket is preferred; no packet is sent. Otherwise the first private
// address on an up, non-virtual interface.
func (d Detector) LocalIP() (string, error) {
	dial := d.Dial
	if dial == nil {
		dial = net.Dial
	}
	if conn, err := dial("udp", "8.8.8.8:53"); err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			if ip := addr.IP.To4(); ip != nil && !ip.IsUnspecified() && !ip.IsLoopback() {
				return ip.String(), nil
			}
		}
	}

	if ip := privateInterfaceIP(); ip != "" {
		return ip, nil
	}
	return "", fmt.Errorf("local address: %w", ErrNoNetwork)
}

func privateInterfaceIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}

	for _, iface := range ifaces {
		// Skip loopback and down interfaces
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if isVirtualInterface(iface.Name) {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil && ipnet.IP.IsPrivate() {
				return ipnet.IP.String()
			}
		}
	}
	return ""
}

// isVirtualInterface matches interfaces commonly created by container runtimes
func isVirtualInterface(name string) bool {
	for _, prefix := range []string{"veth", "docker", "br-", "cni", "flannel"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// SubnetAround returns the /24 containing ip
func SubnetAround(ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() == nil {
		return "", fmt.Errorf("not an IPv4 address: %q", ip)
	}
	v4 := parsed.To4()
	return fmt.Sprintf("%d.%d.%d.0/24", v4[0], v4[1], v4[2]), nil
}

// WaitForNetwork polls until the host has a local address or ctx ends.
// A timeout of zero waits indefinitely.
func (d Detector) WaitForNetwork(ctx context.Context, timeout, interval time.Duration, logger zerolog.Logger) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}

	start := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		if ip, err := d.LocalIP(); err == nil {
			logger.Info().Str("ip", ip).Int("attempts", attempt).Dur("elapsed", time.Since(start)).Msg("Network ready")
			return ip, nil
		}
		logger.Debug().Int("attempt", attempt).Msg("Waiting for network")

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for network: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
