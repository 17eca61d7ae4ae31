package bootstrap

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"printkeeper/internal/shell"
)

const procRoute = "Iface\tDestination\tGateway \tFlags\tRefCnt\tUse\tMetric\tMask\t\tMTU\tWindow\tIRTT\n" +
	"eth0\t0001A8C0\t00000000\t0001\t0\t0\t100\t00FFFFFF\t0\t0\t0\n" +
	"eth0\t00000000\t0101A8C0\t0003\t0\t0\t100\t00000000\t0\t0\t0\n"

// udpConn stubs the outbound socket used to learn the local address
type udpConn struct {
	net.Conn
	local net.Addr
}

func (c udpConn) LocalAddr() net.Addr { return c.local }
func (c udpConn) Close() error        { return nil }

func dialFrom(ip string) func(string, string) (net.Conn, error) {
	return func(string, string) (net.Conn, error) {
		return udpConn{local: &net.UDPAddr{IP: net.ParseIP(ip), Port: 40000}}, nil
	}
}

func writeRoute(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "route")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseProcRoute(t *testing.T) {
	gw, ok := parseProcRoute(procRoute)
	if !ok {
		t.Fatal("expected a default route")
	}
	if gw != "192.168.1.1" {
		t.Errorf("gateway = %s, want 192.168.1.1", gw)
	}

	if _, ok := parseProcRoute("Iface\tDestination\tGateway\n"); ok {
		t.Error("header-only table should have no default route")
	}
	if _, ok := parseProcRoute(""); ok {
		t.Error("empty table should have no default route")
	}
}

func TestParseIPRoute(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"default via", "default via 10.1.2.1 dev wlan0 proto dhcp metric 600\n10.1.2.0/24 dev wlan0 scope link\n", "10.1.2.1", true},
		{"no default", "10.1.2.0/24 dev wlan0 scope link\n", "", false},
		{"default without gateway", "default dev ppp0 scope link\n", "", false},
		{"ipv6 gateway", "default via fe80::1 dev eth0\n", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseIPRoute(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("parseIPRoute() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSubnetAround(t *testing.T) {
	got, err := SubnetAround("192.168.1.77")
	if err != nil {
		t.Fatal(err)
	}
	if got != "192.168.1.0/24" {
		t.Errorf("SubnetAround = %s, want 192.168.1.0/24", got)
	}

	if _, err := SubnetAround("fe80::1"); err == nil {
		t.Error("expected error for IPv6 address")
	}
	if _, err := SubnetAround("printer.local"); err == nil {
		t.Error("expected error for hostname")
	}
}

func TestDetectorGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("proc route", func(t *testing.T) {
		d := Detector{RoutePath: writeRoute(t, procRoute)}
		gw, err := d.Gateway(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if gw != "192.168.1.1" {
			t.Errorf("gateway = %s, want 192.168.1.1", gw)
		}
	})

	t.Run("ip route fallback", func(t *testing.T) {
		runner := shell.NewFake().On("ip route", "default via 10.0.0.1 dev eth0\n")
		d := Detector{RoutePath: filepath.Join(t.TempDir(), "missing"), Runner: runner}
		gw, err := d.Gateway(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if gw != "10.0.0.1" {
			t.Errorf("gateway = %s, want 10.0.0.1", gw)
		}
	})

	t.Run("no route", func(t *testing.T) {
		d := Detector{RoutePath: filepath.Join(t.TempDir(), "missing")}
		if _, err := d.Gateway(ctx); !errors.Is(err, ErrNoNetwork) {
			t.Errorf("expected ErrNoNetwork, got %v", err)
		}
	})
}

func TestDetectorSubnet(t *testing.T) {
	ctx := context.Background()

	t.Run("from gateway", func(t *testing.T) {
		d := Detector{RoutePath: writeRoute(t, procRoute), Dial: dialFrom("10.9.9.9")}
		subnet, err := d.Subnet(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if subnet != "192.168.1.0/24" {
			t.Errorf("subnet = %s, want 192.168.1.0/24", subnet)
		}
	})

	t.Run("from local address", func(t *testing.T) {
		d := Detector{RoutePath: filepath.Join(t.TempDir(), "missing"), Dial: dialFrom("172.16.4.20")}
		subnet, err := d.Subnet(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if subnet != "172.16.4.0/24" {
			t.Errorf("subnet = %s, want 172.16.4.0/24", subnet)
		}
	})
}

func TestDetectorDetect(t *testing.T) {
	d := Detector{RoutePath: writeRoute(t, procRoute), Dial: dialFrom("192.168.1.50")}
	n := d.Detect(context.Background())

	if n.LocalIP != "192.168.1.50" {
		t.Errorf("LocalIP = %s, want 192.168.1.50", n.LocalIP)
	}
	if n.Gateway != "192.168.1.1" {
		t.Errorf("Gateway = %s, want 192.168.1.1", n.Gateway)
	}
	if n.Subnet != "192.168.1.0/24" {
		t.Errorf("Subnet = %s, want 192.168.1.0/24", n.Subnet)
	}
}

func TestWaitForNetwork(t *testing.T) {
	d := Detector{Dial: dialFrom("192.168.1.50")}
	ip, err := d.WaitForNetwork(context.Background(), time.Second, 10*time.Millisecond, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if ip != "192.168.1.50" {
		t.Errorf("ip = %s, want 192.168.1.50", ip)
	}
}

func TestIsVirtualInterface(t *testing.T) {
	for name, want := range map[string]bool{
		"eth0":      false,
		"wlan0":     false,
		"docker0":   true,
		"veth12ab":  true,
		"br-4f2a":   true,
		"flannel.1": true,
		"enp0s31f6": false,
	} {
		if got := isVirtualInterface(name); got != want {
			t.Errorf("isVirtualInterface(%s) = %v, want %v", name, got, want)
		}
	}
}
