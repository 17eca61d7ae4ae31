package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/rs/zerolog"

	"printkeeper/internal/domain"
)

// TestNmapSource_Options tests option functions
func TestNmapSource_Options(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		source := NewNmapSource(zerolog.Nop())
		if source.hostTimeout != 30*time.Second {
			t.Errorf("expected host timeout 30s, got %v", source.hostTimeout)
		}
		if source.timing != nmap.TimingAggressive {
			t.Errorf("expected aggressive timing, got %v", source.timing)
		}
	})

	t.Run("WithHostTimeout", func(t *testing.T) {
		source := NewNmapSource(zerolog.Nop(), WithHostTimeout(10*time.Second))
		if source.hostTimeout != 10*time.Second {
			t.Errorf("expected host timeout 10s, got %v", source.hostTimeout)
		}
	})

	t.Run("WithHostTimeout ignores zero", func(t *testing.T) {
		source := NewNmapSource(zerolog.Nop(), WithHostTimeout(0))
		if source.hostTimeout != 30*time.Second {
			t.Errorf("expected default host timeout, got %v", source.hostTimeout)
		}
	})

	t.Run("WithTiming", func(t *testing.T) {
		source := NewNmapSource(zerolog.Nop(), WithTiming(nmap.TimingNormal))
		if source.timing != nmap.TimingNormal {
			t.Errorf("expected normal timing, got %v", source.timing)
		}
	})

	t.Run("WithBinaryPath", func(t *testing.T) {
		source := NewNmapSource(zerolog.Nop(), WithBinaryPath("/opt/nmap/bin/nmap"))
		if source.binaryPath != "/opt/nmap/bin/nmap" {
			t.Errorf("expected binary path, got %s", source.binaryPath)
		}
	})
}

// TestNmapSource_Interface tests source interface implementation
func TestNmapSource_Interface(t *testing.T) {
	source := NewNmapSource(zerolog.Nop())

	if source.Name() != "nmap" {
		t.Errorf("expected name 'nmap', got %s", source.Name())
	}
	if source.Kind() != SourceKindActive {
		t.Errorf("expected kind active, got %s", source.Kind())
	}
}

// TestNmapSource_Unavailable tests the fallback signal when nmap is missing
func TestNmapSource_Unavailable(t *testing.T) {
	source := NewNmapSource(zerolog.Nop(), WithBinaryPath("/nonexistent/bin/nmap"))

	err := source.Discover(context.Background(), Target{Subnet: "192.168.1.0/24"}, func(domain.Endpoint) {
		t.Error("nothing should be reported")
	})
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

// TestNmapSource_ProcessResults tests parsing of mock nmap results
func TestNmapSource_ProcessResults(t *testing.T) {
	hints := NewHintLookup()
	source := NewNmapSource(zerolog.Nop(), WithHints(hints))

	// Create mock nmap result
	mockResult := &nmap.Run{
		Hosts: []nmap.Host{
			{
				Addresses: []nmap.Address{
					{Addr: "192.168.1.100", AddrType: "ipv4"},
					{Addr: "aa:bb:cc:dd:ee:ff", AddrType: "mac", Vendor: "Seiko Epson"},
				},
				Status: nmap.Status{State: "up"},
				Ports: []nmap.Port{
					{ID: 9100, Protocol: "tcp", State: nmap.State{State: "open"}},
				},
			},
			{
				// port filtered
				Addresses: []nmap.Address{{Addr: "192.168.1.101", AddrType: "ipv4"}},
				Status:    nmap.Status{State: "up"},
				Ports: []nmap.Port{
					{ID: 9100, Protocol: "tcp", State: nmap.State{State: "filtered"}},
				},
			},
			{
				// host down
				Addresses: []nmap.Address{{Addr: "192.168.1.102", AddrType: "ipv4"}},
				Status:    nmap.Status{State: "down"},
			},
			{
				// no MAC when scanned unprivileged
				Addresses: []nmap.Address{{Addr: "192.168.1.103", AddrType: "ipv4"}},
				Status:    nmap.Status{State: "up"},
				Ports: []nmap.Port{
					{ID: 9100, Protocol: "tcp", State: nmap.State{State: "open"}},
				},
			},
		},
	}

	var got []domain.Endpoint
	found := source.processResults(mockResult, 9100, func(ep domain.Endpoint) {
		got = append(got, ep)
	})

	if found != 2 {
		t.Fatalf("expected 2 endpoints, got %d", found)
	}
	if got[0].URI != "socket://192.168.1.100:9100" {
		t.Errorf("expected socket://192.168.1.100:9100, got %s", got[0].URI)
	}
	if got[0].Source != "nmap" {
		t.Errorf("expected source nmap, got %s", got[0].Source)
	}
	if got[1].IP != "192.168.1.103" {
		t.Errorf("expected 192.168.1.103, got %s", got[1].IP)
	}

	// Check MAC hint
	mac, err := hints.Lookup(context.Background(), "192.168.1.100")
	if err != nil {
		t.Fatalf("expected hint for 192.168.1.100: %v", err)
	}
	if mac != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("expected MAC AA:BB:CC:DD:EE:FF, got %s", mac)
	}
	if _, err := hints.Lookup(context.Background(), "192.168.1.103"); err == nil {
		t.Error("expected no hint for host without MAC")
	}
}

// TestNmapSource_ProcessNilResults tests a nil run
func TestNmapSource_ProcessNilResults(t *testing.T) {
	source := NewNmapSource(zerolog.Nop())
	if found := source.processResults(nil, 9100, func(domain.Endpoint) {}); found != 0 {
		t.Errorf("expected 0, got %d", found)
	}
}
