package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"

	"printkeeper/internal/domain"
)

// IF-MIB::ifPhysAddress
const oidIfPhysAddress = ".1.3.6.1.2.1.2.2.1.6"

var errFound = errors.New("found")

// SNMPLookup reads the device's own interface addresses over SNMP v2c.
// It reaches printers behind a router, where the neighbor cache cannot.
type SNMPLookup struct {
	Community string
	Port      uint16
	Timeout   time.Duration
	Retries   int
}

// NewSNMPLookup creates an SNMP lookup with default port and timeout
func NewSNMPLookup(community string) *SNMPLookup {
	return &SNMPLookup{
		Community: community,
		Port:      161,
		Timeout:   2 * time.Second,
		Retries:   1,
	}
}

// Name returns the lookup identifier
func (l *SNMPLookup) Name() string {
	return "snmp"
}

// Lookup walks ifPhysAddress and returns the first usable 6-byte address
func (l *SNMPLookup) Lookup(ctx context.Context, ip string) (domain.HardwareAddress, error) {
	client := &gosnmp.GoSNMP{
		Target:         ip,
		Port:           l.Port,
		Community:      l.Community,
		Version:        gosnmp.Version2c,
		Timeout:        l.Timeout,
		Retries:        l.Retries,
		MaxRepetitions: 10,
		Context:        ctx,
	}

	if err := client.Connect(); err != nil {
		return "", fmt.Errorf("snmp connect %s: %w", ip, err)
	}
	defer client.Conn.Close()

	var found domain.HardwareAddress
	err := client.BulkWalk(oidIfPhysAddress, func(pdu gosnmp.SnmpPDU) error {
		if pdu.Type != gosnmp.OctetString {
			return nil
		}
		raw, ok := pdu.Value.([]byte)
		if !ok {
			return nil
		}
		hw, err := domain.HardwareAddressFromBytes(raw)
		if err != nil {
			return nil // loopback and tunnels have no usable address
		}
		found = hw
		return errFound
	})
	if found != "" {
		return found, nil
	}
	if err != nil && !errors.Is(err, errFound) {
		return "", fmt.Errorf("snmp walk %s: %w", ip, err)
	}
	return "", ErrNoNeighbor
}
