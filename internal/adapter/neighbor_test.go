package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printkeeper/internal/domain"
	"printkeeper/internal/shell"
)

func TestHintLookup(t *testing.T) {
	ctx := context.Background()
	h := NewHintLookup()

	h.Observe("10.0.0.5", "aa-bb-cc-dd-ee-01")
	h.Observe("10.0.0.6", "not-a-mac")

	hw, err := h.Lookup(ctx, "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, domain.HardwareAddress("AA:BB:CC:DD:EE:01"), hw)

	_, err = h.Lookup(ctx, "10.0.0.6")
	assert.ErrorIs(t, err, ErrNoNeighbor)

	h.Reset()
	_, err = h.Lookup(ctx, "10.0.0.5")
	assert.ErrorIs(t, err, ErrNoNeighbor)
}

func TestIPNeighborLookup(t *testing.T) {
	ctx := context.Background()
	runner := shell.NewFake().
		On("ip neighbor show 10.0.0.5", "10.0.0.5 dev eth0 lladdr aa:bb:cc:dd:ee:01 REACHABLE\n").
		On("ip neighbor show 10.0.0.6", "10.0.0.6 dev eth0  FAILED\n").
		On("ip neighbor show 10.0.0.7", "")
	lookup := IPNeighborLookup{Runner: runner}

	hw, err := lookup.Lookup(ctx, "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, domain.HardwareAddress("AA:BB:CC:DD:EE:01"), hw)

	_, err = lookup.Lookup(ctx, "10.0.0.6")
	assert.ErrorIs(t, err, ErrNoNeighbor)

	_, err = lookup.Lookup(ctx, "10.0.0.7")
	assert.ErrorIs(t, err, ErrNoNeighbor)

	_, err = lookup.Lookup(ctx, "10.0.0.8")
	assert.ErrorIs(t, err, shell.ErrNotInstalled)
}

func TestARPCommandLookup(t *testing.T) {
	ctx := context.Background()
	runner := shell.NewFake().
		On("arp -n 10.0.0.5", "Address                  HWtype  HWaddress           Flags Mask            Iface\n"+
			"10.0.0.5                 ether   aa-bb-cc-dd-ee-02   C                     eth0\n").
		On("arp -n 10.0.0.6", "Address                  HWtype  HWaddress           Flags Mask            Iface\n"+
			"10.0.0.6                         (incomplete)                              eth0\n")
	lookup := ARPCommandLookup{Runner: runner}

	hw, err := lookup.Lookup(ctx, "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, domain.HardwareAddress("AA:BB:CC:DD:EE:02"), hw)

	_, err = lookup.Lookup(ctx, "10.0.0.6")
	assert.ErrorIs(t, err, ErrNoNeighbor)
}

func TestProcARPLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arp")
	table := "IP address       HW type     Flags       HW address            Mask     Device\n" +
		"10.0.0.5         0x1         0x2         aa:bb:cc:dd:ee:03     *        eth0\n" +
		"10.0.0.6         0x1         0x0         00:00:00:00:00:00     *        eth0\n"
	require.NoError(t, os.WriteFile(path, []byte(table), 0o644))

	ctx := context.Background()
	lookup := ProcARPLookup{Path: path}

	hw, err := lookup.Lookup(ctx, "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, domain.HardwareAddress("AA:BB:CC:DD:EE:03"), hw)

	_, err = lookup.Lookup(ctx, "10.0.0.6")
	assert.ErrorIs(t, err, ErrNoNeighbor, "incomplete entries are not answers")

	_, err = lookup.Lookup(ctx, "10.0.0.9")
	assert.ErrorIs(t, err, ErrNoNeighbor)

	_, err = ProcARPLookup{Path: filepath.Join(t.TempDir(), "missing")}.Lookup(ctx, "10.0.0.5")
	assert.Error(t, err)
}
