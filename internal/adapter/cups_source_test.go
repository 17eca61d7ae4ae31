package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printkeeper/internal/domain"
)

type stubLister struct {
	uris []string
	err  error
}

func (s stubLister) ListDevices(context.Context) ([]string, error) {
	return s.uris, s.err
}

func TestCUPSSourceDiscover(t *testing.T) {
	src := NewCUPSSource(stubLister{uris: []string{
		"socket://10.0.0.5:9100",
		"socket://10.0.0.6",
		"ipp://10.0.0.7/ipp/print",
		"usb://EPSON/TM-T20II",
		"dnssd://TM-T88V._pdl-datastream._tcp.local/",
	}}, zerolog.Nop())
	assert.Equal(t, SourceKindPassive, src.Kind())

	var got []domain.Endpoint
	err := src.Discover(context.Background(), Target{}, func(ep domain.Endpoint) {
		got = append(got, ep)
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, domain.Endpoint{IP: "10.0.0.5", Port: 9100, URI: "socket://10.0.0.5:9100", Source: "cups"}, got[0])
	assert.Equal(t, "socket://10.0.0.6", got[1].URI, "the spooler's URI is kept verbatim")
	assert.Equal(t, 9100, got[1].Port)
}

func TestCUPSSourceError(t *testing.T) {
	src := NewCUPSSource(stubLister{err: errors.New("lpinfo: exit status 1")}, zerolog.Nop())
	err := src.Discover(context.Background(), Target{}, func(domain.Endpoint) {})
	assert.Error(t, err)
}
