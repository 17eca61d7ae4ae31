package adapter

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Prober tests whether a TCP port accepts connections
type Prober interface {
	Probe(ctx context.Context, host string, port int, timeout time.Duration) bool
}

// TCPProber connects with a plain TCP dial
type TCPProber struct{}

// Probe attempts to connect to host:port within timeout
func (TCPProber) Probe(ctx context.Context, host string, port int, timeout time.Duration) bool {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(probeCtx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// ProberFunc adapts a function to Prober
type ProberFunc func(ctx context.Context, host string, port int, timeout time.Duration) bool

// Probe calls f
func (f ProberFunc) Probe(ctx context.Context, host string, port int, timeout time.Duration) bool {
	return f(ctx, host, port, timeout)
}
