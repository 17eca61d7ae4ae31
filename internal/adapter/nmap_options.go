package adapter

import (
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
)

// NmapOption is a functional option for configuring NmapSource
type NmapOption func(*NmapSource)

// WithBinaryPath sets an explicit nmap binary
func WithBinaryPath(path string) NmapOption {
	return func(n *NmapSource) {
		n.binaryPath = path
	}
}

// WithHostTimeout sets how long nmap spends on one host (--host-timeout)
func WithHostTimeout(d time.Duration) NmapOption {
	return func(n *NmapSource) {
		if d > 0 {
			n.hostTimeout = d
		}
	}
}

// WithTiming sets the timing template (-T0..-T5)
func WithTiming(t nmap.Timing) NmapOption {
	return func(n *NmapSource) {
		n.timing = t
	}
}

// WithHints makes the source record observed MAC addresses
func WithHints(h *HintLookup) NmapOption {
	return func(n *NmapSource) {
		n.hints = h
	}
}
