package domain

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// RawPrintPort is the conventional raw byte-stream print port
const RawPrintPort = 9100

// Endpoint is a discovered network location offering raw print service
type Endpoint struct {
	IP     string `json:"ip"`
	Port   int    `json:"port"`
	URI    string `json:"uri"`
	Source string `json:"source,omitempty"` // Discovery source that reported it first
}

// NewEndpoint creates an endpoint with its canonical socket URI
func NewEndpoint(ip string, port int) Endpoint {
	if port <= 0 {
		port = RawPrintPort
	}
	return Endpoint{
		IP:   ip,
		Port: port,
		URI:  SocketURI(ip, port),
	}
}

// SocketURI formats the canonical raw-print URI for an address
func SocketURI(ip string, port int) string {
	return fmt.Sprintf("socket://%s", net.JoinHostPort(ip, strconv.Itoa(port)))
}

// URIScheme identifies a queue target URI scheme
type URIScheme string

const (
	SchemeSocket URIScheme = "socket"
	SchemeIPP    URIScheme = "ipp"
	SchemeIPPS   URIScheme = "ipps"
	SchemeLPD    URIScheme = "lpd"
	SchemeHTTP   URIScheme = "http"
	SchemeHTTPS  URIScheme = "https"
	SchemeUSB    URIScheme = "usb"
	SchemeSerial URIScheme = "serial"
	SchemeDNSSD  URIScheme = "dnssd"
)

var defaultPorts = map[URIScheme]int{
	SchemeSocket: RawPrintPort,
	SchemeIPP:    631,
	SchemeIPPS:   631,
	SchemeLPD:    515,
	SchemeHTTP:   80,
	SchemeHTTPS:  443,
}

// DeviceURI is the metadata extracted from a queue target URI
type DeviceURI struct {
	Raw    string    `json:"uri"`
	Scheme URIScheme `json:"type"`
	Host   string    `json:"host,omitempty"`
	Port   int       `json:"port,omitempty"`
}

// ParseDeviceURI extracts scheme, host and port from a queue target URI.
// Unknown schemes are returned with only Raw and Scheme set.
func ParseDeviceURI(raw string) (DeviceURI, error) {
	raw = strings.TrimSpace(raw)
	d := DeviceURI{Raw: raw}

	scheme, _, ok := strings.Cut(raw, ":")
	if !ok || scheme == "" {
		return d, fmt.Errorf("device uri %q has no scheme", raw)
	}
	d.Scheme = URIScheme(strings.ToLower(scheme))

	switch d.Scheme {
	case SchemeUSB, SchemeSerial, SchemeDNSSD:
		return d, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return d, fmt.Errorf("parse device uri %q: %w", raw, err)
	}
	d.Host = u.Hostname()
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return d, fmt.Errorf("device uri %q has invalid port %q", raw, p)
		}
		d.Port = port
	} else {
		d.Port = defaultPorts[d.Scheme]
	}
	return d, nil
}

// Network reports whether the URI targets a network host and port
func (d DeviceURI) Network() bool {
	return d.Host != "" && d.Port > 0
}

// Rescannable reports whether discovery keeps this target up to date
func (d DeviceURI) Rescannable() bool {
	return d.Scheme == SchemeSocket && d.Network()
}

// Address returns host:port for network targets
func (d DeviceURI) Address() string {
	if !d.Network() {
		return ""
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}
