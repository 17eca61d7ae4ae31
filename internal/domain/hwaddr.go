package domain

import (
	"fmt"
	"strings"
)

// HardwareAddress is a normalized link-layer address, e.g. "AA:BB:CC:DD:EE:01"
type HardwareAddress string

// ParseHardwareAddress normalizes a MAC address to uppercase colon-separated form.
// It accepts ':' or '-' separated octets, Cisco-style dotted groups and bare hex.
// All-zero and broadcast addresses are rejected; neighbor tables report them for
// incomplete entries.
func ParseHardwareAddress(s string) (HardwareAddress, error) {
	s = strings.TrimSpace(s)
	hex := strings.NewReplacer(":", "", "-", "", ".", "").Replace(s)

	// separated octets may omit leading zeros ("a:b:c:d:e:f")
	if strings.ContainsAny(s, ":-") {
		parts := strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == '-' })
		if len(parts) != 6 {
			return "", fmt.Errorf("invalid hardware address %q", s)
		}
		var b strings.Builder
		for _, p := range parts {
			switch len(p) {
			case 1:
				b.WriteByte('0')
				b.WriteString(p)
			case 2:
				b.WriteString(p)
			default:
				return "", fmt.Errorf("invalid hardware address %q", s)
			}
		}
		hex = b.String()
	}

	if len(hex) != 12 {
		return "", fmt.Errorf("invalid hardware address %q", s)
	}
	hex = strings.ToUpper(hex)
	for _, r := range hex {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			return "", fmt.Errorf("invalid hardware address %q", s)
		}
	}
	if hex == "000000000000" || hex == "FFFFFFFFFFFF" {
		return "", fmt.Errorf("unusable hardware address %q", s)
	}

	out := make([]string, 6)
	for i := range out {
		out[i] = hex[i*2 : i*2+2]
	}
	return HardwareAddress(strings.Join(out, ":")), nil
}

// HardwareAddressFromBytes formats a raw 6-byte address
func HardwareAddressFromBytes(b []byte) (HardwareAddress, error) {
	if len(b) != 6 {
		return "", fmt.Errorf("hardware address has %d bytes, want 6", len(b))
	}
	return ParseHardwareAddress(fmt.Sprintf("%02x%02x%02x%02x%02x%02x", b[0], b[1], b[2], b[3], b[4], b[5]))
}

// String returns the address text
func (h HardwareAddress) String() string {
	return string(h)
}
