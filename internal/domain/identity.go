package domain

import (
	"fmt"
	"time"
)

// IdentityRecord binds a physical device to the queue it was last attached to.
// Records are keyed by HardwareAddress in the registry and never deleted.
type IdentityRecord struct {
	MAC       HardwareAddress `json:"-"`
	Name      string          `json:"name"`
	LastIP    string          `json:"last_ip"`
	LastURI   string          `json:"last_uri"`
	FirstSeen time.Time       `json:"first_seen"`
	LastSeen  time.Time       `json:"last_seen"`
}

// NewIdentityRecord creates a record first seen now
func NewIdentityRecord(mac HardwareAddress, name string, ep Endpoint, now time.Time) IdentityRecord {
	return IdentityRecord{
		MAC:       mac,
		Name:      name,
		LastIP:    ep.IP,
		LastURI:   ep.URI,
		FirstSeen: now,
		LastSeen:  now,
	}
}

// Sighted returns a copy updated for a new sighting at ep
func (r IdentityRecord) Sighted(ep Endpoint, now time.Time) IdentityRecord {
	r.LastIP = ep.IP
	r.LastURI = ep.URI
	r.LastSeen = now
	if r.FirstSeen.IsZero() {
		r.FirstSeen = now
	}
	return r
}

// Validate checks the fields a record must carry to be trusted
func (r IdentityRecord) Validate() error {
	if r.MAC == "" {
		return fmt.Errorf("record has no hardware address")
	}
	if _, err := ParseHardwareAddress(string(r.MAC)); err != nil {
		return err
	}
	if r.Name == "" {
		return fmt.Errorf("record %s has no queue name", r.MAC)
	}
	if r.LastURI == "" {
		return fmt.Errorf("record %s has no last uri", r.MAC)
	}
	return nil
}
