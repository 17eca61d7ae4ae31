// Package registry persists the mapping from hardware address to queue identity.
//
// The registry is the only source of truth for which physical device a queue
// belongs to. It is a JSON object keyed by MAC address:
//
//	{ "AA:BB:CC:DD:EE:01": { "name": "printer_1", "last_ip": "10.0.0.5",
//	    "last_uri": "socket://10.0.0.5:9100", "first_seen": "...", "last_seen": "..." } }
//
// Writes replace the whole file atomically. Records are never deleted.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"printkeeper/internal/domain"
)

// Records is the full registry content keyed by hardware address
type Records map[domain.HardwareAddress]domain.IdentityRecord

// Clone returns a deep copy
func (r Records) Clone() Records {
	if r == nil {
		return Records{}
	}
	return maps.Clone(r)
}

// Registry is a JSON file backed identity store.
// All load-modify-store cycles are serialized; reads use a stable snapshot.
type Registry struct {
	writeMu sync.Mutex // held for a whole Update cycle

	mu         sync.RWMutex
	path       string
	fallback   string
	resolved   bool
	records    Records
	loaded     bool
	onRelocate func(path string)

	logger zerolog.Logger
}

// New creates a registry stored at path, switching to fallback if path cannot be written.
// The choice is made before the first read and holds for reads and writes
// alike. An empty fallback disables the switch.
func New(path, fallback string, logger zerolog.Logger) *Registry {
	return &Registry{
		path:     path,
		fallback: fallback,
		records:  Records{},
		logger:   logger.With().Str("component", "registry").Logger(),
	}
}

// Path returns the file used for reads and writes
func (r *Registry) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolveLocked()
	return r.path
}

// OnRelocate registers fn to be called with the new path when a failed
// write moves the registry to its fallback. fn runs under the registry
// lock and must not call back into it.
func (r *Registry) OnRelocate(fn func(path string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRelocate = fn
}

// resolveLocked settles on the file to use. The fallback is taken when
// only it holds a registry from an earlier run, or when the primary
// directory cannot be written.
func (r *Registry) resolveLocked() {
	if r.resolved {
		return
	}
	r.resolved = true
	if r.fallback == "" || r.fallback == r.path {
		return
	}

	var msg string
	switch {
	case !fileExists(r.path) && fileExists(r.fallback):
		msg = "Using registry found at fallback location"
	case !dirWritable(filepath.Dir(r.path)):
		msg = "Registry directory not writable, using fallback location"
	default:
		return
	}
	r.logger.Info().Str("path", r.path).Str("fallback", r.fallback).Msg(msg)
	r.path, r.fallback = r.fallback, ""
}

// Load reads the registry file, replacing the in-memory state.
// Read or parse failures yield an empty mapping and are only logged.
// Malformed entries are skipped with a warning.
func (r *Registry) Load(ctx context.Context) Records {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked(ctx)
}

func (r *Registry) loadLocked(ctx context.Context) Records {
	r.resolveLocked()
	r.loaded = true
	r.records = Records{}

	if err := ctx.Err(); err != nil {
		r.logger.Warn().Err(err).Msg("Registry load cancelled, starting empty")
		return r.records.Clone()
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Debug().Str("path", r.path).Msg("No registry file yet")
		} else {
			r.logger.Warn().Err(ioError("read", r.path, err)).Msg("Registry unreadable, starting empty")
		}
		return r.records.Clone()
	}

	records, skipped, err := decode(data)
	if err != nil {
		r.logger.Warn().Err(ioError("parse", r.path, err)).Msg("Registry corrupt, starting empty")
		return r.records.Clone()
	}
	for key, reason := range skipped {
		r.logger.Warn().Str("key", key).Str("reason", reason).Msg("Skipping malformed registry entry")
	}

	r.records = records
	r.logger.Debug().Str("path", r.path).Int("records", len(records)).Msg("Registry loaded")
	return r.records.Clone()
}

// Reload re-reads the file after an external edit. It waits for an
// in-flight Update to finish first.
func (r *Registry) Reload(ctx context.Context) Records {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.Load(ctx)
}

// Save replaces the persisted mapping. The in-memory state becomes records
// even if writing fails, and stays authoritative for the rest of the run.
func (r *Registry) Save(ctx context.Context, records Records) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked(ctx, records)
}

func (r *Registry) saveLocked(ctx context.Context, records Records) error {
	r.resolveLocked()
	r.records = records.Clone()
	r.loaded = true

	if err := ctx.Err(); err != nil {
		return ioError("save", r.path, err)
	}

	data, err := encode(records)
	if err != nil {
		return ioError("encode", r.path, err)
	}

	err = writeAtomic(r.path, data)
	if err == nil {
		return nil
	}
	if r.fallback == "" || r.fallback == r.path {
		return ioError("save", r.path, err)
	}

	r.logger.Warn().Err(err).Str("path", r.path).Str("fallback", r.fallback).
		Msg("Registry not writable, switching to fallback location")

	failed := r.path
	r.path, r.fallback = r.fallback, ""
	if err := writeAtomic(r.path, data); err != nil {
		return fmt.Errorf("%w (after %s failed)", ioError("save", r.path, err), failed)
	}
	if r.onRelocate != nil {
		r.onRelocate(r.path)
	}
	return nil
}

// Update runs one locked load-modify-store cycle. fn mutates a private copy
// of the records and reports whether anything changed; only then is the
// copy stored. An error from fn discards the copy.
func (r *Registry) Update(ctx context.Context, fn func(Records) (bool, error)) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	if !r.loaded {
		r.loadLocked(ctx)
	}
	working := r.records.Clone()
	r.mu.Unlock()

	changed, err := fn(working)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked(ctx, working)
}

// Snapshot returns a copy of the current records
func (r *Registry) Snapshot() Records {
	r.mu.RLock()
	if r.loaded {
		defer r.mu.RUnlock()
		return r.records.Clone()
	}
	r.mu.RUnlock()

	return r.Load(context.Background())
}

// FindByMAC returns the record for a hardware address
func (r *Registry) FindByMAC(mac domain.HardwareAddress) (domain.IdentityRecord, bool) {
	return r.Snapshot().FindByMAC(mac)
}

// FindByQueueName returns the most recently seen record bound to a queue name
func (r *Registry) FindByQueueName(name string) (domain.IdentityRecord, bool) {
	return r.Snapshot().FindByQueueName(name)
}

// FindByMAC looks up a hardware address
func (r Records) FindByMAC(mac domain.HardwareAddress) (domain.IdentityRecord, bool) {
	rec, ok := r[mac]
	return rec, ok
}

// FindByQueueName returns the most recently seen record with the given name.
// Stale records may share a name with a live one.
func (r Records) FindByQueueName(name string) (domain.IdentityRecord, bool) {
	var (
		best  domain.IdentityRecord
		found bool
	)
	for _, rec := range r {
		if rec.Name != name {
			continue
		}
		if !found || rec.LastSeen.After(best.LastSeen) {
			best, found = rec, true
		}
	}
	return best, found
}

func ioError(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", domain.ErrRegistryIO, op, path, err)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// dirWritable reports whether a file can be created in dir, or in its
// nearest existing ancestor when dir does not exist yet.
func dirWritable(dir string) bool {
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return false
			}
			break
		}
		if !os.IsNotExist(err) {
			return false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}

	f, err := os.CreateTemp(dir, ".printkeeper-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	_ = os.Remove(name)
	return true
}

// writeAtomic writes data to a temp file in the target directory, syncs it
// and renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}

	// Persist the rename itself; not every filesystem supports this
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

// fileRecord is the on-disk entry shape
type fileRecord struct {
	Name      string `json:"name"`
	LastIP    string `json:"last_ip"`
	LastURI   string `json:"last_uri"`
	FirstSeen string `json:"first_seen"`
	LastSeen  string `json:"last_seen"`
}

// Timestamps written by older installs carry no zone
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func decode(data []byte) (Records, map[string]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}

	records := make(Records, len(raw))
	skipped := make(map[string]string)
	for key, msg := range raw {
		var fr fileRecord
		if err := json.Unmarshal(msg, &fr); err != nil {
			skipped[key] = err.Error()
			continue
		}
		mac, err := domain.ParseHardwareAddress(key)
		if err != nil {
			skipped[key] = err.Error()
			continue
		}
		rec := domain.IdentityRecord{
			MAC:       mac,
			Name:      fr.Name,
			LastIP:    fr.LastIP,
			LastURI:   fr.LastURI,
			FirstSeen: parseTimestamp(fr.FirstSeen),
			LastSeen:  parseTimestamp(fr.LastSeen),
		}
		if err := rec.Validate(); err != nil {
			skipped[key] = err.Error()
			continue
		}
		if prev, dup := records[mac]; dup && prev.LastSeen.After(rec.LastSeen) {
			// two spellings of one address; keep the fresher
			continue
		}
		records[mac] = rec
	}
	return records, skipped, nil
}

func encode(records Records) ([]byte, error) {
	out := make(map[string]fileRecord, len(records))
	for mac, rec := range records {
		out[string(mac)] = fileRecord{
			Name:      rec.Name,
			LastIP:    rec.LastIP,
			LastURI:   rec.LastURI,
			FirstSeen: formatTimestamp(rec.FirstSeen),
			LastSeen:  formatTimestamp(rec.LastSeen),
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
