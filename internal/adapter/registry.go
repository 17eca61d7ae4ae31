package adapter

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// DiscoveryEventFunc is called when discovery events occur
type DiscoveryEventFunc func(eventType string, payload interface{})

// SourceRegistry holds the discovery sources a scanner runs
type SourceRegistry struct {
	mu             sync.RWMutex
	order          []string
	sources        map[string]Source
	enabled        map[string]bool
	discoveryEvent DiscoveryEventFunc
	logger         zerolog.Logger
}

// NewSourceRegistry creates an empty source registry
func NewSourceRegistry(logger zerolog.Logger) *SourceRegistry {
	return &SourceRegistry{
		sources: make(map[string]Source),
		enabled: make(map[string]bool),
		logger:  logger.With().Str("component", "sources").Logger(),
	}
}

// SetDiscoveryEventHandler sets the handler for discovery events
func (r *SourceRegistry) SetDiscoveryEventHandler(handler DiscoveryEventFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discoveryEvent = handler
}

// PublishDiscoveryEvent implements EventPublisher interface
func (r *SourceRegistry) PublishDiscoveryEvent(eventType string, payload interface{}) {
	r.mu.RLock()
	handler := r.discoveryEvent
	r.mu.RUnlock()

	if handler != nil {
		handler(eventType, payload)
	}
}

// Register adds a source to the registry
func (r *SourceRegistry) Register(source Source, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := source.Name()
	if _, exists := r.sources[name]; exists {
		return fmt.Errorf("source %s already registered", name)
	}

	// Set event publisher if source supports it
	if ps, ok := source.(ProgressSource); ok {
		ps.SetEventPublisher(r)
	}

	r.sources[name] = source
	r.enabled[name] = enabled
	r.order = append(r.order, name)
	r.logger.Info().Str("source", name).Str("kind", string(source.Kind())).Bool("enabled", enabled).Msg("Registered discovery source")

	return nil
}

// SetEnabled turns a registered source on or off
func (r *SourceRegistry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[name]; !exists {
		return fmt.Errorf("source %s not found", name)
	}
	r.enabled[name] = enabled
	return nil
}

// Enabled returns the enabled sources in registration order
func (r *SourceRegistry) Enabled() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Source, 0, len(r.order))
	for _, name := range r.order {
		if r.enabled[name] {
			out = append(out, r.sources[name])
		}
	}
	return out
}

// ListSources returns information about registered sources
func (r *SourceRegistry) ListSources() []SourceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]SourceInfo, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, SourceInfo{
			Name:    name,
			Kind:    r.sources[name].Kind(),
			Enabled: r.enabled[name],
		})
	}
	return infos
}

// SourceInfo provides read-only information about a source
type SourceInfo struct {
	Name    string     `json:"name"`
	Kind    SourceKind `json:"kind"`
	Enabled bool       `json:"enabled"`
}
