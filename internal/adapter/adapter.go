package adapter

import (
	"context"
	"errors"

	"printkeeper/internal/domain"
)

// SourceKind defines how a source finds endpoints
type SourceKind string

const (
	// SourceKindPassive - reads existing advertisements, sends no probes
	SourceKindPassive SourceKind = "passive"
	// SourceKindActive - probes hosts on the subnet
	SourceKindActive SourceKind = "active"
)

// ErrSourceUnavailable is returned by a source that cannot run on this host
var ErrSourceUnavailable = errors.New("discovery source unavailable")

// ReportFunc receives each endpoint as soon as a source finds it
type ReportFunc func(domain.Endpoint)

// Source defines the interface for endpoint discovery strategies
type Source interface {
	// Name returns the unique identifier for this source
	Name() string

	// Kind returns whether the source is passive or active
	Kind() SourceKind

	// Discover reports endpoints until done or ctx expires. Endpoints
	// reported before an error still count.
	Discover(ctx context.Context, target Target, report ReportFunc) error
}

// Target is the network segment a pass covers
type Target struct {
	Subnet string // CIDR, empty when unknown
	Port   int
}

// EventPublisher allows sources to publish progress events
type EventPublisher interface {
	PublishDiscoveryEvent(eventType string, payload interface{})
}

// Discovery event types
const (
	EventDiscoveryStarted  = "discovery-started"
	EventDiscoveryProgress = "discovery-progress"
	EventDiscoveryComplete = "discovery-complete"
)

// fallbackSource runs secondary when primary is unavailable
type fallbackSource struct {
	primary   Source
	secondary Source
}

// Fallback returns a source that tries primary and, if it reports
// ErrSourceUnavailable, runs secondary instead
func Fallback(primary, secondary Source) Source {
	return &fallbackSource{primary: primary, secondary: secondary}
}

func (f *fallbackSource) Name() string {
	return f.primary.Name() + "|" + f.secondary.Name()
}

func (f *fallbackSource) Kind() SourceKind {
	return f.primary.Kind()
}

func (f *fallbackSource) Discover(ctx context.Context, target Target, report ReportFunc) error {
	err := f.primary.Discover(ctx, target, report)
	if errors.Is(err, ErrSourceUnavailable) {
		return f.secondary.Discover(ctx, target, report)
	}
	return err
}

// SetEventPublisher forwards the publisher to both wrapped sources
func (f *fallbackSource) SetEventPublisher(pub EventPublisher) {
	for _, s := range []Source{f.primary, f.secondary} {
		if ps, ok := s.(ProgressSource); ok {
			ps.SetEventPublisher(pub)
		}
	}
}

// ProgressSource is a source that can publish progress events
type ProgressSource interface {
	Source
	SetEventPublisher(pub EventPublisher)
}
