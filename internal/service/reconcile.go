package service

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"printkeeper/internal/domain"
	"printkeeper/internal/registry"
	"printkeeper/internal/repository"
)

// Report is the outcome of one reconciliation pass
type Report struct {
	PassID     string          `json:"pass_id"`
	StartedAt  time.Time       `json:"started_at"`
	Duration   time.Duration   `json:"duration"`
	Endpoints  int             `json:"endpoints"`
	Actions    []domain.Action `json:"actions"`
	Added      int             `json:"added"`
	Updated    int             `json:"updated"`
	Reattached int             `json:"reattached"`
	Registered int             `json:"registered"`
	Skipped    int             `json:"skipped"`
	Failed     int             `json:"failed"`

	// RegistryError is set when the pass succeeded but the registry could
	// not be written. The in-memory registry still holds the new state.
	RegistryError string `json:"registry_error,omitempty"`
}

func (r *Report) add(a domain.Action) {
	r.Actions = append(r.Actions, a)
	if a.Error != "" {
		r.Failed++
		return
	}
	switch a.Kind {
	case domain.ActionAddNew:
		r.Added++
	case domain.ActionUpdateURI:
		r.Updated++
	case domain.ActionReattach:
		r.Reattached++
	case domain.ActionRegisterMacOnly:
		r.Registered++
	default:
		r.Skipped++
	}
}

// Changes returns the actions that were not skips
func (r *Report) Changes() []domain.Action {
	var changes []domain.Action
	for _, a := range r.Actions {
		if a.Changes() {
			changes = append(changes, a)
		}
	}
	return changes
}

// Summary renders the counts for logs and command output
func (r *Report) Summary() string {
	return fmt.Sprintf("%d endpoints: %d added, %d updated, %d reattached, %d registered, %d unchanged, %d failed",
		r.Endpoints, r.Added, r.Updated, r.Reattached, r.Registered, r.Skipped, r.Failed)
}

// ReconcileOption configures a ReconcileService
type ReconcileOption func(*ReconcileService)

// WithQueuePrefix sets the prefix of allocated queue names
func WithQueuePrefix(prefix string) ReconcileOption {
	return func(s *ReconcileService) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithClock replaces time.Now for record timestamps
func WithClock(now func() time.Time) ReconcileOption {
	return func(s *ReconcileService) {
		s.now = now
	}
}

// WithHistory journals every pass
func WithHistory(history repository.History) ReconcileOption {
	return func(s *ReconcileService) {
		s.history = history
	}
}

// WithEventBus publishes pass progress
func WithEventBus(bus *EventBus) ReconcileOption {
	return func(s *ReconcileService) {
		s.eventBus = bus
	}
}

// ReconcileService keeps the configured queue set consistent with the
// devices found on the network, one queue per physical device.
type ReconcileService struct {
	mu sync.Mutex // one pass at a time

	queues   QueueManager
	scanner  EndpointScanner
	resolver HardwareResolver
	store    IdentityStore
	history  repository.History
	eventBus *EventBus

	prefix string
	now    func() time.Time
	logger zerolog.Logger
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(queues QueueManager, scanner EndpointScanner, resolver HardwareResolver,
	store IdentityStore, logger zerolog.Logger, opts ...ReconcileOption) *ReconcileService {
	s := &ReconcileService{
		queues:   queues,
		scanner:  scanner,
		resolver: resolver,
		store:    store,
		prefix:   domain.DefaultQueuePrefix,
		now:      time.Now,
		logger:   logger.With().Str("component", "reconcile").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run discovers endpoints and reconciles the queue set against them.
// A scan that hits its ceiling still yields a pass over what was found.
// A scan cut short by ctx yields no pass. Spooler calls would fail under
// the same ctx, so the partial endpoints are logged and dropped.
func (s *ReconcileService) Run(ctx context.Context) (*Report, error) {
	endpoints, err := s.scanner.Scan(ctx)
	if err != nil {
		if len(endpoints) > 0 {
			s.logger.Warn().Err(err).Int("endpoints", len(endpoints)).Msg("Discovery interrupted, partial endpoints not reconciled")
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrDiscovery, err)
	}
	return s.ReconcileEndpoints(ctx, endpoints)
}

// ReconcileEndpoints runs one pass over already discovered endpoints.
// Each action is applied before the next endpoint is planned; the registry
// is stored once at the end when a record changed.
func (s *ReconcileService) ReconcileEndpoints(ctx context.Context, endpoints []domain.Endpoint) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &Report{PassID: uuid.NewString(), StartedAt: s.now()}
	endpoints = dedupeEndpoints(endpoints)
	report.Endpoints = len(endpoints)

	s.eventBus.Publish(Event{Type: EventReconcileStarted, Payload: map[string]interface{}{
		"pass_id":   report.PassID,
		"endpoints": len(endpoints),
	}})
	s.logger.Info().Str("pass_id", report.PassID).Int("endpoints", len(endpoints)).Msg("Reconciliation pass started")

	var fatal error
	// the store outlives ctx so a cancelled pass still persists its progress
	err := s.store.Update(context.WithoutCancel(ctx), func(records registry.Records) (bool, error) {
		queues, err := s.queues.ListQueues(ctx)
		if err != nil {
			fatal = fmt.Errorf("%w: list configured queues: %w", domain.ErrDiscovery, err)
			return false, fatal
		}
		state := newPassState(queues, records)

		for _, ep := range endpoints {
			if ctx.Err() != nil {
				s.logger.Warn().Err(ctx.Err()).Msg("Reconciliation pass interrupted, keeping partial progress")
				break
			}
			action := s.plan(ctx, state, ep)
			s.apply(ctx, state, &action, ep)
			report.add(action)

			s.eventBus.Publish(Event{Type: EventActionApplied, Payload: action})
		}
		return state.changed, nil
	})
	if fatal != nil {
		return nil, fatal
	}
	if err != nil {
		report.RegistryError = err.Error()
		s.logger.Error().Err(err).Msg("Failed to persist identity registry")
	}

	report.Duration = s.now().Sub(report.StartedAt)

	if s.history != nil {
		if err := s.history.RecordActions(context.WithoutCancel(ctx), report.PassID, report.Actions); err != nil {
			s.logger.Warn().Err(err).Str("pass_id", report.PassID).Msg("Failed to journal actions")
		}
	}

	s.eventBus.Publish(Event{Type: EventReconcileComplete, Payload: report})
	s.logger.Info().Str("pass_id", report.PassID).Dur("duration", report.Duration).Msg(report.Summary())

	return report, nil
}

// plan decides the action for one endpoint. Hardware identity wins over a
// matching queue target.
func (s *ReconcileService) plan(ctx context.Context, state *passState, ep domain.Endpoint) domain.Action {
	key := targetKey(ep.URI)

	mac, resolved := s.resolver.Resolve(ctx, ep.IP)
	if !resolved {
		if name, ok := state.targets[key]; ok {
			return domain.Skip(name, ep.URI, "")
		}
		return domain.AddNew(state.nextName(s.prefix), ep.URI, "")
	}

	if state.seen[mac] {
		// same device answering on a second address this pass
		return domain.Skip(state.records[mac].Name, ep.URI, mac)
	}

	if rec, ok := state.records.FindByMAC(mac); ok {
		queue, exists := state.queues[rec.Name]
		switch {
		case !exists:
			return domain.Reattach(rec.Name, ep.URI, mac)
		case targetKey(rec.LastURI) == key:
			return domain.Skip(rec.Name, ep.URI, mac)
		default:
			return domain.UpdateURI(rec.Name, queue.URI, ep.URI, mac)
		}
	}

	if name, ok := state.targets[key]; ok && !state.ownedByOther(name, mac) {
		return domain.RegisterMacOnly(mac, name, ep.URI)
	}
	return domain.AddNew(state.nextName(s.prefix), ep.URI, mac)
}

// apply runs an action against the queue manager and, on success, folds it
// into the pass state. A failed action leaves the records untouched.
func (s *ReconcileService) apply(ctx context.Context, state *passState, action *domain.Action, ep domain.Endpoint) {
	var err error
	switch action.Kind {
	case domain.ActionAddNew, domain.ActionReattach:
		err = s.queues.CreateQueue(ctx, action.Name, action.URI)
	case domain.ActionUpdateURI:
		err = s.queues.SetQueueURI(ctx, action.Name, action.URI)
	}
	if err != nil {
		action.Error = err.Error()
		s.logger.Error().Err(err).Str("action", action.String()).Msg("Failed to apply reconciliation action")
		return
	}

	if action.Kind != domain.ActionSkip {
		action.Applied = true
		s.logger.Info().Str("action", action.String()).Msg("Applied reconciliation action")
		if action.Identityless {
			s.logger.Warn().Str("queue", action.Name).Str("uri", action.URI).
				Msg("Created queue without hardware identity, a later pass may duplicate it")
		}
	}
	state.commit(*action, ep, s.now())
}

// passState is the working view of queues and records during one pass
type passState struct {
	records registry.Records
	queues  map[string]domain.Queue
	targets map[string]string               // target key -> queue name
	seen    map[domain.HardwareAddress]bool // devices with an applied action this pass
	changed bool
}

func newPassState(queues []domain.Queue, records registry.Records) *passState {
	state := &passState{
		records: records,
		queues:  make(map[string]domain.Queue, len(queues)),
		targets: make(map[string]string, len(queues)),
		seen:    make(map[domain.HardwareAddress]bool),
	}
	for _, q := range queues {
		state.queues[q.Name] = q
		if q.URI != "" {
			state.targets[targetKey(q.URI)] = q.Name
		}
	}
	return state
}

func (p *passState) nextName(prefix string) string {
	names := make([]string, 0, len(p.queues))
	for name := range p.queues {
		names = append(names, name)
	}
	return domain.NextQueueName(prefix, names)
}

// ownedByOther reports whether a queue name is bound to another device
func (p *passState) ownedByOther(name string, mac domain.HardwareAddress) bool {
	for m, rec := range p.records {
		if rec.Name == name && m != mac {
			return true
		}
	}
	return false
}

func (p *passState) commit(a domain.Action, ep domain.Endpoint, now time.Time) {
	switch a.Kind {
	case domain.ActionAddNew, domain.ActionReattach:
		p.queues[a.Name] = domain.Queue{Name: a.Name, URI: a.URI, State: domain.QueueStateIdle, Accepting: true}
		p.targets[targetKey(a.URI)] = a.Name
	case domain.ActionUpdateURI:
		if q, ok := p.queues[a.Name]; ok {
			if old := targetKey(q.URI); p.targets[old] == a.Name {
				delete(p.targets, old)
			}
			q.URI = a.URI
			p.queues[a.Name] = q
		}
		p.targets[targetKey(a.URI)] = a.Name
	}

	if a.MAC == "" {
		return
	}
	if p.seen[a.MAC] {
		return
	}
	p.seen[a.MAC] = true
	if rec, ok := p.records[a.MAC]; ok {
		p.records[a.MAC] = rec.Sighted(ep, now)
	} else {
		p.records[a.MAC] = domain.NewIdentityRecord(a.MAC, a.Name, ep, now)
	}
	p.changed = true
}

// dedupeEndpoints drops repeated targets, keeping the first report
func dedupeEndpoints(endpoints []domain.Endpoint) []domain.Endpoint {
	seen := make(map[string]bool, len(endpoints))
	out := make([]domain.Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		if ep.URI == "" {
			ep = domain.NewEndpoint(ep.IP, ep.Port)
		}
		key := targetKey(ep.URI)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ep)
	}
	return out
}

// targetKey normalizes a queue target for comparison. Network URIs compare
// by scheme, host and port so socket://h and socket://h:9100 match.
func targetKey(uri string) string {
	d, err := domain.ParseDeviceURI(uri)
	if err != nil || !d.Network() {
		return strings.TrimSpace(uri)
	}
	return string(d.Scheme) + "://" + strings.ToLower(net.JoinHostPort(d.Host, strconv.Itoa(d.Port)))
}
