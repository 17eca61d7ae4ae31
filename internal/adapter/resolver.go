package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"printkeeper/internal/domain"
)

// MACResolver resolves the hardware address behind an IP, best effort
type MACResolver struct {
	prober      Prober
	lookups     []NeighborLookup
	port        int
	pokeTimeout time.Duration
	settle      time.Duration
	sleep       func(context.Context, time.Duration) error
	logger      zerolog.Logger
}

// ResolverOption configures a MACResolver
type ResolverOption func(*MACResolver)

// WithPokePort sets the port used to poke a host before the lookup
func WithPokePort(port int, timeout time.Duration) ResolverOption {
	return func(r *MACResolver) {
		r.port = port
		r.pokeTimeout = timeout
	}
}

// WithSettleDelay sets how long to wait for the neighbor cache after a poke
func WithSettleDelay(d time.Duration) ResolverOption {
	return func(r *MACResolver) {
		r.settle = d
	}
}

// WithSleeper replaces the settle sleep, mainly for tests
func WithSleeper(sleep func(context.Context, time.Duration) error) ResolverOption {
	return func(r *MACResolver) {
		r.sleep = sleep
	}
}

// WithResolverLogger sets the logger
func WithResolverLogger(logger zerolog.Logger) ResolverOption {
	return func(r *MACResolver) {
		r.logger = logger.With().Str("component", "mac-resolver").Logger()
	}
}

// NewMACResolver creates a resolver querying lookups in order
func NewMACResolver(prober Prober, lookups []NeighborLookup, opts ...ResolverOption) *MACResolver {
	r := &MACResolver{
		prober:      prober,
		lookups:     lookups,
		port:        domain.RawPrintPort,
		pokeTimeout: time.Second,
		settle:      500 * time.Millisecond,
		sleep:       sleepContext,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the address of the device at ip. The first lookup with an
// answer wins; failures fall through to the next mechanism.
func (r *MACResolver) Resolve(ctx context.Context, ip string) (domain.HardwareAddress, bool) {
	if r.prober != nil {
		// result ignored; the connect attempt is what fills the cache
		r.prober.Probe(ctx, ip, r.port, r.pokeTimeout)
		if r.settle > 0 {
			if err := r.sleep(ctx, r.settle); err != nil {
				return "", false
			}
		}
	}

	for _, lookup := range r.lookups {
		if ctx.Err() != nil {
			return "", false
		}
		hw, err := lookup.Lookup(ctx, ip)
		if err == nil && hw != "" {
			r.logger.Debug().Str("ip", ip).Str("mac", hw.String()).Str("via", lookup.Name()).Msg("Hardware address resolved")
			return hw, true
		}
		if err != nil {
			r.logger.Debug().
				Err(fmt.Errorf("%w: %s: %w", domain.ErrResolution, lookup.Name(), err)).
				Str("ip", ip).Msg("Lookup gave no address")
		}
	}

	r.logger.Debug().Str("ip", ip).Msg("No hardware address found")
	return "", false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
