package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"printkeeper/internal/adapter"
	"printkeeper/internal/domain"
)

// DefaultReadinessTimeout bounds the reachability probe
const DefaultReadinessTimeout = 5 * time.Second

// Readiness is the outcome of one readiness check
type Readiness struct {
	Queue   string                 `json:"queue"`
	Ready   bool                   `json:"ready"`
	Reason  domain.ReadinessReason `json:"reason"`
	Message string                 `json:"message"`

	// Remediated lists the administrative fixes applied during the check
	Remediated []string `json:"remediated,omitempty"`
}

// Err returns nil when ready and a *domain.ReadinessError otherwise
func (r Readiness) Err() error {
	if r.Ready {
		return nil
	}
	return &domain.ReadinessError{Queue: r.Queue, Reason: r.Reason, Message: r.Message}
}

// ReadinessGate decides whether a queue can take a job right now
type ReadinessGate struct {
	queues  QueueManager
	prober  adapter.Prober
	timeout time.Duration
	logger  zerolog.Logger
}

// NewReadinessGate creates a gate. A non-positive timeout uses the default.
func NewReadinessGate(queues QueueManager, prober adapter.Prober, timeout time.Duration, logger zerolog.Logger) *ReadinessGate {
	if timeout <= 0 {
		timeout = DefaultReadinessTimeout
	}
	return &ReadinessGate{
		queues:  queues,
		prober:  prober,
		timeout: timeout,
		logger:  logger.With().Str("component", "readiness").Logger(),
	}
}

// Check evaluates the queue, stopping at the first failing condition:
// existence, reachability, administrative state, then job acceptance.
// With remediate set a stopped or rejecting queue is fixed and re-read once.
func (g *ReadinessGate) Check(ctx context.Context, name string, remediate bool) Readiness {
	r := Readiness{Queue: name}

	queue, found, err := g.queues.Queue(ctx, name)
	if err != nil {
		return r.fail(domain.ReasonQueryFailed, fmt.Sprintf("Failed to query printer %s: %v", name, err))
	}
	if !found {
		return r.fail(domain.ReasonNotFound, fmt.Sprintf("Printer %s not found", name))
	}

	if device, err := domain.ParseDeviceURI(queue.URI); err == nil && device.Network() {
		if !g.prober.Probe(ctx, device.Host, device.Port, g.timeout) {
			return r.fail(domain.ReasonUnreachable,
				fmt.Sprintf("Printer %s is not reachable at %s", name, device.Address()))
		}
	}

	if queue.State == domain.QueueStateStopped {
		if !remediate {
			return r.fail(domain.ReasonStopped, stoppedMessage(queue))
		}
		if err := g.queues.Enable(ctx, name); err != nil {
			g.logger.Warn().Err(err).Str("queue", name).Msg("Failed to enable stopped queue")
			return r.fail(domain.ReasonStopped, stoppedMessage(queue))
		}
		r.Remediated = append(r.Remediated, "enable")

		queue, found, err = g.queues.Queue(ctx, name)
		if err != nil {
			return r.fail(domain.ReasonQueryFailed, fmt.Sprintf("Failed to query printer %s: %v", name, err))
		}
		if !found {
			return r.fail(domain.ReasonNotFound, fmt.Sprintf("Printer %s not found", name))
		}
		if queue.State == domain.QueueStateStopped {
			return r.fail(domain.ReasonStopped, stoppedMessage(queue))
		}
	}

	if !queue.Accepting {
		msg := fmt.Sprintf("Printer %s is not accepting jobs", name)
		if !remediate {
			return r.fail(domain.ReasonNotAccepting, msg)
		}
		if err := g.queues.Accept(ctx, name); err != nil {
			g.logger.Warn().Err(err).Str("queue", name).Msg("Failed to accept jobs on queue")
			return r.fail(domain.ReasonNotAccepting, msg)
		}
		r.Remediated = append(r.Remediated, "accept")

		queue, found, err = g.queues.Queue(ctx, name)
		if err != nil {
			return r.fail(domain.ReasonQueryFailed, fmt.Sprintf("Failed to query printer %s: %v", name, err))
		}
		if !found {
			return r.fail(domain.ReasonNotFound, fmt.Sprintf("Printer %s not found", name))
		}
		if !queue.Accepting {
			return r.fail(domain.ReasonNotAccepting, msg)
		}
	}

	if len(r.Remediated) > 0 {
		g.logger.Info().Str("queue", name).Strs("remediated", r.Remediated).Msg("Queue remediated")
	}

	r.Ready = true
	r.Reason = domain.ReasonReady
	r.Message = fmt.Sprintf("Printer %s is ready", name)
	return r
}

func (r Readiness) fail(reason domain.ReadinessReason, message string) Readiness {
	r.Ready = false
	r.Reason = reason
	r.Message = message
	return r
}

func stoppedMessage(q domain.Queue) string {
	if q.Message != "" {
		return fmt.Sprintf("Printer %s is stopped: %s", q.Name, q.Message)
	}
	return fmt.Sprintf("Printer %s is stopped", q.Name)
}
