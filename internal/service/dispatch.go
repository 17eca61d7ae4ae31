package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"printkeeper/internal/domain"
	"printkeeper/internal/repository"
)

// DefaultJobTitle is used when a request carries no title
const DefaultJobTitle = "printkeeper"

// RetryPolicy bounds dispatch attempts
type RetryPolicy struct {
	MaxAttempts int           `json:"max_attempts"`
	Delay       time.Duration `json:"delay"`
}

// DefaultRetryPolicy is used for interactive print requests
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second}
}

// BootRetryPolicy tolerates devices that are still powering up
func BootRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 10 * time.Second}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// JobRequest is an encoded job bound for one queue
type JobRequest struct {
	Queue string
	Title string
	Data  []byte
}

// ReadinessChecker is the readiness gate as the dispatcher uses it
type ReadinessChecker interface {
	Check(ctx context.Context, name string, remediate bool) Readiness
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// DispatchOption configures a Dispatcher
type DispatchOption func(*Dispatcher)

// WithSleeper replaces the wait between attempts
func WithSleeper(sleep Sleeper) DispatchOption {
	return func(d *Dispatcher) {
		d.sleep = sleep
	}
}

// WithDispatchHistory journals every submission
func WithDispatchHistory(history repository.History) DispatchOption {
	return func(d *Dispatcher) {
		d.history = history
	}
}

// WithDispatchEventBus publishes attempt outcomes
func WithDispatchEventBus(bus *EventBus) DispatchOption {
	return func(d *Dispatcher) {
		d.eventBus = bus
	}
}

// Dispatcher submits jobs with bounded retries, each attempt gated on readiness
type Dispatcher struct {
	gate     ReadinessChecker
	queues   QueueManager
	sleep    Sleeper
	history  repository.History
	eventBus *EventBus
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(gate ReadinessChecker, queues QueueManager, logger zerolog.Logger, opts ...DispatchOption) *Dispatcher {
	d := &Dispatcher{
		gate:   gate,
		queues: queues,
		sleep:  sleepContext,
		logger: logger.With().Str("component", "dispatch").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit sends req.Data to req.Queue and returns the spooler job id.
// Not ready and submit failures are retried alike. Once attempts run out
// the returned *domain.DispatchError reads as the last failure.
func (d *Dispatcher) Submit(ctx context.Context, req JobRequest, policy RetryPolicy) (string, error) {
	if req.Queue == "" {
		return "", fmt.Errorf("%w: no queue given", domain.ErrDispatch)
	}
	if len(req.Data) == 0 {
		return "", fmt.Errorf("%w: empty job for %s", domain.ErrDispatch, req.Queue)
	}
	if req.Title == "" {
		req.Title = DefaultJobTitle
	}
	policy = policy.normalized()

	dispatchErr := &domain.DispatchError{Queue: req.Queue}
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := d.sleep(ctx, policy.Delay); err != nil {
				dispatchErr.Cause = err
				break
			}
		} else if err := ctx.Err(); err != nil {
			dispatchErr.Cause = err
			break
		}

		jobID, failure := d.attempt(ctx, req, attempt)
		if failure == nil {
			d.logger.Info().Str("queue", req.Queue).Str("job_id", jobID).Int("attempt", attempt).
				Int("bytes", len(req.Data)).Msg("Job submitted")
			d.record(ctx, req, attempt, jobID, "")
			d.eventBus.Publish(Event{Type: EventDispatchComplete, Payload: map[string]interface{}{
				"queue":    req.Queue,
				"job_id":   jobID,
				"attempts": attempt,
			}})
			return jobID, nil
		}

		dispatchErr.Attempts = append(dispatchErr.Attempts, *failure)
		d.logger.Warn().Str("queue", req.Queue).Int("attempt", attempt).Int("max_attempts", policy.MaxAttempts).
			Str("reason", string(failure.Reason)).Msg(failure.Message)
		d.eventBus.Publish(Event{Type: EventDispatchAttempt, Payload: map[string]interface{}{
			"queue":   req.Queue,
			"attempt": attempt,
			"reason":  failure.Reason,
			"message": failure.Message,
		}})
	}

	d.logger.Error().Str("queue", req.Queue).Int("attempts", len(dispatchErr.Attempts)).
		Str("failures", dispatchErr.Summary()).Msg("Job dispatch failed")
	d.record(ctx, req, len(dispatchErr.Attempts), "", dispatchErr.Error())
	d.eventBus.Publish(Event{Type: EventDispatchComplete, Payload: map[string]interface{}{
		"queue":    req.Queue,
		"attempts": len(dispatchErr.Attempts),
		"error":    dispatchErr.Error(),
	}})
	return "", dispatchErr
}

func (d *Dispatcher) attempt(ctx context.Context, req JobRequest, attempt int) (string, *domain.AttemptFailure) {
	readiness := d.gate.Check(ctx, req.Queue, true)
	if !readiness.Ready {
		return "", &domain.AttemptFailure{
			Attempt: attempt,
			Reason:  readiness.Reason,
			Message: readiness.Message,
			Err:     readiness.Err(),
		}
	}

	jobID, err := d.queues.Submit(ctx, req.Queue, req.Title, req.Data)
	if err != nil {
		return "", &domain.AttemptFailure{
			Attempt: attempt,
			Reason:  domain.ReasonSubmitFailed,
			Message: fmt.Sprintf("Failed to submit job to %s: %v", req.Queue, err),
			Err:     err,
		}
	}
	return jobID, nil
}

func (d *Dispatcher) record(ctx context.Context, req JobRequest, attempts int, jobID, errMsg string) {
	if d.history == nil {
		return
	}
	entry := &domain.DispatchEntry{
		Queue:    req.Queue,
		Title:    req.Title,
		Bytes:    len(req.Data),
		Attempts: attempts,
		JobID:    jobID,
		Error:    errMsg,
	}
	if err := d.history.RecordDispatch(context.WithoutCancel(ctx), entry); err != nil {
		d.logger.Warn().Err(err).Str("queue", req.Queue).Msg("Failed to journal dispatch")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
