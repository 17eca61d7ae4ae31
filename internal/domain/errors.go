package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every collaborator failure is wrapped into one of these.
var (
	ErrDiscovery  = errors.New("discovery failed")
	ErrResolution = errors.New("hardware address resolution failed")
	ErrRegistryIO = errors.New("identity registry i/o failed")
	ErrReadiness  = errors.New("queue not ready")
	ErrDispatch   = errors.New("job dispatch failed")
)

// ReadinessReason is a machine-checkable readiness outcome
type ReadinessReason string

const (
	ReasonReady        ReadinessReason = "ready"
	ReasonNotFound     ReadinessReason = "not_found"
	ReasonUnreachable  ReadinessReason = "unreachable"
	ReasonStopped      ReadinessReason = "stopped"
	ReasonNotAccepting ReadinessReason = "not_accepting"
	ReasonQueryFailed  ReadinessReason = "query_failed"
	ReasonSubmitFailed ReadinessReason = "submit_failed"
)

// ReadinessError reports why a queue cannot take a job
type ReadinessError struct {
	Queue   string
	Reason  ReadinessReason
	Message string
}

func (e *ReadinessError) Error() string {
	return e.Message
}

// Is matches ErrReadiness
func (e *ReadinessError) Is(target error) bool {
	return target == ErrReadiness
}

// AttemptFailure records why one dispatch attempt failed
type AttemptFailure struct {
	Attempt int             `json:"attempt"`
	Reason  ReadinessReason `json:"reason"`
	Message string          `json:"message"`
	Err     error           `json:"-"`
}

// DispatchError is returned once every attempt has failed.
// Its message is the last failure verbatim.
type DispatchError struct {
	Queue    string
	Attempts []AttemptFailure
	Cause    error // set when dispatch was aborted, e.g. by context cancellation
}

func (e *DispatchError) Error() string {
	if e.Cause != nil && len(e.Attempts) == 0 {
		return e.Cause.Error()
	}
	if last, ok := e.Last(); ok {
		return last.Message
	}
	return fmt.Sprintf("dispatch to %s failed", e.Queue)
}

// Last returns the final recorded attempt failure
func (e *DispatchError) Last() (AttemptFailure, bool) {
	if len(e.Attempts) == 0 {
		return AttemptFailure{}, false
	}
	return e.Attempts[len(e.Attempts)-1], true
}

// Reason returns the reason of the final attempt
func (e *DispatchError) Reason() ReadinessReason {
	last, _ := e.Last()
	return last.Reason
}

// Summary joins every attempt failure for reports
func (e *DispatchError) Summary() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("attempt %d: %s", a.Attempt, a.Message))
	}
	return strings.Join(parts, "; ")
}

// Is matches ErrDispatch
func (e *DispatchError) Is(target error) bool {
	return target == ErrDispatch
}

// Unwrap exposes the abort cause and the final attempt error
func (e *DispatchError) Unwrap() []error {
	var errs []error
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if last, ok := e.Last(); ok && last.Err != nil {
		errs = append(errs, last.Err)
	}
	return errs
}
