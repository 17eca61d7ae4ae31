package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"printkeeper/internal/adapter"
	"printkeeper/internal/domain"
)

// countingProber answers reachable for the listed addresses
type countingProber struct {
	reachable map[string]bool
	calls     int
}

func (p *countingProber) Probe(ctx context.Context, host string, port int, timeout time.Duration) bool {
	p.calls++
	return p.reachable[host]
}

var _ adapter.Prober = (*countingProber)(nil)

func newGateTest(t *testing.T, reachable ...string) (*MockQueueManager, *countingProber, *ReadinessGate) {
	t.Helper()
	ctrl := gomock.NewController(t)
	queues := NewMockQueueManager(ctrl)
	prober := &countingProber{reachable: make(map[string]bool)}
	for _, host := range reachable {
		prober.reachable[host] = true
	}
	return queues, prober, NewReadinessGate(queues, prober, time.Second, zerolog.Nop())
}

func TestReadinessReady(t *testing.T) {
	queues, prober, gate := newGateTest(t, "10.0.0.5")
	queues.EXPECT().Queue(gomock.Any(), "printer_1").Return(socketQueue("printer_1", "10.0.0.5"), true, nil)

	r := gate.Check(context.Background(), "printer_1", true)
	assert.True(t, r.Ready)
	assert.Equal(t, domain.ReasonReady, r.Reason)
	assert.NoError(t, r.Err())
	assert.Equal(t, 1, prober.calls)
	assert.Empty(t, r.Remediated)
}

func TestReadinessNotFound(t *testing.T) {
	queues, prober, gate := newGateTest(t)
	queues.EXPECT().Queue(gomock.Any(), "printer_9").Return(domain.Queue{}, false, nil)

	r := gate.Check(context.Background(), "printer_9", true)
	assert.False(t, r.Ready)
	assert.Equal(t, domain.ReasonNotFound, r.Reason)
	assert.Equal(t, "Printer printer_9 not found", r.Message)
	assert.Zero(t, prober.calls)

	var rerr *domain.ReadinessError
	require.True(t, errors.As(r.Err(), &rerr))
	assert.Equal(t, domain.ReasonNotFound, rerr.Reason)
	assert.True(t, errors.Is(r.Err(), domain.ErrReadiness))
}

func TestReadinessUnreachableTakesPrecedence(t *testing.T) {
	queues, _, gate := newGateTest(t)
	q := socketQueue("printer_1", "10.0.0.5")
	q.State = domain.QueueStateStopped
	q.Accepting = false
	queues.EXPECT().Queue(gomock.Any(), "printer_1").Return(q, true, nil)
	// no Enable or Accept: the gate stops at reachability

	r := gate.Check(context.Background(), "printer_1", true)
	assert.False(t, r.Ready)
	assert.Equal(t, domain.ReasonUnreachable, r.Reason)
	assert.Equal(t, "Printer printer_1 is not reachable at 10.0.0.5:9100", r.Message)
}

func TestReadinessStopped(t *testing.T) {
	stopped := socketQueue("printer_1", "10.0.0.5")
	stopped.State = domain.QueueStateStopped
	stopped.Message = "Paused"

	t.Run("reported without remediation", func(t *testing.T) {
		queues, _, gate := newGateTest(t, "10.0.0.5")
		queues.EXPECT().Queue(gomock.Any(), "printer_1").Return(stopped, true, nil)

		r := gate.Check(context.Background(), "printer_1", false)
		assert.Equal(t, domain.ReasonStopped, r.Reason)
		assert.Equal(t, "Printer printer_1 is stopped: Paused", r.Message)
	})

	t.Run("enabled and re-checked", func(t *testing.T) {
		queues, _, gate := newGateTest(t, "10.0.0.5")
		gomock.InOrder(
			queues.EXPECT().Queue(gomock.Any(), "printer_1").Return(stopped, true, nil),
			queues.EXPECT().Enable(gomock.Any(), "printer_1").Return(nil),
			queues.EXPECT().Queue(gomock.Any(), "printer_1").Return(socketQueue("printer_1", "10.0.0.5"), true, nil),
		)

		r := gate.Check(context.Background(), "printer_1", true)
		assert.True(t, r.Ready)
		assert.Equal(t, []string{"enable"}, r.Remediated)
	})

	t.Run("still stopped after enable", func(t *testing.T) {
		queues, _, gate := newGateTest(t, "10.0.0.5")
		queues.EXPECT().Queue(gomock.Any(), "printer_1").Return(stopped, true, nil).Times(2)
		queues.EXPECT().Enable(gomock.Any(), "printer_1").Return(nil)

		r := gate.Check(context.Background(), "printer_1", true)
		assert.Equal(t, domain.ReasonStopped, r.Reason)
	})

	t.Run("enable fails", func(t *testing.T) {
		queues, _, gate := newGateTest(t, "10.0.0.5")
		queues.EXPECT().Queue(gomock.Any(), "printer_1").Return(stopped, true, nil)
		queues.EXPECT().Enable(gomock.Any(), "printer_1").Return(errors.New("cupsenable: Forbidden"))

		r := gate.Check(context.Background(), "printer_1", true)
		assert.Equal(t, domain.ReasonStopped, r.Reason)
	})
}

func TestReadinessNotAccepting(t *testing.T) {
	rejecting := socketQueue("printer_1", "10.0.0.5")
	rejecting.Accepting = false

	t.Run("reported without remediation", func(t *testing.T) {
		queues, _, gate := newGateTest(t, "10.0.0.5")
		queues.EXPECT().Queue(gomock.Any(), "printer_1").Return(rejecting, true, nil)

		r := gate.Check(context.Background(), "printer_1", false)
		assert.Equal(t, domain.ReasonNotAccepting, r.Reason)
		assert.Equal(t, "Printer printer_1 is not accepting jobs", r.Message)
	})

	t.Run("accepted and re-checked", func(t *testing.T) {
		queues, _, gate := newGateTest(t, "10.0.0.5")
		gomock.InOrder(
			queues.EXPECT().Queue(gomock.Any(), "printer_1").Return(rejecting, true, nil),
			queues.EXPECT().Accept(gomock.Any(), "printer_1").Return(nil),
			queues.EXPECT().Queue(gomock.Any(), "printer_1").Return(socketQueue("printer_1", "10.0.0.5"), true, nil),
		)

		r := gate.Check(context.Background(), "printer_1", true)
		assert.True(t, r.Ready)
		assert.Equal(t, []string{"accept"}, r.Remediated)
	})

	t.Run("still rejecting after accept", func(t *testing.T) {
		queues, _, gate := newGateTest(t, "10.0.0.5")
		queues.EXPECT().Queue(gomock.Any(), "printer_1").Return(rejecting, true, nil).Times(2)
		queues.EXPECT().Accept(gomock.Any(), "printer_1").Return(nil)

		r := gate.Check(context.Background(), "printer_1", true)
		assert.Equal(t, domain.ReasonNotAccepting, r.Reason)
	})
}

func TestReadinessStoppedAndRejecting(t *testing.T) {
	queues, _, gate := newGateTest(t, "10.0.0.5")
	q := socketQueue("printer_1", "10.0.0.5")
	q.State = domain.QueueStateStopped
	q.Accepting = false
	enabled := q
	enabled.State = domain.QueueStateIdle

	gomock.InOrder(
		queues.EXPECT().Queue(gomock.Any(), "printer_1").Return(q, true, nil),
		queues.EXPECT().Enable(gomock.Any(), "printer_1").Return(nil),
		queues.EXPECT().Queue(gomock.Any(), "printer_1").Return(enabled, true, nil),
		queues.EXPECT().Accept(gomock.Any(), "printer_1").Return(nil),
		queues.EXPECT().Queue(gomock.Any(), "printer_1").Return(socketQueue("printer_1", "10.0.0.5"), true, nil),
	)

	r := gate.Check(context.Background(), "printer_1", true)
	assert.True(t, r.Ready)
	assert.Equal(t, []string{"enable", "accept"}, r.Remediated)
}

func TestReadinessQueryFailed(t *testing.T) {
	queues, _, gate := newGateTest(t)
	queues.EXPECT().Queue(gomock.Any(), "printer_1").Return(domain.Queue{}, false, errors.New("lpstat: Scheduler is not running."))

	r := gate.Check(context.Background(), "printer_1", true)
	assert.False(t, r.Ready)
	assert.Equal(t, domain.ReasonQueryFailed, r.Reason)
	assert.Contains(t, r.Message, "Scheduler is not running")
}

func TestReadinessLocalQueueSkipsProbe(t *testing.T) {
	queues, prober, gate := newGateTest(t)
	usb := domain.Queue{Name: "kitchen", URI: "usb://EPSON/TM-T20III", State: domain.QueueStateIdle, Accepting: true}
	queues.EXPECT().Queue(gomock.Any(), "kitchen").Return(usb, true, nil)

	r := gate.Check(context.Background(), "kitchen", true)
	assert.True(t, r.Ready)
	assert.Zero(t, prober.calls)
}

func TestReadinessDefaultTimeout(t *testing.T) {
	gate := NewReadinessGate(nil, adapter.TCPProber{}, 0, zerolog.Nop())
	assert.Equal(t, DefaultReadinessTimeout, gate.timeout)
}
