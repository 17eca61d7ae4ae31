package service

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"printkeeper/internal/domain"
)

// BootJobTitle is the title of the notice printed on every queue at boot
const BootJobTitle = "boot-notify"

// Reconciler runs a discovery and reconciliation pass
type Reconciler interface {
	Run(ctx context.Context) (*Report, error)
}

// JobSubmitter sends a job with retries
type JobSubmitter interface {
	Submit(ctx context.Context, req JobRequest, policy RetryPolicy) (string, error)
}

// SchedulerProbe reports whether the spooler is accepting commands
type SchedulerProbe interface {
	SchedulerRunning(ctx context.Context) (bool, error)
}

// BootConfig sequences the boot flow
type BootConfig struct {
	Delay          time.Duration // devices settle before discovery
	StabilizeDelay time.Duration // new queues settle before the notices
	SpoolerWait    time.Duration // zero waits indefinitely
	PollInterval   time.Duration
	ServerPort     int
	Policy         RetryPolicy
}

// BootDeps are the collaborators of the boot flow
type BootDeps struct {
	// WaitForNetwork blocks until the host has a local address and returns it
	WaitForNetwork func(ctx context.Context) (string, error)
	Scheduler      SchedulerProbe
	Reconciler     Reconciler
	Queues         QueueManager
	Submitter      JobSubmitter
	Hostname       func() (string, error)
	Sleep          Sleeper
	Now            func() time.Time
}

// BootFailure is a queue that could not be notified
type BootFailure struct {
	Queue string `json:"queue"`
	Error string `json:"error"`
}

// BootSummary is the outcome of the boot flow
type BootSummary struct {
	Hostname       string        `json:"hostname"`
	LocalIP        string        `json:"local_ip"`
	Reconcile      *Report       `json:"reconcile,omitempty"`
	ReconcileError string        `json:"reconcile_error,omitempty"`
	Notified       []string      `json:"notified"`
	Failed         []BootFailure `json:"failed,omitempty"`
}

// String renders the closing summary line
func (s *BootSummary) String() string {
	return fmt.Sprintf("boot notices: %d sent, %d failed", len(s.Notified), len(s.Failed))
}

// BootNotifier brings the queue set up to date after a power cycle and
// prints a status notice on every queue
type BootNotifier struct {
	config BootConfig
	deps   BootDeps
	logger zerolog.Logger
}

// NewBootNotifier creates a boot notifier. Missing clock, sleeper and
// hostname collaborators use the real ones.
func NewBootNotifier(config BootConfig, deps BootDeps, logger zerolog.Logger) *BootNotifier {
	if deps.Sleep == nil {
		deps.Sleep = sleepContext
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Hostname == nil {
		deps.Hostname = os.Hostname
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.Policy.MaxAttempts == 0 {
		config.Policy = BootRetryPolicy()
	}
	return &BootNotifier{
		config: config,
		deps:   deps,
		logger: logger.With().Str("component", "boot").Logger(),
	}
}

// Run waits for the network and the spooler, reconciles, then notifies
// every configured queue. A failed reconciliation does not stop the
// notices; failing to reach the network or the spooler does.
func (b *BootNotifier) Run(ctx context.Context) (*BootSummary, error) {
	summary := &BootSummary{}
	summary.Hostname, _ = b.deps.Hostname()

	ip, err := b.deps.WaitForNetwork(ctx)
	if err != nil {
		return summary, err
	}
	summary.LocalIP = ip

	if err := b.waitForScheduler(ctx); err != nil {
		return summary, err
	}

	if b.config.Delay > 0 {
		b.logger.Info().Dur("delay", b.config.Delay).Msg("Waiting for network printers to boot")
		if err := b.deps.Sleep(ctx, b.config.Delay); err != nil {
			return summary, err
		}
	}

	report, err := b.deps.Reconciler.Run(ctx)
	if err != nil {
		summary.ReconcileError = err.Error()
		b.logger.Error().Err(err).Msg("Printer discovery failed, notifying configured queues")
	} else {
		summary.Reconcile = report
	}

	if b.config.StabilizeDelay > 0 {
		if err := b.deps.Sleep(ctx, b.config.StabilizeDelay); err != nil {
			return summary, err
		}
	}

	queues, err := b.deps.Queues.ListQueues(ctx)
	if err != nil {
		return summary, fmt.Errorf("list configured queues: %w", err)
	}
	if len(queues) == 0 {
		b.logger.Info().Msg("No printers configured")
		return summary, nil
	}

	for _, q := range queues {
		notice := RenderBootNotice(BootNotice{
			Hostname:   summary.Hostname,
			LocalIP:    summary.LocalIP,
			ServerPort: b.config.ServerPort,
			Queue:      q,
			Time:       b.deps.Now(),
		})
		req := JobRequest{Queue: q.Name, Title: BootJobTitle, Data: notice}
		if _, err := b.deps.Submitter.Submit(ctx, req, b.config.Policy); err != nil {
			summary.Failed = append(summary.Failed, BootFailure{Queue: q.Name, Error: err.Error()})
			continue
		}
		summary.Notified = append(summary.Notified, q.Name)
	}

	b.logger.Info().Int("sent", len(summary.Notified)).Int("failed", len(summary.Failed)).Msg(summary.String())
	return summary, nil
}

func (b *BootNotifier) waitForScheduler(ctx context.Context) error {
	if b.config.SpoolerWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.SpoolerWait)
		defer cancel()
	}

	for attempt := 1; ; attempt++ {
		running, err := b.deps.Scheduler.SchedulerRunning(ctx)
		if err == nil && running {
			b.logger.Info().Int("attempts", attempt).Msg("Spooler ready")
			return nil
		}
		b.logger.Debug().Err(err).Int("attempt", attempt).Msg("Waiting for spooler")

		if err := b.deps.Sleep(ctx, b.config.PollInterval); err != nil {
			return fmt.Errorf("waiting for spooler: %w", err)
		}
	}
}

// BootNotice is what a boot notice reports about the host and one queue
type BootNotice struct {
	Hostname   string
	LocalIP    string
	ServerPort int
	Queue      domain.Queue
	Time       time.Time
}

// RenderBootNotice formats a plain-text notice for a receipt printer
func RenderBootNotice(n BootNotice) []byte {
	var sb strings.Builder
	line := strings.Repeat("-", 32)

	sb.WriteString("PRINT SERVER ONLINE\n")
	sb.WriteString(line + "\n")
	fmt.Fprintf(&sb, "Host:    %s\n", valueOr(n.Hostname, "unknown"))
	fmt.Fprintf(&sb, "IP:      %s\n", valueOr(n.LocalIP, "unknown"))
	if n.LocalIP != "" && n.ServerPort > 0 {
		fmt.Fprintf(&sb, "Service: http://%s\n", net.JoinHostPort(n.LocalIP, strconv.Itoa(n.ServerPort)))
	}
	sb.WriteString(line + "\n")
	fmt.Fprintf(&sb, "Printer: %s\n", n.Queue.Name)
	if d := n.Queue.Device(); d.Network() {
		fmt.Fprintf(&sb, "Address: %s\n", d.Address())
	} else if n.Queue.URI != "" {
		fmt.Fprintf(&sb, "Device:  %s\n", n.Queue.URI)
	}
	sb.WriteString(line + "\n")
	fmt.Fprintf(&sb, "%s\n", n.Time.Format("2006-01-02 15:04:05"))
	sb.WriteString("\n\n\n\n")
	return []byte(sb.String())
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
