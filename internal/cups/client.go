// Package cups drives the CUPS spooler through its command-line tools.
//
// Queue state is read with lpstat, queues are created and retargeted with
// lpadmin, and raw jobs are submitted with lp. Every call reads fresh state;
// nothing is cached between calls.
package cups

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"printkeeper/internal/domain"
	"printkeeper/internal/shell"
)

var (
	// ErrQueueNotFound is returned for operations on an unknown queue
	ErrQueueNotFound = errors.New("queue not found")
	// ErrNoJobID is returned when lp succeeds without reporting a request id
	ErrNoJobID = errors.New("spooler returned no job id")
)

var requestIDPattern = regexp.MustCompile(`request id is (\S+)`)

// Client manages CUPS queues
type Client struct {
	runner shell.Runner
	logger zerolog.Logger
}

// NewClient creates a spooler client on top of a command runner
func NewClient(runner shell.Runner, logger zerolog.Logger) *Client {
	return &Client{
		runner: runner,
		logger: logger.With().Str("component", "cups").Logger(),
	}
}

// ListQueues returns every configured queue with its target and state
func (c *Client) ListQueues(ctx context.Context) ([]domain.Queue, error) {
	out, err := c.runner.Run(ctx, "lpstat", "-p")
	if err != nil {
		if noDestinations(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list queues: %w", err)
	}
	queues := parsePrinters(string(out))
	if len(queues) == 0 {
		return nil, nil
	}

	out, err = c.runner.Run(ctx, "lpstat", "-v")
	if err != nil && !noDestinations(err) {
		return nil, fmt.Errorf("list queue devices: %w", err)
	}
	devices := parseDevices(string(out))

	out, err = c.runner.Run(ctx, "lpstat", "-a")
	if err != nil && !noDestinations(err) {
		return nil, fmt.Errorf("list queue acceptance: %w", err)
	}
	accepting := parseAccepting(string(out))

	for i := range queues {
		queues[i].URI = devices[queues[i].Name]
		queues[i].Accepting = accepting[queues[i].Name]
	}
	sort.Slice(queues, func(i, j int) bool { return queues[i].Name < queues[j].Name })
	return queues, nil
}

// Queue returns one queue, or false when it is not configured
func (c *Client) Queue(ctx context.Context, name string) (domain.Queue, bool, error) {
	queues, err := c.ListQueues(ctx)
	if err != nil {
		return domain.Queue{}, false, err
	}
	for _, q := range queues {
		if q.Name == name {
			return q, true, nil
		}
	}
	return domain.Queue{}, false, nil
}

// QueueNames returns the names of every configured queue
func (c *Client) QueueNames(ctx context.Context) ([]string, error) {
	queues, err := c.ListQueues(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(queues))
	for _, q := range queues {
		names = append(names, q.Name)
	}
	return names, nil
}

// CreateQueue adds an enabled raw queue bound to uri
func (c *Client) CreateQueue(ctx context.Context, name, uri string) error {
	if _, err := c.runner.Run(ctx, "lpadmin", "-p", name, "-v", uri, "-E"); err != nil {
		return fmt.Errorf("create queue %s: %w", name, err)
	}
	c.logger.Info().Str("queue", name).Str("uri", uri).Msg("Queue created")
	return nil
}

// SetQueueURI retargets an existing queue
func (c *Client) SetQueueURI(ctx context.Context, name, uri string) error {
	if _, err := c.runner.Run(ctx, "lpadmin", "-p", name, "-v", uri); err != nil {
		return fmt.Errorf("retarget queue %s: %w", name, err)
	}
	c.logger.Info().Str("queue", name).Str("uri", uri).Msg("Queue retargeted")
	return nil
}

// Enable clears a stopped queue
func (c *Client) Enable(ctx context.Context, name string) error {
	if _, err := c.runner.Run(ctx, "cupsenable", name); err != nil {
		return fmt.Errorf("enable queue %s: %w", name, err)
	}
	return nil
}

// Accept makes a queue accept new jobs
func (c *Client) Accept(ctx context.Context, name string) error {
	if _, err := c.runner.Run(ctx, "cupsaccept", name); err != nil {
		return fmt.Errorf("accept jobs on %s: %w", name, err)
	}
	return nil
}

// Submit sends data to a queue as a raw job and returns the job id
func (c *Client) Submit(ctx context.Context, name, title string, data []byte) (string, error) {
	if title == "" {
		title = "printkeeper"
	}
	out, err := c.runner.RunInput(ctx, data, "lp", "-d", name, "-t", title, "-o", "raw")
	if err != nil {
		return "", fmt.Errorf("submit to %s: %w", name, err)
	}
	m := requestIDPattern.FindStringSubmatch(string(out))
	if m == nil {
		return "", fmt.Errorf("submit to %s: %w: %q", name, ErrNoJobID, strings.TrimSpace(string(out)))
	}
	c.logger.Debug().Str("queue", name).Str("job_id", m[1]).Int("bytes", len(data)).Msg("Job submitted")
	return m[1], nil
}

// Jobs lists pending jobs on a queue
func (c *Client) Jobs(ctx context.Context, name string) ([]domain.Job, error) {
	out, err := c.runner.Run(ctx, "lpstat", "-o", name)
	if err != nil {
		return nil, fmt.Errorf("list jobs on %s: %w", name, err)
	}
	return parseJobs(string(out), name), nil
}

// Cancel removes a job by id
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	if _, err := c.runner.Run(ctx, "cancel", jobID); err != nil {
		return fmt.Errorf("cancel job %s: %w", jobID, err)
	}
	return nil
}

// SchedulerRunning reports whether cupsd is up
func (c *Client) SchedulerRunning(ctx context.Context) (bool, error) {
	out, err := c.runner.Run(ctx, "lpstat", "-r")
	text := strings.ToLower(string(out))
	if strings.Contains(text, "not running") {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query scheduler: %w", err)
	}
	return strings.Contains(text, "is running"), nil
}

// ListDevices returns the device URIs the spooler backends can see,
// including printers they found through network advertisements
func (c *Client) ListDevices(ctx context.Context) ([]string, error) {
	out, err := c.runner.Run(ctx, "lpinfo", "-v")
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	var uris []string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.Contains(fields[1], "://") {
			continue
		}
		uris = append(uris, fields[1])
	}
	return uris, nil
}

func noDestinations(err error) bool {
	var exitErr *shell.ExitError
	return errors.As(err, &exitErr) && strings.Contains(exitErr.Stderr, "No destinations")
}

// parsePrinters reads `lpstat -p` output:
//
//	printer printer_1 is idle.  enabled since ...
//	printer printer_2 disabled since ... -
//		reason text
func parsePrinters(out string) []domain.Queue {
	var queues []domain.Queue
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && len(queues) > 0 {
			msg := strings.TrimSpace(line)
			last := &queues[len(queues)-1]
			if last.Message == "" {
				last.Message = msg
			} else if msg != "" {
				last.Message += "; " + msg
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "printer" {
			continue
		}
		q := domain.Queue{Name: fields[1], State: domain.QueueStateIdle}
		rest := strings.Join(fields[2:], " ")
		switch {
		case strings.HasPrefix(rest, "disabled"):
			q.State = domain.QueueStateStopped
		case strings.HasPrefix(rest, "now printing"):
			q.State = domain.QueueStateProcessing
		}
		queues = append(queues, q)
	}
	return queues
}

// parseDevices reads `lpstat -v` output: "device for printer_1: socket://..."
func parseDevices(out string) map[string]string {
	devices := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "device for ")
		if !ok {
			continue
		}
		name, uri, ok := strings.Cut(rest, ": ")
		if !ok {
			continue
		}
		devices[strings.TrimSpace(name)] = strings.TrimSpace(uri)
	}
	return devices
}

// parseAccepting reads `lpstat -a` output: "printer_1 accepting requests since ..."
func parseAccepting(out string) map[string]bool {
	accepting := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		accepting[fields[0]] = fields[1] == "accepting"
	}
	return accepting
}

// parseJobs reads `lpstat -o` output: "printer_1-12  root  1024  Tue ..."
func parseJobs(out, queue string) []domain.Job {
	var jobs []domain.Job
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || !strings.HasPrefix(fields[0], queue+"-") {
			continue
		}
		job := domain.Job{ID: fields[0], Queue: queue, Owner: fields[1], Line: strings.TrimSpace(line)}
		if size, err := strconv.ParseInt(fields[2], 10, 64); err == nil {
			job.Size = size
		}
		jobs = append(jobs, job)
	}
	return jobs
}
