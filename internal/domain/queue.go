package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultQueuePrefix is the prefix of allocated queue names
const DefaultQueuePrefix = "printer"

// QueueState represents the administrative state of a queue
type QueueState string

const (
	QueueStateIdle       QueueState = "idle"
	QueueStateProcessing QueueState = "processing"
	QueueStateStopped    QueueState = "stopped"
)

// Queue mirrors a spooler queue. It is read fresh on every pass.
type Queue struct {
	Name      string     `json:"name"`
	URI       string     `json:"uri"`
	State     QueueState `json:"state"`
	Accepting bool       `json:"accepting"`
	Message   string     `json:"message,omitempty"`
}

// Device returns the parsed target URI, or a zero value when unparseable
func (q Queue) Device() DeviceURI {
	d, _ := ParseDeviceURI(q.URI)
	return d
}

// Job is a queued job as reported by the spooler
type Job struct {
	ID    string `json:"id"`
	Queue string `json:"queue"`
	Owner string `json:"owner,omitempty"`
	Size  int64  `json:"size,omitempty"`
	Line  string `json:"line,omitempty"`
}

// NextQueueName allocates prefix_N where N is one more than the largest
// index among names matching prefix_<integer>, or 1 when none match.
func NextQueueName(prefix string, names []string) string {
	if prefix == "" {
		prefix = DefaultQueuePrefix
	}
	highest := 0
	for _, name := range names {
		rest, ok := strings.CutPrefix(name, prefix+"_")
		if !ok || rest == "" {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 || n == math.MaxInt || strings.HasPrefix(rest, "+") {
			// math.MaxInt has no successor
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s_%d", prefix, highest+1)
}
