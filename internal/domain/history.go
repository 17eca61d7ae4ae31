package domain

import "time"

// ActionEntry is a journaled reconciliation action
type ActionEntry struct {
	ID        string    `json:"id"`
	PassID    string    `json:"pass_id"`
	Action    Action    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// DispatchEntry is a journaled print job submission, successful or not
type DispatchEntry struct {
	ID        string    `json:"id"`
	Queue     string    `json:"queue"`
	Title     string    `json:"title,omitempty"`
	Bytes     int       `json:"bytes"`
	Attempts  int       `json:"attempts"`
	JobID     string    `json:"job_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Succeeded reports whether the job reached the spooler
func (d DispatchEntry) Succeeded() bool {
	return d.Error == ""
}
