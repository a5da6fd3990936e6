package domain

import "time"

// MonitorStatus is a point-in-time view of a streaming session.
type MonitorStatus struct {
	Path       string    `json:"path"`
	Source     string    `json:"source"`
	Label      string    `json:"label"`
	State      string    `json:"state"`
	Offset     int64     `json:"offset"`
	Records    int       `json:"records"`
	MaxID      int64     `json:"max_id"`
	Pending    int       `json:"pending_bytes"`
	LastUpdate time.Time `json:"last_update"`
	LastError  string    `json:"last_error,omitempty"`
}

// PollResult summarises one polling iteration.
type PollResult struct {
	Bytes     int `json:"bytes"`
	Extracted int `json:"extracted"`
	Added     int `json:"added"`
	Dropped   int `json:"dropped"`
}
