package core

import "time"

// ImportRun is one attempt to copy records from a remote source into the
// local snapshot.
type ImportRun struct {
	ID         string
	Source     string
	Records    int
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
}

// Succeeded reports whether the run replaced the snapshot.
func (r ImportRun) Succeeded() bool {
	return r.Error == "" && !r.FinishedAt.IsZero()
}

// RefreshRequest asks a worker to re-import a source.
type RefreshRequest struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	RequestedAt time.Time `json:"requested_at"`
}
