package domain

import "time"

// RunStatus is the lifecycle state of a MirrorRun.
type RunStatus string

const (
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// MirrorRun is the history entry of one orchestrator run over an account
type MirrorRun struct {
	ID         string     `json:"id"`
	Account    string     `json:"account"`
	Status     RunStatus  `json:"status"`
	Cloned     int        `json:"cloned"`
	Updated    int        `json:"updated"`
	Unchanged  int        `json:"unchanged"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ApplyReport copies the report counters onto the run.
func (r *MirrorRun) ApplyReport(report *Report) {
	r.Cloned = report.Cloned
	r.Updated = report.Updated
	r.Unchanged = report.Unchanged
	r.Skipped = report.Skipped
	r.Failed = report.Failed
}
