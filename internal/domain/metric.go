package domain

import (
	"errors"
	"fmt"
	"time"
)

// Outcome is the result of reconciling one repository.
type Outcome string

const (
	OutcomeCloned    Outcome = "cloned"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Failure is a repository that could not be reconciled.
type Failure struct {
	Repo string `json:"repo"`
	Err  error  `json:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Repo, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Report aggregates the outcomes of one run.
type Report struct {
	Account   string    `json:"account"`
	Cloned    int       `json:"cloned"`
	Updated   int       `json:"updated"`
	Unchanged int       `json:"unchanged"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Failures  []Failure `json:"failures,omitempty"`
}

// Total returns the number of repositories seen.
func (r *Report) Total() int {
	return r.Cloned + r.Updated + r.Unchanged + r.Skipped + r.Failed
}

// Err joins all failures, or returns nil when every repository succeeded.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// Summary is the state overview served by the status API.
type Summary struct {
	Mirrors    int        `json:"mirrors"`
	LastRun    *MirrorRun `json:"last_run,omitempty"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}
