package aggregator

import (
	"context"
	"time"

	"github.com/kurihiro0119/github-mirror/internal/domain"
	"github.com/kurihiro0119/github-mirror/internal/storage"
)

// Aggregator defines the interface for tallying reconciliations and
// summarising mirror state
type Aggregator interface {
	// Record adds the outcome of one reconciliation to report
	Record(report *domain.Report, repo string, outcome domain.Outcome, err error)

	// Summarize builds the state overview from the store
	Summarize(ctx context.Context) (*domain.Summary, error)
}

// aggregator implements the Aggregator interface
type aggregator struct {
	storage storage.Store
}

// NewAggregator creates a new aggregator
func NewAggregator(storage storage.Store) Aggregator {
	return &aggregator{
		storage: storage,
	}
}

// Record adds the outcome of one reconciliation to report. A non-nil err
// always counts as a failure.
func (a *aggregator) Record(report *domain.Report, repo string, outcome domain.Outcome, err error) {
	if err != nil {
		report.Failed++
		report.Failures = append(report.Failures, domain.Failure{Repo: repo, Err: err})
		return
	}

	switch outcome {
	case domain.OutcomeCloned:
		report.Cloned++
	case domain.OutcomeUpdated:
		report.Updated++
	case domain.OutcomeUnchanged:
		report.Unchanged++
	case domain.OutcomeSkipped:
		report.Skipped++
	case domain.OutcomeFailed:
		report.Failed++
		report.Failures = append(report.Failures, domain.Failure{Repo: repo})
	}
}

// Summarize counts the mirrors, finds the most recent sync and the latest run
func (a *aggregator) Summarize(ctx context.Context) (*domain.Summary, error) {
	records, err := a.storage.ListMirrors(ctx)
	if err != nil {
		return nil, err
	}

	summary := &domain.Summary{Mirrors: len(records)}

	var lastSync time.Time
	for _, record := range records {
		if record.MirroredAt.After(lastSync) {
			lastSync = record.MirroredAt
		}
	}
	if !lastSync.IsZero() {
		summary.LastSyncAt = &lastSync
	}

	runs, err := a.storage.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) > 0 {
		summary.LastRun = runs[0]
	}

	return summary, nil
}
