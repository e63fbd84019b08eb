// Package runner drives one full mirror run over an account.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kurihiro0119/github-mirror/internal/aggregator"
	"github.com/kurihiro0119/github-mirror/internal/collector"
	"github.com/kurihiro0119/github-mirror/internal/domain"
	apperrors "github.com/kurihiro0119/github-mirror/internal/errors"
	"github.com/kurihiro0119/github-mirror/internal/storage"
)

// Reconciler brings a single repository's mirror up to date.
type Reconciler interface {
	Reconcile(ctx context.Context, repo *domain.Repository) (domain.Outcome, error)
}

// Runner reconciles every repository of an account, one at a time, and
// keeps a history of runs in the store.
type Runner struct {
	source     collector.Source
	reconciler Reconciler
	store      storage.Store
	aggregator aggregator.Aggregator
	log        *slog.Logger
	now        func() time.Time
}

// New creates a Runner
func New(source collector.Source, reconciler Reconciler, store storage.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		source:     source,
		reconciler: reconciler,
		store:      store,
		aggregator: aggregator.NewAggregator(store),
		log:        logger,
		now:        time.Now,
	}
}

// Run mirrors every repository of account. Per repository failures are
// collected in the report; the returned error is only set when the run
// itself could not complete, in which case reconciliations applied so far
// are kept.
func (r *Runner) Run(ctx context.Context, account string) (*domain.Report, error) {
	run := &domain.MirrorRun{
		ID:        uuid.New().String(),
		Account:   account,
		Status:    domain.RunStatusInProgress,
		StartedAt: r.now().UTC(),
	}
	if err := r.store.SaveRun(ctx, run); err != nil {
		return nil, apperrors.NewStorageError("", "unable to record run", err)
	}

	log := r.log.With("run", run.ID, "account", account)
	log.Info("starting mirror run")

	report := &domain.Report{Account: account}
	var runErr error
	for repo, err := range r.source.ListRepositories(ctx, account) {
		if err != nil {
			runErr = err
			break
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		outcome, err := r.reconciler.Reconcile(ctx, repo)
		if err != nil {
			log.Error("unable to mirror repository", "repo", repo.Name, "err", err)
		}
		r.aggregator.Record(report, repo.Name, outcome, err)
	}

	r.finish(context.WithoutCancel(ctx), run, report, runErr)

	log.Info("mirror run finished",
		"cloned", report.Cloned,
		"updated", report.Updated,
		"unchanged", report.Unchanged,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, runErr
}

func (r *Runner) finish(ctx context.Context, run *domain.MirrorRun, report *domain.Report, runErr error) {
	run.ApplyReport(report)
	finished := r.now().UTC()
	run.FinishedAt = &finished

	switch {
	case runErr != nil:
		run.Status = domain.RunStatusFailed
		run.Error = runErr.Error()
	case report.Failed > 0:
		run.Status = domain.RunStatusCompleted
		run.Error = fmt.Sprintf("%d of %d repositories failed", report.Failed, report.Total())
	default:
		run.Status = domain.RunStatusCompleted
	}

	if err := r.store.SaveRun(ctx, run); err != nil {
		r.log.Error("unable to record run result", "run", run.ID, "err", err)
	}
}
