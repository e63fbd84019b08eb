// Package reconciler decides, per remote repository, whether the local
// mirror must be created, refreshed, left alone or skipped, and applies
// that decision.
package reconciler

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kurihiro0119/github-mirror/internal/domain"
	apperrors "github.com/kurihiro0119/github-mirror/internal/errors"
	"github.com/kurihiro0119/github-mirror/internal/mirror"
	"github.com/kurihiro0119/github-mirror/internal/storage"
)

// Config holds the policy applied to every repository.
type Config struct {
	// Root is the directory holding the mirrors.
	Root string
	// MaxSizeBytes skips repositories reported larger than this. Zero
	// disables the ceiling.
	MaxSizeBytes uint64
	// HostConfigTemplate is copied into every mirror when set.
	HostConfigTemplate string
	// Retries is the number of extra clone or fetch attempts.
	Retries      int
	RetryBackoff time.Duration
}

// Engine reconciles remote repositories against the mirror state store.
type Engine struct {
	cfg    Config
	store  storage.Store
	driver mirror.Driver
	log    *slog.Logger
	now    func() time.Time
}

// NewEngine creates a new reconciliation engine
func NewEngine(cfg Config, store storage.Store, driver mirror.Driver, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		store:  store,
		driver: driver,
		log:    logger,
		now:    time.Now,
	}
}

// Reconcile brings the mirror of repo up to date. Errors are per repository
// and leave the store as it was.
func (e *Engine) Reconcile(ctx context.Context, repo *domain.Repository) (outcome domain.Outcome, err error) {
	start := time.Now()
	log := e.log.With("repo", repo.Name)
	defer func() {
		if err != nil {
			outcome = domain.OutcomeFailed
			err = apperrors.WithRepo(err, repo.Name)
		}
		recordSync(repo.Name, outcome, start)
	}()

	if e.cfg.MaxSizeBytes > 0 && repo.SizeBytes() > e.cfg.MaxSizeBytes {
		log.Info("skipping repository larger than ceiling",
			"size", humanize.IBytes(repo.SizeBytes()), "ceiling", humanize.Bytes(e.cfg.MaxSizeBytes))
		return domain.OutcomeSkipped, nil
	}

	record, found, err := e.store.GetMirror(ctx, repo.Name)
	if err != nil {
		return domain.OutcomeFailed, apperrors.NewStorageError(repo.Name, "unable to read mirror record", err)
	}

	switch {
	case !found:
		dest := mirror.Path(e.cfg.Root, repo)
		log.Info("cloning new repository", "path", dest)
		if err := e.retry(ctx, log, "clone", func() error {
			return e.driver.CloneMirror(ctx, repo.CloneURL, dest)
		}); err != nil {
			return domain.OutcomeFailed, err
		}
		if err := e.applyMetadata(ctx, repo, dest, true); err != nil {
			return domain.OutcomeFailed, err
		}
		if err := e.save(ctx, repo, dest); err != nil {
			return domain.OutcomeFailed, err
		}
		return domain.OutcomeCloned, nil

	case !record.IsStale(repo):
		log.Debug("repository unchanged")
		return domain.OutcomeUnchanged, nil

	default:
		dest := record.LocalPath
		if dest == "" {
			dest = mirror.Path(e.cfg.Root, repo)
		}
		log.Info("updating repository", "path", dest,
			"updated_at", repo.UpdatedAt, "pushed_at", repo.PushedAt)
		if err := e.retry(ctx, log, "fetch", func() error {
			return e.driver.FetchUpdates(ctx, dest)
		}); err != nil {
			return domain.OutcomeFailed, err
		}
		if err := e.applyMetadata(ctx, repo, dest, false); err != nil {
			return domain.OutcomeFailed, err
		}
		if err := e.save(ctx, repo, dest); err != nil {
			return domain.OutcomeFailed, err
		}
		return domain.OutcomeUpdated, nil
	}
}

// applyMetadata writes the default branch, description and modification
// time. The host config is only copied into fresh clones.
func (e *Engine) applyMetadata(ctx context.Context, repo *domain.Repository, dest string, fresh bool) error {
	if err := e.driver.SetDefaultBranch(ctx, dest, repo.DefaultBranch); err != nil {
		return err
	}
	if err := e.driver.SetDescription(dest, repo.Description); err != nil {
		return err
	}
	if err := e.driver.SetModificationTime(dest, repo.LatestActivity()); err != nil {
		return err
	}
	if fresh && e.cfg.HostConfigTemplate != "" {
		if err := e.driver.WriteHostConfig(dest, e.cfg.HostConfigTemplate); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) save(ctx context.Context, repo *domain.Repository, dest string) error {
	record := &domain.MirrorRecord{
		Name:          repo.Name,
		LastUpdatedAt: repo.UpdatedAt,
		LastPushedAt:  repo.PushedAt,
		LocalPath:     dest,
		Description:   repo.Description,
		MirroredAt:    e.now().UTC(),
	}
	if err := e.store.PutMirror(ctx, record); err != nil {
		return apperrors.NewStorageError(repo.Name, "unable to save mirror record", err)
	}
	return nil
}

// retry runs op once plus up to cfg.Retries more times, waiting
// cfg.RetryBackoff between attempts.
func (e *Engine) retry(ctx context.Context, log *slog.Logger, name string, op func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = op(); err == nil || attempt >= e.cfg.Retries {
			return err
		}
		log.Warn("mirror operation failed, retrying", "op", name, "attempt", attempt+1, "err", err)

		t := time.NewTimer(e.cfg.RetryBackoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}
