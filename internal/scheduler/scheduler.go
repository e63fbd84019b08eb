// Package scheduler runs mirror runs periodically on a cron schedule and on
// demand, never more than one at a time.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kurihiro0119/github-mirror/internal/domain"
	apperrors "github.com/kurihiro0119/github-mirror/internal/errors"
)

// Runner performs one mirror run over an account.
type Runner interface {
	Run(ctx context.Context, account string) (*domain.Report, error)
}

// Scheduler is a cron-like scheduler of mirror runs.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	account string
	ctx     context.Context
	log     *slog.Logger

	running sync.Mutex

	// mu guards closing and every wg.Add
	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// cronLogger is a wrapper around the logger to make it compatible with the
// cron logger.
type cronLogger struct {
	logger *slog.Logger
}

// Info logs routine messages about cron's operation.
func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

// Error logs an error condition.
func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "err", err)...)
}

// New returns a Scheduler running runner over account. Runs started by the
// schedule or by Trigger live until ctx is done.
func New(ctx context.Context, runner Runner, account string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cronLogger{logger})),
		runner:  runner,
		account: account,
		ctx:     ctx,
		log:     logger,
	}
}

// Schedule registers a run on spec, a standard cron expression or a
// descriptor such as "@hourly" or "@every 30m".
func (s *Scheduler) Schedule(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunNow(s.ctx); apperrors.IsConflict(err) {
			s.log.Warn("skipping scheduled run, previous run still in progress")
		}
	})
	if err != nil {
		return apperrors.NewConfigError("MIRROR_SCHEDULE", err.Error())
	}
	return nil
}

// Start starts the Scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Shutdown stops the schedule and waits, up to 30 seconds, for a run in
// progress to finish.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.cron.Stop(), 30*time.Second)
	defer cancel()
	<-ctx.Done()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		s.log.Warn("gave up waiting for mirror run to finish")
	}
}

// Next returns the time of the next scheduled run, or the zero time when
// nothing is scheduled.
func (s *Scheduler) Next() time.Time {
	var next time.Time
	for _, entry := range s.cron.Entries() {
		if next.IsZero() || (!entry.Next.IsZero() && entry.Next.Before(next)) {
			next = entry.Next
		}
	}
	return next
}

// Trigger starts a run in the background. It returns a CONFLICT error when
// a run is already in progress or the scheduler is shutting down.
func (s *Scheduler) Trigger(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}

	// the run outlives the triggering request but not the scheduler
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(s.ctx, cancel)

	go func() {
		defer s.wg.Done()
		defer s.running.Unlock()
		defer cancel()
		defer stop()
		_, _ = s.run(runCtx)
	}()
	return nil
}

// RunNow runs synchronously, failing with CONFLICT when a run is already in
// progress.
func (s *Scheduler) RunNow(ctx context.Context) (*domain.Report, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.wg.Done()
	defer s.running.Unlock()
	return s.run(ctx)
}

// begin takes the run lock and registers the run with the wait group. It
// fails once Shutdown has started or while another run holds the lock.
func (s *Scheduler) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return apperrors.NewConflictError("the scheduler is shutting down")
	}
	if !s.running.TryLock() {
		return apperrors.NewConflictError("a mirror run is already in progress")
	}
	s.wg.Add(1)
	return nil
}

// Wait blocks until no run is in progress.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) (*domain.Report, error) {
	report, err := s.runner.Run(ctx, s.account)
	switch {
	case err != nil:
		s.log.Error("mirror run failed", "account", s.account, "err", err)
	case report != nil && report.Err() != nil:
		s.log.Warn("mirror run finished with failures", "account", s.account, "failed", report.Failed)
	}
	return report, err
}
