// Package scheduler keeps priorities and the dashboard gauges current
// while bidtrack runs as a long-lived process.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/baiirun/bidtrack/internal/db"
	"github.com/baiirun/bidtrack/internal/deadline"
	"github.com/baiirun/bidtrack/internal/metrics"
	"github.com/baiirun/bidtrack/internal/model"
	"github.com/baiirun/bidtrack/internal/summary"
)

const DefaultTimeout = 5 * time.Minute

type Refresher interface {
	RefreshPriorities(ctx context.Context) (int, error)
}

type TaskLister interface {
	ListTasks(ctx context.Context, filter db.TaskFilter) ([]model.Task, error)
}

// Snapshot refreshes stale priorities, then buckets the pending tasks
// against today and publishes the bucket sizes. Returns the summary and
// the number of priorities changed.
func Snapshot(ctx context.Context, r Refresher, tasks TaskLister, now time.Time) (summary.Summary, int, error) {
	changed, err := r.RefreshPriorities(ctx)
	if err != nil {
		return summary.Summary{}, changed, err
	}

	pending := model.StatusPending
	list, err := tasks.ListTasks(ctx, db.TaskFilter{Status: &pending})
	if err != nil {
		return summary.Summary{}, changed, fmt.Errorf("failed to list pending tasks: %w", err)
	}

	s := summary.Build(list, deadline.Today(now))
	for _, b := range summary.Buckets {
		metrics.SetTaskBucket(string(b), s.Counts.Of(b))
	}
	return s, changed, nil
}

type Scheduler struct {
	cron    *cron.Cron
	refresh Refresher
	tasks   TaskLister
	now     func() time.Time
	timeout time.Duration
	logger  *zap.Logger
}

// New registers the refresh job on the given cron spec. Runs that would
// overlap a still-running one are skipped.
func New(spec string, r Refresher, tasks TaskLister, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		refresh: r,
		tasks:   tasks,
		now:     time.Now,
		timeout: DefaultTimeout,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(spec, s.job); err != nil {
		return nil, fmt.Errorf("failed to schedule refresh %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) job() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("Scheduled refresh failed", zap.Error(err))
	}
}

// RunOnce performs one refresh immediately.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	sum, changed, err := Snapshot(ctx, s.refresh, s.tasks, s.now())
	if err != nil {
		return err
	}
	s.logger.Info("Refreshed task priorities",
		zap.Int("changed", changed),
		zap.Int("pending", sum.Counts.Total()),
		zap.Int("overdue", sum.Counts.Overdue),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Start runs the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling. The returned context is done once a running job
// has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
