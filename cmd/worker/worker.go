package main

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"shopledger/internal/config"
	"shopledger/pkg/logger"
)

// OutboxJob delivers and maintains outbox messages.
type OutboxJob interface {
	ProcessBatch(ctx context.Context) (int, error)
	MoveToDLQ(ctx context.Context) (int64, error)
	CleanupPublished(ctx context.Context, cutoff time.Time) (int64, error)
}

// ReminderJob queues overdue reminders.
type ReminderJob interface {
	RemindOverdue(ctx context.Context, interval time.Duration, batch int) (int, error)
}

// ActivityPruner removes old activity entries.
type ActivityPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// IdempotencyCleaner removes expired idempotency keys.
type IdempotencyCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Jobs groups the work the worker schedules.
type Jobs struct {
	Outbox      OutboxJob
	Reminders   ReminderJob
	Activity    ActivityPruner
	Idempotency IdempotencyCleaner
}

// Worker runs periodic background jobs until its context ends.
type Worker struct {
	jobs Jobs
	cfg  config.WorkerConfig
	log  *logger.Logger
	now  func() time.Time
}

// NewWorker creates a Worker.
func NewWorker(jobs Jobs, cfg config.WorkerConfig, log *logger.Logger) *Worker {
	return &Worker{
		jobs: jobs,
		cfg:  cfg,
		log:  log.WithComponent("worker"),
		now:  time.Now,
	}
}

// Run starts every loop and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return w.loop(ctx, "outbox", w.cfg.OutboxInterval, w.relayOutbox) })
	g.Go(func() error { return w.loop(ctx, "reminders", w.cfg.ReminderInterval, w.remind) })
	g.Go(func() error { return w.loop(ctx, "cleanup", w.cfg.CleanupInterval, w.cleanup) })

	return g.Wait()
}

func (w *Worker) loop(ctx context.Context, name string, every time.Duration, job func(ctx context.Context)) error {
	if every <= 0 {
		w.log.Infow("job disabled", "job", name)
		return nil
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Infow("job stopped", "job", name)
			return nil
		case <-ticker.C:
			job(ctx)
		}
	}
}

// relayOutbox drains pending messages until a batch comes back short.
func (w *Worker) relayOutbox(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.jobs.Outbox.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox relay failed", "error", err)
			return
		}
		if n > 0 {
			w.log.Debugw("outbox batch delivered", "count", n)
		}
		if n < w.cfg.OutboxBatchSize {
			return
		}
	}
}

func (w *Worker) remind(ctx context.Context) {
	n, err := w.jobs.Reminders.RemindOverdue(ctx, w.cfg.ReminderRepeat, w.cfg.ReminderBatchSize)
	if err != nil {
		w.log.Errorw("overdue reminders failed", "error", err)
		return
	}
	if n > 0 {
		w.log.Infow("overdue reminders queued", "count", n)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	now := w.now().UTC()

	if n, err := w.jobs.Outbox.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("outbox dead-letter move failed", "error", err)
	} else if n > 0 {
		w.log.Warnw("outbox messages moved to dead-letter queue", "count", n)
	}

	if w.cfg.OutboxRetention > 0 {
		if n, err := w.jobs.Outbox.CleanupPublished(ctx, now.Add(-w.cfg.OutboxRetention)); err != nil {
			w.log.Errorw("outbox cleanup failed", "error", err)
		} else if n > 0 {
			w.log.Infow("published outbox messages removed", "count", n)
		}
	}

	if w.cfg.ActivityRetention > 0 {
		if n, err := w.jobs.Activity.DeleteOlderThan(ctx, now.Add(-w.cfg.ActivityRetention)); err != nil {
			w.log.Errorw("activity cleanup failed", "error", err)
		} else if n > 0 {
			w.log.Infow("old activity removed", "count", n)
		}
	}

	if n, err := w.jobs.Idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
	} else if n > 0 {
		w.log.Infow("expired idempotency keys removed", "count", n)
	}
}
