package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopledger/internal/config"
	"shopledger/pkg/logger"
)

type fakeOutbox struct {
	batches   []int
	calls     int
	dlq       int
	cleanedAt time.Time
	err       error
}

func (f *fakeOutbox) ProcessBatch(context.Context) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	return n, nil
}

func (f *fakeOutbox) MoveToDLQ(context.Context) (int64, error) {
	f.dlq++
	return 1, nil
}

func (f *fakeOutbox) CleanupPublished(_ context.Context, cutoff time.Time) (int64, error) {
	f.cleanedAt = cutoff
	return 3, nil
}

type fakeReminders struct {
	interval time.Duration
	batch    int
}

func (f *fakeReminders) RemindOverdue(_ context.Context, interval time.Duration, batch int) (int, error) {
	f.interval, f.batch = interval, batch
	return 2, nil
}

type fakePruner struct{ cutoff time.Time }

func (f *fakePruner) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 0, nil
}

type fakeCleaner struct{ calls int }

func (f *fakeCleaner) CleanupExpired(context.Context) (int64, error) {
	f.calls++
	return 0, nil
}

func testWorker(jobs Jobs, cfg config.WorkerConfig) *Worker {
	w := NewWorker(jobs, cfg, logger.NewNop())
	w.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	return w
}

func TestWorker_RelayDrainsFullBatches(t *testing.T) {
	outbox := &fakeOutbox{batches: []int{10, 10, 4}}
	w := testWorker(Jobs{Outbox: outbox}, config.WorkerConfig{OutboxBatchSize: 10})

	w.relayOutbox(context.Background())

	assert.Equal(t, 3, outbox.calls)
}

func TestWorker_RelayStopsOnError(t *testing.T) {
	outbox := &fakeOutbox{err: errors.New("db down")}
	w := testWorker(Jobs{Outbox: outbox}, config.WorkerConfig{OutboxBatchSize: 10})

	w.relayOutbox(context.Background())

	assert.Equal(t, 1, outbox.calls)
}

func TestWorker_Remind(t *testing.T) {
	reminders := &fakeReminders{}
	w := testWorker(Jobs{Reminders: reminders}, config.WorkerConfig{ReminderRepeat: 24 * time.Hour, ReminderBatchSize: 50})

	w.remind(context.Background())

	assert.Equal(t, 24*time.Hour, reminders.interval)
	assert.Equal(t, 50, reminders.batch)
}

func TestWorker_Cleanup(t *testing.T) {
	outbox := &fakeOutbox{}
	pruner := &fakePruner{}
	cleaner := &fakeCleaner{}
	w := testWorker(Jobs{Outbox: outbox, Activity: pruner, Idempotency: cleaner}, config.WorkerConfig{
		OutboxRetention:   7 * 24 * time.Hour,
		ActivityRetention: 365 * 24 * time.Hour,
	})

	w.cleanup(context.Background())

	now := w.now()
	assert.Equal(t, 1, outbox.dlq)
	assert.Equal(t, now.Add(-7*24*time.Hour), outbox.cleanedAt)
	assert.Equal(t, now.Add(-365*24*time.Hour), pruner.cutoff)
	assert.Equal(t, 1, cleaner.calls)
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	outbox := &fakeOutbox{}
	w := testWorker(Jobs{
		Outbox:      outbox,
		Reminders:   &fakeReminders{},
		Activity:    &fakePruner{},
		Idempotency: &fakeCleaner{},
	}, config.WorkerConfig{OutboxInterval: time.Millisecond, OutboxBatchSize: 10})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, w.Run(ctx))
}
