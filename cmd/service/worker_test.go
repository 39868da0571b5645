package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"feedback_service/internal/reminder"
	"feedback_service/pkg/logger"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
	trace atomic.Bool
}

func (r *countingRunner) SendAll(ctx context.Context) (reminder.Report, error) {
	r.calls.Add(1)
	if _, ok := logger.TraceID(ctx); ok {
		r.trace.Store(true)
	}
	return reminder.Report{Sessions: 1, Dispatched: 2}, r.err
}

func TestReminderWorker(t *testing.T) {
	t.Run("RunsUntilCancelled", func(t *testing.T) {
		runner := &countingRunner{}
		w := NewReminderWorker(runner, 10*time.Millisecond, logger.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			w.Start(ctx)
			close(done)
		}()

		assert.Eventually(t, func() bool { return runner.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("worker did not stop")
		}
		assert.True(t, runner.trace.Load())
	})

	t.Run("FailureDoesNotStop", func(t *testing.T) {
		runner := &countingRunner{err: errors.New("db down")}
		w := NewReminderWorker(runner, 10*time.Millisecond, logger.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Start(ctx)

		assert.Eventually(t, func() bool { return runner.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	})

	t.Run("DefaultInterval", func(t *testing.T) {
		w := NewReminderWorker(&countingRunner{}, 0, logger.NewNop())
		assert.Equal(t, time.Minute, w.interval)
	})
}
