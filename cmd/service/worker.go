package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"feedback_service/internal/reminder"
	"feedback_service/pkg/logger"
)

type reminderRunner interface {
	SendAll(ctx context.Context) (reminder.Report, error)
}

// ReminderWorker triggers every reminder category on a fixed interval. It
// stands in for an external cron when none is configured.
type ReminderWorker struct {
	scheduler reminderRunner
	logger    *logger.Logger
	interval  time.Duration
}

func NewReminderWorker(scheduler reminderRunner, interval time.Duration, logger *logger.Logger) *ReminderWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReminderWorker{
		scheduler: scheduler,
		logger:    logger,
		interval:  interval,
	}
}

func (w *ReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Reminder worker stopped")
			return
		case <-ticker.C:
			w.processReminders(ctx)
		}
	}
}

func (w *ReminderWorker) processReminders(ctx context.Context) {
	traceID, err := uuid.NewV7()
	if err != nil {
		traceID = uuid.New()
	}
	log := w.logger.With(zap.String("trace_id", traceID.String()))
	ctx = logger.WithTraceID(logger.ContextWithLogger(ctx, log), traceID.String())

	report, err := w.scheduler.SendAll(ctx)
	if err != nil {
		log.Error("Reminder run failed", zap.Error(err))
		return
	}
	if report.Dispatched > 0 || report.Failed > 0 {
		log.Info("Reminder run finished",
			zap.Int("sessions", report.Sessions),
			zap.Int("dispatched", report.Dispatched),
			zap.Int("failed", report.Failed),
		)
	}
}
