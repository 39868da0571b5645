package main

import (
	"context"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"feedback_service/internal/middleware"
	"feedback_service/internal/reminder"
	"feedback_service/pkg/kafka"
	"feedback_service/pkg/logger"
	"feedback_service/pkg/retry"
)

type remindRunner interface {
	RemindParticipants(ctx context.Context, req reminder.RemindRequest) (reminder.Report, error)
	ResendPublished(ctx context.Context, req reminder.RemindRequest) (reminder.Report, error)
	SendUnpublished(ctx context.Context, req reminder.RemindRequest) (reminder.Report, error)
}

type RemindTopics struct {
	Remind      string
	Resend      string
	Unpublished string
}

// RemindConsumer serves the remind, resend-published and unpublished
// requests published to the broker.
type RemindConsumer struct {
	scheduler   remindRunner
	topics      RemindTopics
	logger      *logger.Logger
	remind      kafka.Handler
	resend      kafka.Handler
	unpublished kafka.Handler
}

func NewRemindConsumer(scheduler remindRunner, topics RemindTopics, logger *logger.Logger) *RemindConsumer {
	c := &RemindConsumer{
		scheduler: scheduler,
		topics:    topics,
		logger:    logger,
	}
	c.remind = kafka.DecodeJSON(func(ctx context.Context, req reminder.RemindRequest) error {
		report, err := c.scheduler.RemindParticipants(ctx, req)
		return c.settle(ctx, "remind", req, report, err)
	})
	c.resend = kafka.DecodeJSON(func(ctx context.Context, req reminder.RemindRequest) error {
		report, err := c.scheduler.ResendPublished(ctx, req)
		return c.settle(ctx, "resend published", req, report, err)
	})
	c.unpublished = kafka.DecodeJSON(func(ctx context.Context, req reminder.RemindRequest) error {
		report, err := c.scheduler.SendUnpublished(ctx, req)
		return c.settle(ctx, "unpublished", req, report, err)
	})
	return c
}

func (c *RemindConsumer) Topics() []string {
	return []string{c.topics.Remind, c.topics.Resend, c.topics.Unpublished}
}

func (c *RemindConsumer) Handle(ctx context.Context, msg kafkago.Message) error {
	ctx = c.withTrace(ctx, msg)
	switch msg.Topic {
	case c.topics.Remind:
		return c.remind(ctx, msg)
	case c.topics.Resend:
		return c.resend(ctx, msg)
	case c.topics.Unpublished:
		return c.unpublished(ctx, msg)
	default:
		logger.FromContext(ctx, c.logger).Warn("Message on unexpected topic", zap.String("topic", msg.Topic))
		return nil
	}
}

// settle keeps a request uncommitted only when a retry may succeed.
func (c *RemindConsumer) settle(ctx context.Context, what string, req reminder.RemindRequest, report reminder.Report, err error) error {
	log := logger.FromContext(ctx, c.logger).With(
		zap.String("course_id", req.CourseID),
		zap.String("session_name", req.SessionName),
	)
	if err == nil {
		log.Info("Request processed", zap.String("request", what),
			zap.Int("dispatched", report.Dispatched), zap.Int("failed", report.Failed))
		return nil
	}
	if retry.IsRetriable(err) {
		return err
	}
	log.Warn("Request dropped", zap.String("request", what), zap.Error(err))
	return nil
}

func (c *RemindConsumer) withTrace(ctx context.Context, msg kafkago.Message) context.Context {
	traceID := ""
	for _, h := range msg.Headers {
		if h.Key == middleware.TraceHeader {
			traceID = string(h.Value)
			break
		}
	}
	if traceID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			id = uuid.New()
		}
		traceID = id.String()
	}
	log := c.logger.With(zap.String("trace_id", traceID), zap.String("topic", msg.Topic))
	return logger.WithTraceID(logger.ContextWithLogger(ctx, log), traceID)
}
