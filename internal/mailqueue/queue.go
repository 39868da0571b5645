package mailqueue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"feedback_service/internal/reminder"
	"feedback_service/pkg/logger"
	"feedback_service/pkg/retry"
)

// Sender publishes a JSON message to a topic.
type Sender interface {
	Send(ctx context.Context, topic string, message interface{}) error
}

type Config struct {
	Topic            string
	MaxRetries       int
	BaseDelay        time.Duration
	FailureThreshold int
	ResetTimeout     time.Duration
}

// Queue is the reminder.Mailer backed by a message broker. Transient
// broker failures are retried behind a circuit breaker.
type Queue struct {
	sender  Sender
	breaker *retry.CircuitBreaker
	cfg     Config
	logger  *logger.Logger
}

func New(sender Sender, cfg Config, log *logger.Logger) *Queue {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Queue{
		sender:  sender,
		breaker: retry.NewCircuitBreaker(cfg.FailureThreshold, cfg.ResetTimeout),
		cfg:     cfg,
		logger:  log,
	}
}

func (q *Queue) Enqueue(ctx context.Context, email reminder.Email) error {
	_, err := retry.WithCircuitBreaker(ctx, q.breaker, q.cfg.MaxRetries, q.cfg.BaseDelay, func() (struct{}, error) {
		return struct{}{}, q.sender.Send(ctx, q.cfg.Topic, email)
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue %s email for %s: %w", email.Kind, email.To, err)
	}
	logger.FromContext(ctx, q.logger).Debug("email enqueued",
		zap.String("kind", string(email.Kind)),
		zap.String("course_id", email.CourseID),
		zap.String("session", email.SessionName),
		zap.Bool("is_copy", email.IsCopy),
	)
	return nil
}

var _ reminder.Mailer = (*Queue)(nil)
