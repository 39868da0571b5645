package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"feedback_service/pkg/logger"
)

type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler processes one message. Returning an error leaves the message
// uncommitted.
type Handler func(ctx context.Context, msg kafka.Message) error

type Consumer struct {
	reader messageReader
	logger *logger.Logger
}

func NewConsumer(cfg ConsumerConfig, log *logger.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 || len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("brokers and topics are required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
	})
	return &Consumer{reader: reader, logger: log}, nil
}

// Run fetches messages until ctx is done. Malformed messages and handler
// failures are logged; only handled messages are committed.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Consumer shutting down")
				return nil
			}
			c.logger.Error("Failed to fetch message", zap.Error(err))
			continue
		}

		if err := handle(ctx, msg); err != nil {
			c.logger.Error("Failed to handle message",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message", zap.Error(err))
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON returns a Handler that unmarshals the message value into T
// before calling fn.
func DecodeJSON[T any](fn func(ctx context.Context, payload T) error) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var payload T
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal message: %w", err)
		}
		return fn(ctx, payload)
	}
}
