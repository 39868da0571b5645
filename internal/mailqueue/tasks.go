package mailqueue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"feedback_service/internal/domain"
	"feedback_service/internal/reminder"
	"feedback_service/pkg/logger"
)

// Tasks publishes worker requests for the remind consumer to pick up.
type Tasks struct {
	sender           Sender
	unpublishedTopic string
	logger           *logger.Logger
}

func NewTasks(sender Sender, unpublishedTopic string, log *logger.Logger) *Tasks {
	return &Tasks{sender: sender, unpublishedTopic: unpublishedTopic, logger: log}
}

func (t *Tasks) SessionUnpublished(ctx context.Context, key domain.SessionKey) error {
	req := reminder.RemindRequest{CourseID: key.CourseID, SessionName: key.Name}
	if err := t.sender.Send(ctx, t.unpublishedTopic, req); err != nil {
		return fmt.Errorf("failed to request unpublished emails for %s: %w", key, err)
	}
	logger.FromContext(ctx, t.logger).Debug("unpublished emails requested",
		zap.String("course_id", key.CourseID), zap.String("session", key.Name))
	return nil
}
