package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"feedback_service/internal/deadline"
	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
	"feedback_service/internal/repository"
	"feedback_service/pkg/logger"
)

type ExtensionInput struct {
	CourseID     string    `json:"course_id" validate:"notblank"`
	SessionName  string    `json:"session_name" validate:"notblank"`
	UserEmail    string    `json:"user_email" validate:"required,email"`
	IsInstructor bool      `json:"is_instructor"`
	EndTime      time.Time `json:"end_time" validate:"required"`
}

func (in ExtensionInput) key() domain.DeadlineExtensionKey {
	return domain.DeadlineExtensionKey{
		CourseID:     in.CourseID,
		SessionName:  in.SessionName,
		UserEmail:    in.UserEmail,
		IsInstructor: in.IsInstructor,
	}
}

// DeadlineService owns the DeadlineExtension records. Every write is
// followed by a rebuild of the deadline maps cached on the session.
type DeadlineService struct {
	base
	syncer *deadline.Syncer
}

func NewDeadlineService(store *repository.Store, log *logger.Logger, opts ...Option) *DeadlineService {
	return &DeadlineService{
		base:   newBase(store, log, opts),
		syncer: deadline.NewSyncer(store.Sessions, store.Extensions),
	}
}

func (s *DeadlineService) session(ctx context.Context, courseID, name string) (*domain.FeedbackSession, error) {
	session, err := s.store.Sessions.Get(ctx, courseID, name)
	if err != nil {
		return nil, err
	}
	if session.IsInRecycleBin() {
		return nil, fmt.Errorf("session %s is in the recycle bin: %w", session.Key(), errdefs.ErrNotFound)
	}
	return session, nil
}

func (s *DeadlineService) checkEnrolled(ctx context.Context, in ExtensionInput) error {
	if in.IsInstructor {
		_, err := s.store.Instructors.Get(ctx, in.CourseID, in.UserEmail)
		return err
	}
	_, err := s.store.Students.Get(ctx, in.CourseID, in.UserEmail)
	return err
}

func (s *DeadlineService) Create(ctx context.Context, in ExtensionInput) (*domain.DeadlineExtension, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	session, err := s.session(ctx, in.CourseID, in.SessionName)
	if err != nil {
		return nil, err
	}
	if err := deadline.ValidateExtension(session, in.EndTime); err != nil {
		return nil, err
	}
	if err := s.checkEnrolled(ctx, in); err != nil {
		return nil, err
	}

	now := s.now()
	ext := &domain.DeadlineExtension{
		CourseID:     in.CourseID,
		SessionName:  in.SessionName,
		UserEmail:    in.UserEmail,
		IsInstructor: in.IsInstructor,
		EndTime:      in.EndTime,
		CreatedAt:    now,
		EditedAt:     now,
	}
	if err := s.store.Extensions.Create(ctx, ext); err != nil {
		return nil, err
	}
	if err := s.syncer.Sync(ctx, session.Key()); err != nil {
		return nil, err
	}
	return ext, nil
}

func (s *DeadlineService) Update(ctx context.Context, in ExtensionInput) (*domain.DeadlineExtension, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	session, err := s.session(ctx, in.CourseID, in.SessionName)
	if err != nil {
		return nil, err
	}
	if err := deadline.ValidateExtension(session, in.EndTime); err != nil {
		return nil, err
	}

	ext, err := s.store.Extensions.Get(ctx, in.key())
	if err != nil {
		return nil, err
	}
	ext.EndTime = in.EndTime
	ext.EditedAt = s.now()
	if err := s.store.Extensions.Update(ctx, ext); err != nil {
		return nil, err
	}
	if err := s.syncer.Sync(ctx, session.Key()); err != nil {
		return nil, err
	}
	return ext, nil
}

// Delete removes the extension. A missing extension is not an error.
func (s *DeadlineService) Delete(ctx context.Context, key domain.DeadlineExtensionKey) (domain.DeleteResult, error) {
	removed, err := s.store.Extensions.Delete(ctx, key)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	if !removed {
		return domain.DeleteResult{}, nil
	}
	err = s.syncer.Sync(ctx, domain.SessionKey{CourseID: key.CourseID, Name: key.SessionName})
	if err != nil && !isNotFound(err) {
		return domain.DeleteResult{Deleted: true}, err
	}
	return domain.DeleteResult{Deleted: true}, nil
}

func (s *DeadlineService) ListBySession(ctx context.Context, courseID, sessionName string) ([]*domain.DeadlineExtension, error) {
	return s.store.Extensions.ListBySession(ctx, courseID, sessionName)
}

// PruneNotAfter deletes the session's extensions that no longer end after
// end and rebuilds the cached maps.
func (s *DeadlineService) PruneNotAfter(ctx context.Context, key domain.SessionKey, end time.Time) (int, error) {
	exts, err := s.store.Extensions.ListBySession(ctx, key.CourseID, key.Name)
	if err != nil {
		return 0, fmt.Errorf("failed to list extensions of %s: %w", key, err)
	}
	pruned := 0
	for _, e := range exts {
		if e.EndTime.After(end) {
			continue
		}
		if _, err := s.store.Extensions.Delete(ctx, e.Key()); err != nil {
			return pruned, fmt.Errorf("failed to delete extension of %s: %w", e.UserEmail, err)
		}
		pruned++
	}
	if err := s.syncer.Sync(ctx, key); err != nil {
		return pruned, err
	}
	if pruned > 0 {
		s.log(ctx).Info("deadline extensions pruned",
			zap.String("course_id", key.CourseID),
			zap.String("session", key.Name),
			zap.Int("count", pruned),
		)
	}
	return pruned, nil
}
