package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"feedback_service/internal/cascade"
	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
	"feedback_service/internal/lifecycle"
	"feedback_service/internal/repository"
	"feedback_service/pkg/logger"
)

type CreateSessionInput struct {
	CourseID     string `json:"course_id" validate:"notblank"`
	Name         string `json:"name" validate:"notblank,max=64"`
	CreatorEmail string `json:"creator_email" validate:"required,email"`
	Instructions string `json:"instructions"`

	VisibleFromTime time.Time                `json:"visible_from_time" validate:"required"`
	StartTime       time.Time                `json:"start_time" validate:"required"`
	EndTime         time.Time                `json:"end_time" validate:"required"`
	GracePeriod     time.Duration            `json:"grace_period" validate:"min=0"`
	ResultsVisible  domain.ResultsVisibility `json:"results_visible_from_time"`

	OpeningEmailEnabled   bool `json:"opening_email_enabled"`
	ClosingEmailEnabled   bool `json:"closing_email_enabled"`
	PublishedEmailEnabled bool `json:"published_email_enabled"`
}

// UpdateSessionInput changes the non-nil fields. SentFlags sets email
// flags explicitly and is applied after the automatic re-arming.
type UpdateSessionInput struct {
	CourseID string `json:"course_id" validate:"notblank"`
	Name     string `json:"name" validate:"notblank"`

	Instructions    *string                   `json:"instructions"`
	VisibleFromTime *time.Time                `json:"visible_from_time"`
	StartTime       *time.Time                `json:"start_time"`
	EndTime         *time.Time                `json:"end_time"`
	GracePeriod     *time.Duration            `json:"grace_period" validate:"omitempty,min=0"`
	ResultsVisible  *domain.ResultsVisibility `json:"results_visible_from_time"`

	OpeningEmailEnabled   *bool `json:"opening_email_enabled"`
	ClosingEmailEnabled   *bool `json:"closing_email_enabled"`
	PublishedEmailEnabled *bool `json:"published_email_enabled"`

	SentFlags map[domain.EmailFlag]bool `json:"sent_flags"`
}

// UnpublishNotifier is told when the results of a session are withdrawn,
// so participants can be emailed.
type UnpublishNotifier interface {
	SessionUnpublished(ctx context.Context, key domain.SessionKey) error
}

type SessionService struct {
	base
	cascade   *cascade.Manager
	deadlines *DeadlineService
	notifier  UnpublishNotifier
}

func NewSessionService(store *repository.Store, manager *cascade.Manager, deadlines *DeadlineService, log *logger.Logger, opts ...Option) *SessionService {
	return &SessionService{
		base:      newBase(store, log, opts),
		cascade:   manager,
		deadlines: deadlines,
	}
}

func (s *SessionService) WithUnpublishNotifier(n UnpublishNotifier) *SessionService {
	s.notifier = n
	return s
}

func validateTimes(s *domain.FeedbackSession) error {
	if s.StartTime.Before(s.VisibleFromTime) {
		return invalidf("session %s starts before it becomes visible", s.Key())
	}
	if !s.EndTime.After(s.StartTime) {
		return invalidf("session %s must end after it starts", s.Key())
	}
	r := s.ResultsVisibleFromTime
	if !r.Mode.IsValid() {
		return invalidf("session %s has unknown results visibility %q", s.Key(), r.Mode)
	}
	if r.Mode == domain.ResultsAt && r.At.Before(s.VisibleFromTime) {
		return invalidf("session %s publishes results before it becomes visible", s.Key())
	}
	return nil
}

func (s *SessionService) Create(ctx context.Context, in CreateSessionInput) (*domain.FeedbackSession, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	course, err := s.store.Courses.Get(ctx, in.CourseID)
	if err != nil {
		return nil, err
	}
	if course.IsInRecycleBin() {
		return nil, fmt.Errorf("course %s is in the recycle bin: %w", course.ID, errdefs.ErrNotFound)
	}

	results := in.ResultsVisible
	if results.Mode == "" {
		results = domain.ResultsVisibleLater()
	}
	session := &domain.FeedbackSession{
		CourseID:               in.CourseID,
		Name:                   in.Name,
		CreatorEmail:           in.CreatorEmail,
		Instructions:           in.Instructions,
		TimeZone:               course.TimeZone,
		VisibleFromTime:        in.VisibleFromTime,
		StartTime:              in.StartTime,
		EndTime:                in.EndTime,
		GracePeriod:            in.GracePeriod,
		ResultsVisibleFromTime: results,
		OpeningEmailEnabled:    in.OpeningEmailEnabled,
		ClosingEmailEnabled:    in.ClosingEmailEnabled,
		PublishedEmailEnabled:  in.PublishedEmailEnabled,
		StudentDeadlines:       map[string]time.Time{},
		InstructorDeadlines:    map[string]time.Time{},
		CreatedAt:              s.now(),
	}
	if err := validateTimes(session); err != nil {
		return nil, err
	}
	if err := s.store.Sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get returns an active session; binned sessions are not found.
func (s *SessionService) Get(ctx context.Context, courseID, name string) (*domain.FeedbackSession, error) {
	session, err := s.store.Sessions.Get(ctx, courseID, name)
	if err != nil {
		return nil, err
	}
	if session.IsInRecycleBin() {
		return nil, fmt.Errorf("session %s/%s is in the recycle bin: %w", courseID, name, errdefs.ErrNotFound)
	}
	return session, nil
}

func (s *SessionService) GetFromRecycleBin(ctx context.Context, courseID, name string) (*domain.FeedbackSession, error) {
	session, err := s.store.Sessions.Get(ctx, courseID, name)
	if err != nil {
		return nil, err
	}
	if !session.IsInRecycleBin() {
		return nil, fmt.Errorf("session %s/%s is not in the recycle bin: %w", courseID, name, errdefs.ErrNotFound)
	}
	return session, nil
}

func (s *SessionService) List(ctx context.Context, courseID string) ([]*domain.FeedbackSession, error) {
	return s.list(ctx, courseID, false)
}

func (s *SessionService) ListRecycleBin(ctx context.Context, courseID string) ([]*domain.FeedbackSession, error) {
	return s.list(ctx, courseID, true)
}

func (s *SessionService) list(ctx context.Context, courseID string, binned bool) ([]*domain.FeedbackSession, error) {
	sessions, err := s.store.Sessions.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.FeedbackSession, 0, len(sessions))
	for _, session := range sessions {
		if session.IsInRecycleBin() == binned {
			out = append(out, session)
		}
	}
	return out, nil
}

// Update applies the changed fields and re-arms email flags whose trigger
// moved back into the future. Extensions that no longer end after a new
// end time are deleted.
func (s *SessionService) Update(ctx context.Context, in UpdateSessionInput) (*domain.FeedbackSession, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	session, err := s.Get(ctx, in.CourseID, in.Name)
	if err != nil {
		return nil, err
	}
	old := session.Clone()
	now := s.now()

	if in.Instructions != nil {
		session.Instructions = *in.Instructions
	}
	if in.VisibleFromTime != nil {
		session.VisibleFromTime = *in.VisibleFromTime
	}
	if in.StartTime != nil {
		session.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		session.EndTime = *in.EndTime
	}
	if in.GracePeriod != nil {
		session.GracePeriod = *in.GracePeriod
	}
	if in.ResultsVisible != nil {
		session.ResultsVisibleFromTime = *in.ResultsVisible
	}
	if in.OpeningEmailEnabled != nil {
		session.OpeningEmailEnabled = *in.OpeningEmailEnabled
	}
	if in.ClosingEmailEnabled != nil {
		session.ClosingEmailEnabled = *in.ClosingEmailEnabled
	}
	if in.PublishedEmailEnabled != nil {
		session.PublishedEmailEnabled = *in.PublishedEmailEnabled
	}
	if err := validateTimes(session); err != nil {
		return nil, err
	}

	flags := rearm(old, session, now)
	for flag, sent := range in.SentFlags {
		if !flag.IsValid() {
			return nil, invalidf("unknown email flag %q", flag)
		}
		flags[flag] = sent
	}

	key := session.Key()
	if err := s.store.Sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	if err := s.applyFlags(ctx, key, flags); err != nil {
		return nil, err
	}

	if !session.EndTime.Equal(old.EndTime) {
		if _, err := s.deadlines.PruneNotAfter(ctx, key, session.EndTime); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, in.CourseID, in.Name)
}

// rearm returns the sent flags to clear because their triggering time was
// moved into the future.
func rearm(old, next *domain.FeedbackSession, now time.Time) map[domain.EmailFlag]bool {
	flags := make(map[domain.EmailFlag]bool)
	if !next.StartTime.Equal(old.StartTime) && next.StartTime.After(now) {
		flags[domain.EmailFlagOpeningSoon] = false
		flags[domain.EmailFlagOpen] = false
	}
	if next.EndTime.After(old.EndTime) && next.EndTime.After(now) {
		flags[domain.EmailFlagClosing] = false
		flags[domain.EmailFlagClosed] = false
	}
	if !next.ResultsVisibleFromTime.Equal(old.ResultsVisibleFromTime) && !lifecycle.IsPublished(next, now) {
		flags[domain.EmailFlagPublished] = false
	}
	return flags
}

// applyFlags writes only the listed flags, leaving the others as the
// scheduler last stored them.
func (s *SessionService) applyFlags(ctx context.Context, key domain.SessionKey, flags map[domain.EmailFlag]bool) error {
	var cleared []domain.EmailFlag
	for _, flag := range domain.EmailFlags() {
		sent, ok := flags[flag]
		if !ok {
			continue
		}
		if !sent {
			cleared = append(cleared, flag)
			continue
		}
		if err := s.store.Sessions.MarkEmailSent(ctx, key, flag); err != nil {
			return err
		}
	}
	if len(cleared) == 0 {
		return nil
	}
	return s.store.Sessions.ClearEmailSent(ctx, key, cleared...)
}

func (s *SessionService) Publish(ctx context.Context, courseID, name string) (*domain.FeedbackSession, error) {
	return s.transition(ctx, courseID, name, "published", lifecycle.Publish)
}

// Unpublish withdraws the results and asks the notifier to email the
// participants. A failed notification does not undo the unpublish.
func (s *SessionService) Unpublish(ctx context.Context, courseID, name string) (*domain.FeedbackSession, error) {
	session, err := s.transition(ctx, courseID, name, "unpublished", lifecycle.Unpublish)
	if err != nil || s.notifier == nil {
		return session, err
	}
	if err := s.notifier.SessionUnpublished(ctx, session.Key()); err != nil {
		s.log(ctx).Error("failed to request unpublished emails",
			zap.String("course_id", courseID), zap.String("session", name), zap.Error(err))
	}
	return session, nil
}

func (s *SessionService) transition(ctx context.Context, courseID, name, what string, apply func(*domain.FeedbackSession, time.Time) error) (*domain.FeedbackSession, error) {
	session, err := s.Get(ctx, courseID, name)
	if err != nil {
		return nil, err
	}
	if err := apply(session, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	s.log(ctx).Info("session "+what, zap.String("course_id", courseID), zap.String("session", name))
	return s.store.Sessions.Get(ctx, courseID, name)
}

// State resolves the lifecycle state of the session for the viewer now.
func (s *SessionService) State(ctx context.Context, courseID, name string, viewer lifecycle.Viewer) (lifecycle.State, error) {
	session, err := s.Get(ctx, courseID, name)
	if err != nil {
		return "", err
	}
	return lifecycle.StateAt(session, s.now(), viewer), nil
}

func (s *SessionService) MoveToRecycleBin(ctx context.Context, courseID, name string) (*domain.FeedbackSession, error) {
	session, err := s.Get(ctx, courseID, name)
	if err != nil {
		return nil, err
	}
	deletedAt := s.now()
	session.DeletedAt = &deletedAt
	if err := s.store.Sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) Restore(ctx context.Context, courseID, name string) (*domain.FeedbackSession, error) {
	session, err := s.GetFromRecycleBin(ctx, courseID, name)
	if err != nil {
		return nil, err
	}
	session.DeletedAt = nil
	if err := s.store.Sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Delete hard-deletes the session with its questions, responses, comments
// and extensions. Deleting a missing session succeeds.
func (s *SessionService) Delete(ctx context.Context, courseID, name string) (domain.DeleteResult, error) {
	if _, err := s.cascade.DeleteForSession(ctx, courseID, name); err != nil {
		return domain.DeleteResult{}, err
	}
	removed, err := s.store.Sessions.Delete(ctx, courseID, name)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	return domain.DeleteResult{Deleted: removed}, nil
}
