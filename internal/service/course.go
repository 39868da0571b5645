package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"feedback_service/internal/cascade"
	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
	"feedback_service/internal/repository"
	"feedback_service/pkg/logger"
)

type CreateCourseInput struct {
	ID        string `json:"id" validate:"notblank,max=64"`
	Name      string `json:"name" validate:"notblank,max=128"`
	TimeZone  string `json:"time_zone" validate:"omitempty,timezone"`
	Institute string `json:"institute"`
}

type CourseService struct {
	base
	cascade *cascade.Manager
	cache   Invalidator
}

func NewCourseService(store *repository.Store, manager *cascade.Manager, log *logger.Logger, opts ...Option) *CourseService {
	return &CourseService{base: newBase(store, log, opts), cascade: manager, cache: noopInvalidator{}}
}

// WithCache registers the roster cache to drop once a course is purged.
func (s *CourseService) WithCache(cache Invalidator) *CourseService {
	if cache != nil {
		s.cache = cache
	}
	return s
}

func (s *CourseService) Create(ctx context.Context, in CreateCourseInput) (*domain.Course, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	tz := in.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	course := &domain.Course{
		ID:        in.ID,
		Name:      in.Name,
		TimeZone:  tz,
		Institute: in.Institute,
		CreatedAt: s.now(),
	}
	if err := s.store.Courses.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// Get returns an active course; a binned course is reported as not found.
func (s *CourseService) Get(ctx context.Context, id string) (*domain.Course, error) {
	course, err := s.store.Courses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if course.IsInRecycleBin() {
		return nil, fmt.Errorf("course %s is in the recycle bin: %w", id, errdefs.ErrNotFound)
	}
	return course, nil
}

// MoveToRecycleBin bins the course and every active session in it with
// the same timestamp.
func (s *CourseService) MoveToRecycleBin(ctx context.Context, id string) (*domain.Course, error) {
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	deletedAt := s.now()
	sessions, err := s.store.Sessions.ListByCourse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions of %s: %w", id, err)
	}
	for _, session := range sessions {
		if session.IsInRecycleBin() {
			continue
		}
		session.DeletedAt = &deletedAt
		if err := s.store.Sessions.Update(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to bin session %s: %w", session.Key(), err)
		}
	}

	course.DeletedAt = &deletedAt
	if err := s.store.Courses.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// Restore takes the course out of the recycle bin together with the
// sessions binned along with it. Sessions binned on their own stay there.
func (s *CourseService) Restore(ctx context.Context, id string) (*domain.Course, error) {
	course, err := s.store.Courses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !course.IsInRecycleBin() {
		return nil, fmt.Errorf("course %s is not in the recycle bin: %w", id, errdefs.ErrNotFound)
	}

	binnedAt := *course.DeletedAt
	sessions, err := s.store.Sessions.ListByCourse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions of %s: %w", id, err)
	}
	for _, session := range sessions {
		if session.DeletedAt == nil || !session.DeletedAt.Equal(binnedAt) {
			continue
		}
		session.DeletedAt = nil
		if err := s.store.Sessions.Update(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to restore session %s: %w", session.Key(), err)
		}
	}

	course.DeletedAt = nil
	if err := s.store.Courses.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// Purge hard-deletes the course. A zero until runs without a time budget;
// otherwise the purge stops at until and a later call resumes it.
func (s *CourseService) Purge(ctx context.Context, id string, until time.Time) (cascade.BatchProgress, error) {
	progress, err := s.cascade.PurgeCourse(ctx, id, until)
	if err != nil {
		s.log(ctx).Error("course purge failed", zap.String("course_id", id), zap.Error(err))
		return progress, err
	}
	if progress.Complete {
		s.cache.Invalidate(ctx, id)
	}
	return progress, nil
}
