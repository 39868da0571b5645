package memory

import (
	"context"
	"fmt"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
)

type courseRepository struct {
	db *courseTable
}

func copyCourse(c *domain.Course) *domain.Course {
	out := *c
	out.DeletedAt = copyTime(c.DeletedAt)
	return &out
}

func (r *courseRepository) Create(_ context.Context, course *domain.Course) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.t[course.ID]; ok {
		return fmt.Errorf("course %s: %w", course.ID, errdefs.ErrAlreadyExists)
	}
	r.db.t[course.ID] = copyCourse(course)
	return nil
}

func (r *courseRepository) Get(_ context.Context, id string) (*domain.Course, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if c, ok := r.db.t[id]; ok {
		return copyCourse(c), nil
	}
	return nil, fmt.Errorf("course %s: %w", id, errdefs.ErrNotFound)
}

func (r *courseRepository) Update(_ context.Context, course *domain.Course) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.t[course.ID]; !ok {
		return fmt.Errorf("course %s: %w", course.ID, errdefs.ErrNotFound)
	}
	r.db.t[course.ID] = copyCourse(course)
	return nil
}

func (r *courseRepository) Delete(_ context.Context, id string) (bool, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.t[id]; !ok {
		return false, nil
	}
	delete(r.db.t, id)
	return true, nil
}
