package memory

import (
	"context"
	"fmt"
	"time"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
)

type extensionRepository struct {
	db *extensionTable
}

func copyExtension(d *domain.DeadlineExtension) *domain.DeadlineExtension {
	out := *d
	return &out
}

func lessExtension(a, b *domain.DeadlineExtension) bool {
	if a.SessionName != b.SessionName {
		return a.SessionName < b.SessionName
	}
	if a.IsInstructor != b.IsInstructor {
		return !a.IsInstructor
	}
	return a.UserEmail < b.UserEmail
}

func (r *extensionRepository) Create(_ context.Context, ext *domain.DeadlineExtension) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	key := ext.Key()
	if _, ok := r.db.t[key]; ok {
		return fmt.Errorf("deadline extension for %s: %w", key.UserEmail, errdefs.ErrAlreadyExists)
	}
	r.db.t[key] = copyExtension(ext)
	return nil
}

func (r *extensionRepository) Get(_ context.Context, key domain.DeadlineExtensionKey) (*domain.DeadlineExtension, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if d, ok := r.db.t[key]; ok {
		return copyExtension(d), nil
	}
	return nil, fmt.Errorf("deadline extension for %s: %w", key.UserEmail, errdefs.ErrNotFound)
}

func (r *extensionRepository) Update(_ context.Context, ext *domain.DeadlineExtension) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	key := ext.Key()
	if _, ok := r.db.t[key]; !ok {
		return fmt.Errorf("deadline extension for %s: %w", key.UserEmail, errdefs.ErrNotFound)
	}
	r.db.t[key] = copyExtension(ext)
	return nil
}

func (r *extensionRepository) query(match func(*domain.DeadlineExtension) bool) []*domain.DeadlineExtension {
	res := make([]*domain.DeadlineExtension, 0)
	for _, d := range r.db.t {
		if match(d) {
			res = append(res, copyExtension(d))
		}
	}
	return takeFirst(res, lessExtension, 0)
}

func (r *extensionRepository) ListBySession(_ context.Context, courseID, sessionName string) ([]*domain.DeadlineExtension, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	return r.query(func(d *domain.DeadlineExtension) bool {
		return d.CourseID == courseID && d.SessionName == sessionName
	}), nil
}

func (r *extensionRepository) ListByUser(_ context.Context, courseID, email string, isInstructor bool) ([]*domain.DeadlineExtension, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	return r.query(func(d *domain.DeadlineExtension) bool {
		return d.CourseID == courseID && d.UserEmail == email && d.IsInstructor == isInstructor
	}), nil
}

func (r *extensionRepository) ListEndingBetween(_ context.Context, from, to time.Time) ([]*domain.DeadlineExtension, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	return r.query(func(d *domain.DeadlineExtension) bool {
		return !d.EndTime.Before(from) && !d.EndTime.After(to)
	}), nil
}

func (r *extensionRepository) deleteWhere(match func(*domain.DeadlineExtension) bool, limit int) int {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	var matched []*domain.DeadlineExtension
	for _, d := range r.db.t {
		if match(d) {
			matched = append(matched, d)
		}
	}
	matched = takeFirst(matched, lessExtension, limit)
	for _, d := range matched {
		delete(r.db.t, d.Key())
	}
	return len(matched)
}

func (r *extensionRepository) Delete(_ context.Context, key domain.DeadlineExtensionKey) (bool, error) {
	n := r.deleteWhere(func(d *domain.DeadlineExtension) bool { return d.Key() == key }, 0)
	return n > 0, nil
}

func (r *extensionRepository) DeleteBySession(_ context.Context, courseID, sessionName string) (int, error) {
	return r.deleteWhere(func(d *domain.DeadlineExtension) bool {
		return d.CourseID == courseID && d.SessionName == sessionName
	}, 0), nil
}

func (r *extensionRepository) DeleteByCourse(_ context.Context, courseID string, limit int) (int, error) {
	return r.deleteWhere(func(d *domain.DeadlineExtension) bool { return d.CourseID == courseID }, limit), nil
}
