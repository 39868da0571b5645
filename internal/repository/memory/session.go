package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
)

type sessionRepository struct {
	db *sessionTable
}

func (r *sessionRepository) Create(_ context.Context, session *domain.FeedbackSession) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	key := session.Key()
	if _, ok := r.db.t[key]; ok {
		return fmt.Errorf("session %s: %w", key, errdefs.ErrAlreadyExists)
	}
	r.db.t[key] = session.Clone()
	return nil
}

func (r *sessionRepository) Get(_ context.Context, courseID, name string) (*domain.FeedbackSession, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	key := domain.SessionKey{CourseID: courseID, Name: name}
	if s, ok := r.db.t[key]; ok {
		return s.Clone(), nil
	}
	return nil, fmt.Errorf("session %s: %w", key, errdefs.ErrNotFound)
}

func (r *sessionRepository) query(match func(*domain.FeedbackSession) bool) []*domain.FeedbackSession {
	res := make([]*domain.FeedbackSession, 0)
	for _, s := range r.db.t {
		if match(s) {
			res = append(res, s.Clone())
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CourseID != res[j].CourseID {
			return res[i].CourseID < res[j].CourseID
		}
		return res[i].Name < res[j].Name
	})
	return res
}

func (r *sessionRepository) ListByCourse(_ context.Context, courseID string) ([]*domain.FeedbackSession, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	return r.query(func(s *domain.FeedbackSession) bool { return s.CourseID == courseID }), nil
}

func (r *sessionRepository) ListEmailPending(_ context.Context, flag domain.EmailFlag) ([]*domain.FeedbackSession, error) {
	if !flag.IsValid() {
		return nil, fmt.Errorf("email flag %q: %w", flag, errdefs.ErrInvalidParameters)
	}

	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	return r.query(func(s *domain.FeedbackSession) bool {
		return !s.IsInRecycleBin() && !s.IsSent(flag)
	}), nil
}

func (r *sessionRepository) Update(_ context.Context, session *domain.FeedbackSession) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	key := session.Key()
	stored, ok := r.db.t[key]
	if !ok {
		return fmt.Errorf("session %s: %w", key, errdefs.ErrNotFound)
	}
	next := session.Clone()
	for _, flag := range domain.EmailFlags() {
		next.SetSent(flag, stored.IsSent(flag))
	}
	next.StudentDeadlines = stored.StudentDeadlines
	next.InstructorDeadlines = stored.InstructorDeadlines
	r.db.t[key] = next
	return nil
}

func (r *sessionRepository) MarkEmailSent(_ context.Context, key domain.SessionKey, flag domain.EmailFlag) error {
	if !flag.IsValid() {
		return fmt.Errorf("email flag %q: %w", flag, errdefs.ErrInvalidParameters)
	}

	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	s, ok := r.db.t[key]
	if !ok {
		return fmt.Errorf("session %s: %w", key, errdefs.ErrNotFound)
	}
	s.SetSent(flag, true)
	return nil
}

func (r *sessionRepository) ClearEmailSent(_ context.Context, key domain.SessionKey, flags ...domain.EmailFlag) error {
	for _, flag := range flags {
		if !flag.IsValid() {
			return fmt.Errorf("email flag %q: %w", flag, errdefs.ErrInvalidParameters)
		}
	}

	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	s, ok := r.db.t[key]
	if !ok {
		return fmt.Errorf("session %s: %w", key, errdefs.ErrNotFound)
	}
	for _, flag := range flags {
		s.SetSent(flag, false)
	}
	return nil
}

func (r *sessionRepository) SetDeadlines(_ context.Context, key domain.SessionKey, students, instructors map[string]time.Time) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	s, ok := r.db.t[key]
	if !ok {
		return fmt.Errorf("session %s: %w", key, errdefs.ErrNotFound)
	}
	c := (&domain.FeedbackSession{StudentDeadlines: students, InstructorDeadlines: instructors}).Clone()
	s.StudentDeadlines = c.StudentDeadlines
	s.InstructorDeadlines = c.InstructorDeadlines
	return nil
}

func (r *sessionRepository) Delete(_ context.Context, courseID, name string) (bool, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	key := domain.SessionKey{CourseID: courseID, Name: name}
	if _, ok := r.db.t[key]; !ok {
		return false, nil
	}
	delete(r.db.t, key)
	return true, nil
}

func (r *sessionRepository) DeleteByCourse(_ context.Context, courseID string, limit int) (int, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	var keys []domain.SessionKey
	for k := range r.db.t {
		if k.CourseID == courseID {
			keys = append(keys, k)
		}
	}
	keys = takeFirst(keys, func(a, b domain.SessionKey) bool { return a.Name < b.Name }, limit)
	for _, k := range keys {
		delete(r.db.t, k)
	}
	return len(keys), nil
}
