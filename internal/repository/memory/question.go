package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
)

type questionRepository struct {
	db *questionTable
}

func (r *questionRepository) Create(_ context.Context, question *domain.FeedbackQuestion) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.t[question.ID]; ok {
		return fmt.Errorf("question %s: %w", question.ID, errdefs.ErrAlreadyExists)
	}
	r.db.t[question.ID] = question.Clone()
	return nil
}

func (r *questionRepository) Get(_ context.Context, id uuid.UUID) (*domain.FeedbackQuestion, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if q, ok := r.db.t[id]; ok {
		return q.Clone(), nil
	}
	return nil, fmt.Errorf("question %s: %w", id, errdefs.ErrNotFound)
}

func (r *questionRepository) query(match func(*domain.FeedbackQuestion) bool) []*domain.FeedbackQuestion {
	res := make([]*domain.FeedbackQuestion, 0)
	for _, q := range r.db.t {
		if match(q) {
			res = append(res, q.Clone())
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].SessionName != res[j].SessionName {
			return res[i].SessionName < res[j].SessionName
		}
		return res[i].Number < res[j].Number
	})
	return res
}

func (r *questionRepository) ListBySession(_ context.Context, courseID, sessionName string) ([]*domain.FeedbackQuestion, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	return r.query(func(q *domain.FeedbackQuestion) bool {
		return q.CourseID == courseID && q.SessionName == sessionName
	}), nil
}

func (r *questionRepository) ListByCourse(_ context.Context, courseID string) ([]*domain.FeedbackQuestion, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	return r.query(func(q *domain.FeedbackQuestion) bool { return q.CourseID == courseID }), nil
}

func (r *questionRepository) Update(_ context.Context, question *domain.FeedbackQuestion) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.t[question.ID]; !ok {
		return fmt.Errorf("question %s: %w", question.ID, errdefs.ErrNotFound)
	}
	r.db.t[question.ID] = question.Clone()
	return nil
}

func (r *questionRepository) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.t[id]; !ok {
		return false, nil
	}
	delete(r.db.t, id)
	return true, nil
}

func (r *questionRepository) DeleteByCourse(_ context.Context, courseID string, limit int) (int, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	var ids []uuid.UUID
	for id, q := range r.db.t {
		if q.CourseID == courseID {
			ids = append(ids, id)
		}
	}
	ids = takeFirst(ids, func(a, b uuid.UUID) bool { return a.String() < b.String() }, limit)
	for _, id := range ids {
		delete(r.db.t, id)
	}
	return len(ids), nil
}
