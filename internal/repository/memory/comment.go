package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
)

type commentRepository struct {
	db *commentTable
}

func copyComment(c *domain.FeedbackResponseComment) *domain.FeedbackResponseComment {
	out := *c
	out.ShowCommentTo = append([]domain.ParticipantType(nil), c.ShowCommentTo...)
	out.ShowGiverNameTo = append([]domain.ParticipantType(nil), c.ShowGiverNameTo...)
	return &out
}

func (r *commentRepository) Create(_ context.Context, comment *domain.FeedbackResponseComment) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.t[comment.ID]; ok {
		return fmt.Errorf("comment %s: %w", comment.ID, errdefs.ErrAlreadyExists)
	}
	r.db.t[comment.ID] = copyComment(comment)
	return nil
}

func (r *commentRepository) Get(_ context.Context, id uuid.UUID) (*domain.FeedbackResponseComment, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if c, ok := r.db.t[id]; ok {
		return copyComment(c), nil
	}
	return nil, fmt.Errorf("comment %s: %w", id, errdefs.ErrNotFound)
}

func (r *commentRepository) ListByResponse(_ context.Context, responseID uuid.UUID) ([]*domain.FeedbackResponseComment, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	res := make([]*domain.FeedbackResponseComment, 0)
	for _, c := range r.db.t {
		if c.ResponseID == responseID {
			res = append(res, copyComment(c))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (r *commentRepository) Update(_ context.Context, comment *domain.FeedbackResponseComment) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.t[comment.ID]; !ok {
		return fmt.Errorf("comment %s: %w", comment.ID, errdefs.ErrNotFound)
	}
	r.db.t[comment.ID] = copyComment(comment)
	return nil
}

func (r *commentRepository) updateWhere(match func(*domain.FeedbackResponseComment) bool, apply func(*domain.FeedbackResponseComment)) int {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	n := 0
	for _, c := range r.db.t {
		if match(c) {
			apply(c)
			n++
		}
	}
	return n
}

func (r *commentRepository) MoveToResponse(_ context.Context, from, to uuid.UUID) (int, error) {
	return r.updateWhere(
		func(c *domain.FeedbackResponseComment) bool { return c.ResponseID == from },
		func(c *domain.FeedbackResponseComment) { c.ResponseID = to },
	), nil
}

func (r *commentRepository) ReplaceGiverEmail(_ context.Context, courseID, oldEmail, newEmail string) (int, error) {
	return r.updateWhere(
		func(c *domain.FeedbackResponseComment) bool {
			return c.CourseID == courseID && c.GiverEmail == oldEmail
		},
		func(c *domain.FeedbackResponseComment) { c.GiverEmail = newEmail },
	), nil
}

func (r *commentRepository) deleteWhere(match func(*domain.FeedbackResponseComment) bool, limit int) int {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	var ids []uuid.UUID
	for id, c := range r.db.t {
		if match(c) {
			ids = append(ids, id)
		}
	}
	ids = takeFirst(ids, func(a, b uuid.UUID) bool { return a.String() < b.String() }, limit)
	for _, id := range ids {
		delete(r.db.t, id)
	}
	return len(ids)
}

func (r *commentRepository) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	n := r.deleteWhere(func(c *domain.FeedbackResponseComment) bool { return c.ID == id }, 0)
	return n > 0, nil
}

func (r *commentRepository) DeleteByResponse(_ context.Context, responseID uuid.UUID) (int, error) {
	return r.deleteWhere(func(c *domain.FeedbackResponseComment) bool { return c.ResponseID == responseID }, 0), nil
}

func (r *commentRepository) DeleteByQuestion(_ context.Context, questionID uuid.UUID) (int, error) {
	return r.deleteWhere(func(c *domain.FeedbackResponseComment) bool { return c.QuestionID == questionID }, 0), nil
}

func (r *commentRepository) DeleteByGiver(_ context.Context, courseID, giverEmail string) (int, error) {
	return r.deleteWhere(func(c *domain.FeedbackResponseComment) bool {
		return c.CourseID == courseID && c.GiverEmail == giverEmail
	}, 0), nil
}

func (r *commentRepository) DeleteByCourse(_ context.Context, courseID string, limit int) (int, error) {
	return r.deleteWhere(func(c *domain.FeedbackResponseComment) bool { return c.CourseID == courseID }, limit), nil
}
