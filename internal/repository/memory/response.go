package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
)

type responseRepository struct {
	db *responseTable
}

func copyResponse(r *domain.FeedbackResponse) *domain.FeedbackResponse {
	out := *r
	return &out
}

// CreateIfAbsent checks the key and inserts under one lock, so two
// concurrent creates of the same key cannot both succeed.
func (r *responseRepository) CreateIfAbsent(_ context.Context, response *domain.FeedbackResponse) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	key := response.Key()
	if _, ok := r.db.keys[key]; ok {
		return fmt.Errorf("response %s->%s: %w", key.Giver, key.Recipient, errdefs.ErrAlreadyExists)
	}
	if _, ok := r.db.t[response.ID]; ok {
		return fmt.Errorf("response %s: %w", response.ID, errdefs.ErrAlreadyExists)
	}
	r.db.t[response.ID] = copyResponse(response)
	r.db.keys[key] = response.ID
	return nil
}

func (r *responseRepository) Get(_ context.Context, id uuid.UUID) (*domain.FeedbackResponse, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if resp, ok := r.db.t[id]; ok {
		return copyResponse(resp), nil
	}
	return nil, fmt.Errorf("response %s: %w", id, errdefs.ErrNotFound)
}

func (r *responseRepository) GetByKey(_ context.Context, key domain.ResponseKey) (*domain.FeedbackResponse, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if id, ok := r.db.keys[key]; ok {
		return copyResponse(r.db.t[id]), nil
	}
	return nil, fmt.Errorf("response %s->%s: %w", key.Giver, key.Recipient, errdefs.ErrNotFound)
}

func (r *responseRepository) query(match func(*domain.FeedbackResponse) bool) []*domain.FeedbackResponse {
	res := make([]*domain.FeedbackResponse, 0)
	for _, resp := range r.db.t {
		if match(resp) {
			res = append(res, copyResponse(resp))
		}
	}
	sort.Slice(res, func(i, j int) bool { return lessResponse(res[i], res[j]) })
	return res
}

func lessResponse(a, b *domain.FeedbackResponse) bool {
	if a.QuestionID != b.QuestionID {
		return a.QuestionID.String() < b.QuestionID.String()
	}
	if a.Giver != b.Giver {
		return a.Giver < b.Giver
	}
	return a.Recipient < b.Recipient
}

func (r *responseRepository) ListByQuestion(_ context.Context, questionID uuid.UUID) ([]*domain.FeedbackResponse, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	return r.query(func(resp *domain.FeedbackResponse) bool { return resp.QuestionID == questionID }), nil
}

func (r *responseRepository) ListBySession(_ context.Context, courseID, sessionName string) ([]*domain.FeedbackResponse, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	return r.query(func(resp *domain.FeedbackResponse) bool {
		return resp.CourseID == courseID && resp.SessionName == sessionName
	}), nil
}

func (r *responseRepository) ListByParticipant(_ context.Context, courseID, identifier string) ([]*domain.FeedbackResponse, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	return r.query(func(resp *domain.FeedbackResponse) bool {
		return resp.CourseID == courseID && resp.Involves(identifier)
	}), nil
}

func (r *responseRepository) Update(_ context.Context, response *domain.FeedbackResponse) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	existing, ok := r.db.t[response.ID]
	if !ok {
		return fmt.Errorf("response %s: %w", response.ID, errdefs.ErrNotFound)
	}
	updated := copyResponse(existing)
	updated.GiverSection = response.GiverSection
	updated.RecipientSection = response.RecipientSection
	updated.Answer = response.Answer
	updated.EditedAt = response.EditedAt
	r.db.t[response.ID] = updated
	return nil
}

func (r *responseRepository) remove(id uuid.UUID) {
	resp := r.db.t[id]
	delete(r.db.keys, resp.Key())
	delete(r.db.t, id)
}

func (r *responseRepository) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.t[id]; !ok {
		return false, nil
	}
	r.remove(id)
	return true, nil
}

func (r *responseRepository) DeleteByQuestion(_ context.Context, questionID uuid.UUID) (int, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	n := 0
	for id, resp := range r.db.t {
		if resp.QuestionID == questionID {
			r.remove(id)
			n++
		}
	}
	return n, nil
}

func (r *responseRepository) DeleteByCourse(_ context.Context, courseID string, limit int) (int, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	var matched []*domain.FeedbackResponse
	for _, resp := range r.db.t {
		if resp.CourseID == courseID {
			matched = append(matched, resp)
		}
	}
	matched = takeFirst(matched, lessResponse, limit)
	for _, resp := range matched {
		r.remove(resp.ID)
	}
	return len(matched), nil
}
