package cascade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"feedback_service/internal/deadline"
	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
	"feedback_service/internal/repository"
	"feedback_service/pkg/logger"
)

const defaultBatchSize = 100

// Manager keeps responses and comments consistent with the entities they
// reference. Steps are ordered so a reader never sees a response vanish
// before its replacement exists; a failure part way through leaves the
// remaining steps for a retry.
type Manager struct {
	store     *repository.Store
	syncer    *deadline.Syncer
	logger    *logger.Logger
	batchSize int
	now       func() time.Time
}

type Option func(*Manager)

func WithBatchSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store *repository.Store, log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		syncer:    deadline.NewSyncer(store.Sessions, store.Extensions),
		logger:    log,
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ChangeResponseKey moves the response at oldKey to newKey. The copy is
// inserted with a conditional write first, comments are re-pointed, then
// the old row is removed. A taken newKey fails with ErrAlreadyExists and
// changes nothing.
func (m *Manager) ChangeResponseKey(ctx context.Context, oldKey, newKey domain.ResponseKey) (*domain.FeedbackResponse, error) {
	if oldKey.QuestionID != newKey.QuestionID {
		return nil, fmt.Errorf("response cannot move to another question: %w", errdefs.ErrInvalidParameters)
	}

	old, err := m.store.Responses.GetByKey(ctx, oldKey)
	if err != nil {
		return nil, err
	}
	if oldKey == newKey {
		return old, nil
	}

	moved := *old
	moved.ID = newID()
	moved.Giver = newKey.Giver
	moved.Recipient = newKey.Recipient
	moved.EditedAt = m.now()

	if err := m.store.Responses.CreateIfAbsent(ctx, &moved); err != nil {
		return nil, fmt.Errorf("failed to recreate response %s: %w", old.ID, err)
	}

	if _, err := m.store.Comments.MoveToResponse(ctx, old.ID, moved.ID); err != nil {
		m.logFailure(ctx, "response recreated but comments not moved", err,
			zap.Stringer("old_response_id", old.ID), zap.Stringer("new_response_id", moved.ID))
		return nil, fmt.Errorf("failed to move comments of response %s: %w", old.ID, err)
	}

	if _, err := m.store.Responses.Delete(ctx, old.ID); err != nil {
		m.logFailure(ctx, "response recreated but old row not deleted", err,
			zap.Stringer("old_response_id", old.ID), zap.Stringer("new_response_id", moved.ID))
		return nil, fmt.Errorf("failed to delete response %s: %w", old.ID, err)
	}

	return &moved, nil
}

// ChangeParticipantIdentifier replaces oldID with newID as giver and
// recipient on every response of the course, and on comment givers. Every
// target key is checked before anything is written.
func (m *Manager) ChangeParticipantIdentifier(ctx context.Context, courseID, oldID, newID string) (int, error) {
	if oldID == newID {
		return 0, nil
	}

	responses, err := m.store.Responses.ListByParticipant(ctx, courseID, oldID)
	if err != nil {
		return 0, fmt.Errorf("failed to list responses of %s: %w", oldID, err)
	}

	targets := make([]domain.ResponseKey, len(responses))
	for i, r := range responses {
		key := r.Key()
		if key.Giver == oldID {
			key.Giver = newID
		}
		if key.Recipient == oldID {
			key.Recipient = newID
		}
		targets[i] = key

		_, err := m.store.Responses.GetByKey(ctx, key)
		switch {
		case err == nil:
			return 0, fmt.Errorf("response %s->%s already exists: %w", key.Giver, key.Recipient, errdefs.ErrAlreadyExists)
		case !errors.Is(err, errdefs.ErrNotFound):
			return 0, err
		}
	}

	moved := 0
	for i, r := range responses {
		if _, err := m.ChangeResponseKey(ctx, r.Key(), targets[i]); err != nil {
			return moved, err
		}
		moved++
	}

	if _, err := m.store.Comments.ReplaceGiverEmail(ctx, courseID, oldID, newID); err != nil {
		return moved, fmt.Errorf("failed to update comment givers: %w", err)
	}

	return moved, nil
}

// OnSectionChange rewrites the denormalized sections of every response the
// participant gives or receives.
func (m *Manager) OnSectionChange(ctx context.Context, courseID, identifier, section string) (int, error) {
	responses, err := m.store.Responses.ListByParticipant(ctx, courseID, identifier)
	if err != nil {
		return 0, fmt.Errorf("failed to list responses of %s: %w", identifier, err)
	}

	updated := 0
	for _, r := range responses {
		changed := false
		if r.Giver == identifier && r.GiverSection != section {
			r.GiverSection = section
			changed = true
		}
		if r.Recipient == identifier && r.RecipientSection != section {
			r.RecipientSection = section
			changed = true
		}
		if !changed {
			continue
		}
		r.EditedAt = m.now()
		if err := m.store.Responses.Update(ctx, r); err != nil {
			if errors.Is(err, errdefs.ErrNotFound) {
				continue
			}
			return updated, fmt.Errorf("failed to update response %s: %w", r.ID, err)
		}
		updated++
	}
	return updated, nil
}

// OnTeamChange deletes the student's team-scoped responses. When the old
// team is left empty its own responses go too.
func (m *Manager) OnTeamChange(ctx context.Context, courseID, email, oldTeam, newTeam string) (int, error) {
	if oldTeam == newTeam {
		return 0, nil
	}

	responses, err := m.store.Responses.ListByParticipant(ctx, courseID, email)
	if err != nil {
		return 0, fmt.Errorf("failed to list responses of %s: %w", email, err)
	}

	questions := make(map[uuid.UUID]*domain.FeedbackQuestion)
	deleted := 0
	for _, r := range responses {
		q, ok := questions[r.QuestionID]
		if !ok {
			q, err = m.store.Questions.Get(ctx, r.QuestionID)
			if errors.Is(err, errdefs.ErrNotFound) {
				continue
			}
			if err != nil {
				return deleted, err
			}
			questions[r.QuestionID] = q
		}
		if !q.RecipientType.IsTeamScoped() {
			continue
		}
		removed, err := m.deleteResponse(ctx, r.ID)
		if err != nil {
			return deleted, err
		}
		if removed {
			deleted++
		}
	}

	n, err := m.deleteIfTeamEmpty(ctx, courseID, oldTeam, email)
	return deleted + n, err
}

// DeleteResponse removes a response and its comments.
func (m *Manager) DeleteResponse(ctx context.Context, id uuid.UUID) (domain.DeleteResult, error) {
	removed, err := m.deleteResponse(ctx, id)
	return domain.DeleteResult{Deleted: removed}, err
}

func (m *Manager) deleteResponse(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, err := m.store.Comments.DeleteByResponse(ctx, id); err != nil {
		return false, fmt.Errorf("failed to delete comments of response %s: %w", id, err)
	}
	removed, err := m.store.Responses.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete response %s: %w", id, err)
	}
	return removed, nil
}

func (m *Manager) deleteInvolving(ctx context.Context, courseID, identifier string) (int, error) {
	responses, err := m.store.Responses.ListByParticipant(ctx, courseID, identifier)
	if err != nil {
		return 0, fmt.Errorf("failed to list responses of %s: %w", identifier, err)
	}
	deleted := 0
	for _, r := range responses {
		removed, err := m.deleteResponse(ctx, r.ID)
		if err != nil {
			return deleted, err
		}
		if removed {
			deleted++
		}
	}
	return deleted, nil
}

func (m *Manager) deleteIfTeamEmpty(ctx context.Context, courseID, team, leaving string) (int, error) {
	if team == "" {
		return 0, nil
	}
	members, err := m.store.Students.ListByTeam(ctx, courseID, team)
	if err != nil {
		return 0, fmt.Errorf("failed to list team %s: %w", team, err)
	}
	for _, s := range members {
		if s.Email != leaving {
			return 0, nil
		}
	}
	return m.deleteInvolving(ctx, courseID, team)
}

// DeleteForQuestion removes the responses and comments of a question.
func (m *Manager) DeleteForQuestion(ctx context.Context, questionID uuid.UUID) (int, error) {
	if _, err := m.store.Comments.DeleteByQuestion(ctx, questionID); err != nil {
		return 0, fmt.Errorf("failed to delete comments of question %s: %w", questionID, err)
	}
	n, err := m.store.Responses.DeleteByQuestion(ctx, questionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete responses of question %s: %w", questionID, err)
	}
	return n, nil
}

// DeleteForSession removes the questions, responses, comments and
// deadline extensions of a session, leaving the session row itself.
func (m *Manager) DeleteForSession(ctx context.Context, courseID, sessionName string) (int, error) {
	questions, err := m.store.Questions.ListBySession(ctx, courseID, sessionName)
	if err != nil {
		return 0, fmt.Errorf("failed to list questions of %s/%s: %w", courseID, sessionName, err)
	}

	deleted := 0
	for _, q := range questions {
		n, err := m.DeleteForQuestion(ctx, q.ID)
		if err != nil {
			return deleted, err
		}
		deleted += n
		removed, err := m.store.Questions.Delete(ctx, q.ID)
		if err != nil {
			return deleted, fmt.Errorf("failed to delete question %s: %w", q.ID, err)
		}
		if removed {
			deleted++
		}
	}

	n, err := m.store.Extensions.DeleteBySession(ctx, courseID, sessionName)
	if err != nil {
		return deleted, fmt.Errorf("failed to delete extensions of %s/%s: %w", courseID, sessionName, err)
	}
	return deleted + n, nil
}

// DeleteForStudent removes what the student owns in the course: responses
// given or received, comments given, deadline extensions, and the team's
// responses when the student was its last member.
func (m *Manager) DeleteForStudent(ctx context.Context, courseID, email, team string) (int, error) {
	deleted, err := m.deleteParticipant(ctx, courseID, email, false)
	if err != nil {
		return deleted, err
	}
	n, err := m.deleteIfTeamEmpty(ctx, courseID, team, email)
	return deleted + n, err
}

func (m *Manager) DeleteForInstructor(ctx context.Context, courseID, email string) (int, error) {
	return m.deleteParticipant(ctx, courseID, email, true)
}

func (m *Manager) deleteParticipant(ctx context.Context, courseID, email string, isInstructor bool) (int, error) {
	deleted, err := m.deleteInvolving(ctx, courseID, email)
	if err != nil {
		return deleted, err
	}

	n, err := m.store.Comments.DeleteByGiver(ctx, courseID, email)
	if err != nil {
		return deleted, fmt.Errorf("failed to delete comments by %s: %w", email, err)
	}
	deleted += n

	exts, err := m.store.Extensions.ListByUser(ctx, courseID, email, isInstructor)
	if err != nil {
		return deleted, fmt.Errorf("failed to list extensions of %s: %w", email, err)
	}
	for _, e := range exts {
		if _, err := m.store.Extensions.Delete(ctx, e.Key()); err != nil {
			return deleted, fmt.Errorf("failed to delete extension of %s: %w", email, err)
		}
		deleted++
	}
	if err := m.syncer.SyncAll(ctx, exts); err != nil && !errors.Is(err, errdefs.ErrNotFound) {
		return deleted, err
	}
	return deleted, nil
}

// ChangeExtensionOwner moves a user's deadline extensions to a new email.
func (m *Manager) ChangeExtensionOwner(ctx context.Context, courseID, oldEmail, newEmail string, isInstructor bool) (int, error) {
	exts, err := m.store.Extensions.ListByUser(ctx, courseID, oldEmail, isInstructor)
	if err != nil {
		return 0, fmt.Errorf("failed to list extensions of %s: %w", oldEmail, err)
	}
	moved := 0
	for _, e := range exts {
		next := *e
		next.UserEmail = newEmail
		next.EditedAt = m.now()
		if err := m.store.Extensions.Create(ctx, &next); err != nil && !errors.Is(err, errdefs.ErrAlreadyExists) {
			return moved, fmt.Errorf("failed to move extension of %s: %w", oldEmail, err)
		}
		if _, err := m.store.Extensions.Delete(ctx, e.Key()); err != nil {
			return moved, fmt.Errorf("failed to delete extension of %s: %w", oldEmail, err)
		}
		moved++
	}
	if err := m.syncer.SyncAll(ctx, exts); err != nil && !errors.Is(err, errdefs.ErrNotFound) {
		return moved, err
	}
	return moved, nil
}

func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

func (m *Manager) logFailure(ctx context.Context, msg string, err error, fields ...zap.Field) {
	logger.FromContext(ctx, m.logger).Error(msg, append(fields, zap.Error(err))...)
}
