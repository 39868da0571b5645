package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"feedback_service/internal/cascade"
	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
	"feedback_service/internal/lifecycle"
	"feedback_service/internal/recipient"
	"feedback_service/internal/repository"
	"feedback_service/internal/roster"
	"feedback_service/pkg/logger"
)

type SubmitResponseInput struct {
	QuestionID uuid.UUID `json:"question_id" validate:"required"`
	Giver      string    `json:"giver" validate:"notblank"`
	Recipient  string    `json:"recipient" validate:"notblank"`
	Answer     string    `json:"answer"`
}

// UpdateResponseInput edits a response. A new giver or recipient moves
// the response to a new key.
type UpdateResponseInput struct {
	ID        uuid.UUID `json:"id" validate:"required"`
	Giver     *string   `json:"giver" validate:"omitempty,notblank"`
	Recipient *string   `json:"recipient" validate:"omitempty,notblank"`
	Answer    *string   `json:"answer"`
}

type SubmissionStats struct {
	// Expected counts participants with at least one question to answer.
	Expected  int
	Submitted int
	// Pending lists the expected participants that have not attempted.
	Pending []string
}

type ResponseService struct {
	base
	cascade  *cascade.Manager
	provider roster.Provider
	resolver *recipient.Resolver
	attempts *lifecycle.AttemptTracker
}

func NewResponseService(store *repository.Store, manager *cascade.Manager, provider roster.Provider, log *logger.Logger, opts ...Option) *ResponseService {
	return &ResponseService{
		base:     newBase(store, log, opts),
		cascade:  manager,
		provider: provider,
		resolver: recipient.NewResolver(),
		attempts: lifecycle.NewAttemptTracker(store.Questions, store.Responses),
	}
}

// giverOf resolves the participant answering q as giver: a student email,
// a team name for team questions, or an instructor allowed to answer.
func giverOf(q *domain.FeedbackQuestion, session *domain.FeedbackSession, view *roster.View, giver string) (domain.Participant, error) {
	if q.GiverType == domain.ParticipantTeams {
		if members := view.StudentsInTeam(giver); len(members) > 0 {
			return members[0].AsParticipant(), nil
		}
	} else if st, ok := view.Student(giver); ok && q.IsAnswerableByStudent() {
		return st.AsParticipant(), nil
	}
	if i, ok := view.Instructor(giver); ok && q.IsAnswerableByInstructor(giver, session.CreatorEmail) {
		return i.AsParticipant(), nil
	}
	return domain.Participant{}, invalidf("%s may not answer question %s", giver, q.ID)
}

// checkRecipient rejects recipients outside the set the question allows
// the giver. Questions without recipients take domain.GeneralRecipient.
func (s *ResponseService) checkRecipient(q *domain.FeedbackQuestion, giver domain.Participant, view *roster.View, to string) error {
	if q.RecipientType == domain.ParticipantNone {
		if to != domain.GeneralRecipient {
			return invalidf("question %s takes no recipient, got %s", q.ID, to)
		}
		return nil
	}
	set, err := s.resolver.Recipients(q, giver, view)
	if err != nil {
		return err
	}
	if _, ok := set.ByID[to]; !ok {
		return invalidf("%s is not a recipient of question %s for %s", to, q.ID, giver.Email)
	}
	return nil
}

// answering is a giver checked against a question and its recipient.
type answering struct {
	question *domain.FeedbackQuestion
	session  *domain.FeedbackSession
	view     *roster.View
	giver    domain.Participant
}

// eligible checks the giver may answer the question for the recipient.
func (s *ResponseService) eligible(ctx context.Context, questionID uuid.UUID, giver, to string) (*answering, error) {
	q, err := s.store.Questions.Get(ctx, questionID)
	if err != nil {
		return nil, err
	}
	session, err := s.store.Sessions.Get(ctx, q.CourseID, q.SessionName)
	if err != nil {
		return nil, err
	}
	if session.IsInRecycleBin() {
		return nil, fmt.Errorf("session %s is in the recycle bin: %w", session.Key(), errdefs.ErrNotFound)
	}
	view, err := roster.Load(ctx, s.provider, q.CourseID)
	if err != nil {
		return nil, err
	}
	p, err := giverOf(q, session, view, giver)
	if err != nil {
		return nil, err
	}
	if err := s.checkRecipient(q, p, view, to); err != nil {
		return nil, err
	}
	return &answering{question: q, session: session, view: view, giver: p}, nil
}

// Submit stores a new response. The giver must be allowed to answer the
// question for the recipient, and the session must accept submissions
// from the giver, grace period included.
func (s *ResponseService) Submit(ctx context.Context, in SubmitResponseInput) (*domain.FeedbackResponse, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	a, err := s.eligible(ctx, in.QuestionID, in.Giver, in.Recipient)
	if err != nil {
		return nil, err
	}
	q, session, view := a.question, a.session, a.view

	now := s.now()
	viewer := lifecycle.Viewer{Email: a.giver.Email, IsInstructor: a.giver.IsInstructor}
	if !lifecycle.AcceptsSubmission(session, now, viewer) {
		return nil, fmt.Errorf("session %s is not accepting responses from %s: %w", session.Key(), in.Giver, errdefs.ErrInvalidState)
	}

	r := &domain.FeedbackResponse{
		ID:               newID(),
		QuestionID:       q.ID,
		CourseID:         q.CourseID,
		SessionName:      q.SessionName,
		Giver:            in.Giver,
		GiverSection:     view.SectionOf(in.Giver),
		Recipient:        in.Recipient,
		RecipientSection: view.SectionOf(in.Recipient),
		Answer:           in.Answer,
		CreatedAt:        now,
		EditedAt:         now,
	}
	if err := s.store.Responses.CreateIfAbsent(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ResponseService) Get(ctx context.Context, id uuid.UUID) (*domain.FeedbackResponse, error) {
	return s.store.Responses.Get(ctx, id)
}

func (s *ResponseService) ListBySession(ctx context.Context, courseID, sessionName string) ([]*domain.FeedbackResponse, error) {
	return s.store.Responses.ListBySession(ctx, courseID, sessionName)
}

func (s *ResponseService) Update(ctx context.Context, in UpdateResponseInput) (*domain.FeedbackResponse, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	r, err := s.store.Responses.Get(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	newKey := r.Key()
	if in.Giver != nil {
		newKey.Giver = *in.Giver
	}
	if in.Recipient != nil {
		newKey.Recipient = *in.Recipient
	}
	if newKey != r.Key() {
		a, err := s.eligible(ctx, r.QuestionID, newKey.Giver, newKey.Recipient)
		if err != nil {
			return nil, err
		}
		r, err = s.cascade.ChangeResponseKey(ctx, r.Key(), newKey)
		if err != nil {
			return nil, err
		}
		r.GiverSection = a.view.SectionOf(r.Giver)
		r.RecipientSection = a.view.SectionOf(r.Recipient)
	}
	if in.Answer != nil {
		r.Answer = *in.Answer
	}
	r.EditedAt = s.now()
	if err := s.store.Responses.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes the response and its comments. Deleting a missing
// response succeeds with Deleted false.
func (s *ResponseService) Delete(ctx context.Context, id uuid.UUID) (domain.DeleteResult, error) {
	return s.cascade.DeleteResponse(ctx, id)
}

// GiverSetForSession returns, in ascending order, every giver identifier
// with at least one response in the session.
func (s *ResponseService) GiverSetForSession(ctx context.Context, courseID, sessionName string) ([]string, error) {
	responses, err := s.store.Responses.ListBySession(ctx, courseID, sessionName)
	if err != nil {
		return nil, err
	}
	givers := lifecycle.BuildAnswered(responses).Givers()
	out := make([]string, 0, len(givers))
	for g := range givers {
		out = append(out, g)
	}
	sort.Strings(out)
	return out, nil
}

func (s *ResponseService) Stats(ctx context.Context, courseID, sessionName string) (SubmissionStats, error) {
	session, err := s.store.Sessions.Get(ctx, courseID, sessionName)
	if err != nil {
		return SubmissionStats{}, err
	}
	attempts, err := s.attempts.Load(ctx, session)
	if err != nil {
		return SubmissionStats{}, err
	}
	view, err := roster.Load(ctx, s.provider, courseID)
	if err != nil {
		return SubmissionStats{}, err
	}

	var stats SubmissionStats
	for _, p := range view.Participants() {
		if len(lifecycle.AnswerableBy(session, attempts.Questions, p)) == 0 {
			continue
		}
		stats.Expected++
		if attempts.HasAttempted(p) {
			stats.Submitted++
		} else {
			stats.Pending = append(stats.Pending, p.Email)
		}
	}
	return stats, nil
}
