package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"feedback_service/internal/cascade"
	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
	"feedback_service/internal/recipient"
	"feedback_service/internal/repository"
	"feedback_service/internal/roster"
	"feedback_service/pkg/logger"
)

type CreateQuestionInput struct {
	CourseID    string `json:"course_id" validate:"notblank"`
	SessionName string `json:"session_name" validate:"notblank"`
	// Number inserts the question at that position; zero appends it.
	Number      int                 `json:"number" validate:"min=0"`
	Text        string              `json:"text" validate:"notblank"`
	Description string              `json:"description"`
	Type        domain.QuestionType `json:"type" validate:"question_type"`

	GiverType     domain.ParticipantType `json:"giver_type" validate:"giver_type"`
	RecipientType domain.ParticipantType `json:"recipient_type" validate:"participant_type"`
	MaxRecipients int                    `json:"max_recipients" validate:"eq=-1|gt=0"`

	ShowResponsesTo []domain.ParticipantType `json:"show_responses_to" validate:"dive,participant_type"`
	ShowGiverNameTo []domain.ParticipantType `json:"show_giver_name_to" validate:"dive,participant_type"`
	Options         []string                 `json:"options" validate:"dive,notblank"`
	GenerateOptions domain.ParticipantType   `json:"generate_options" validate:"omitempty,participant_type"`
}

type UpdateQuestionInput struct {
	ID          uuid.UUID `json:"id" validate:"required"`
	Number      *int      `json:"number" validate:"omitempty,min=1"`
	Text        *string   `json:"text" validate:"omitempty,notblank"`
	Description *string   `json:"description"`

	GiverType     *domain.ParticipantType `json:"giver_type" validate:"omitempty,giver_type"`
	RecipientType *domain.ParticipantType `json:"recipient_type" validate:"omitempty,participant_type"`
	MaxRecipients *int                    `json:"max_recipients" validate:"omitempty,eq=-1|gt=0"`

	ShowResponsesTo []domain.ParticipantType `json:"show_responses_to" validate:"omitempty,dive,participant_type"`
	ShowGiverNameTo []domain.ParticipantType `json:"show_giver_name_to" validate:"omitempty,dive,participant_type"`
	Options         []string                 `json:"options" validate:"omitempty,dive,notblank"`
}

type QuestionService struct {
	base
	cascade  *cascade.Manager
	provider roster.Provider
	resolver *recipient.Resolver
}

func NewQuestionService(store *repository.Store, manager *cascade.Manager, provider roster.Provider, log *logger.Logger, opts ...Option) *QuestionService {
	return &QuestionService{
		base:     newBase(store, log, opts),
		cascade:  manager,
		provider: provider,
		resolver: recipient.NewResolver(),
	}
}

func (s *QuestionService) activeSession(ctx context.Context, courseID, name string) (*domain.FeedbackSession, error) {
	session, err := s.store.Sessions.Get(ctx, courseID, name)
	if err != nil {
		return nil, err
	}
	if session.IsInRecycleBin() {
		return nil, fmt.Errorf("session %s is in the recycle bin: %w", session.Key(), errdefs.ErrNotFound)
	}
	return session, nil
}

// Create adds the question at in.Number, shifting later questions down,
// or appends it when the number is zero or past the end.
func (s *QuestionService) Create(ctx context.Context, in CreateQuestionInput) (*domain.FeedbackQuestion, error) {
	if in.MaxRecipients == 0 {
		in.MaxRecipients = domain.UnlimitedRecipients
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.activeSession(ctx, in.CourseID, in.SessionName); err != nil {
		return nil, err
	}

	existing, err := s.store.Questions.ListBySession(ctx, in.CourseID, in.SessionName)
	if err != nil {
		return nil, err
	}
	number := in.Number
	if number == 0 || number > len(existing)+1 {
		number = len(existing) + 1
	}

	generate := in.GenerateOptions
	if generate == "" {
		generate = domain.ParticipantNone
	}
	now := s.now()
	q := &domain.FeedbackQuestion{
		ID:              newID(),
		CourseID:        in.CourseID,
		SessionName:     in.SessionName,
		Number:          number,
		Text:            in.Text,
		Description:     in.Description,
		Type:            in.Type,
		GiverType:       in.GiverType,
		RecipientType:   in.RecipientType,
		MaxRecipients:   in.MaxRecipients,
		ShowResponsesTo: in.ShowResponsesTo,
		ShowGiverNameTo: in.ShowGiverNameTo,
		Options:         in.Options,
		GenerateOptions: generate,
		CreatedAt:       now,
		EditedAt:        now,
	}

	order := make([]*domain.FeedbackQuestion, 0, len(existing)+1)
	order = append(order, existing[:number-1]...)
	order = append(order, q)
	order = append(order, existing[number-1:]...)

	if err := s.store.Questions.Create(ctx, q); err != nil {
		return nil, err
	}
	if err := s.renumber(ctx, order); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) Get(ctx context.Context, id uuid.UUID) (*domain.FeedbackQuestion, error) {
	return s.store.Questions.Get(ctx, id)
}

func (s *QuestionService) List(ctx context.Context, courseID, sessionName string) ([]*domain.FeedbackQuestion, error) {
	return s.store.Questions.ListBySession(ctx, courseID, sessionName)
}

// Update changes the question. Changing who gives or receives feedback
// invalidates every existing response, so those are deleted.
func (s *QuestionService) Update(ctx context.Context, in UpdateQuestionInput) (*domain.FeedbackQuestion, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	q, err := s.store.Questions.Get(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	pathChanged := false
	if in.GiverType != nil && *in.GiverType != q.GiverType {
		q.GiverType = *in.GiverType
		pathChanged = true
	}
	if in.RecipientType != nil && *in.RecipientType != q.RecipientType {
		q.RecipientType = *in.RecipientType
		pathChanged = true
	}
	if in.Text != nil {
		q.Text = *in.Text
	}
	if in.Description != nil {
		q.Description = *in.Description
	}
	if in.MaxRecipients != nil {
		q.MaxRecipients = *in.MaxRecipients
	}
	if in.ShowResponsesTo != nil {
		q.ShowResponsesTo = in.ShowResponsesTo
	}
	if in.ShowGiverNameTo != nil {
		q.ShowGiverNameTo = in.ShowGiverNameTo
	}
	if in.Options != nil {
		q.Options = in.Options
	}
	q.EditedAt = s.now()

	if pathChanged {
		n, err := s.cascade.DeleteForQuestion(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		s.log(ctx).Info("question path changed, responses deleted",
			zap.Stringer("question_id", q.ID), zap.Int("count", n))
	}
	if err := s.store.Questions.Update(ctx, q); err != nil {
		return nil, err
	}

	if in.Number != nil && *in.Number != q.Number {
		if err := s.move(ctx, q, *in.Number); err != nil {
			return nil, err
		}
	}
	return s.store.Questions.Get(ctx, q.ID)
}

func (s *QuestionService) move(ctx context.Context, q *domain.FeedbackQuestion, number int) error {
	questions, err := s.store.Questions.ListBySession(ctx, q.CourseID, q.SessionName)
	if err != nil {
		return err
	}
	order := make([]*domain.FeedbackQuestion, 0, len(questions))
	for _, other := range questions {
		if other.ID != q.ID {
			order = append(order, other)
		}
	}
	if number > len(order)+1 {
		number = len(order) + 1
	}
	order = append(order[:number-1], append([]*domain.FeedbackQuestion{q}, order[number-1:]...)...)
	return s.renumber(ctx, order)
}

// Delete removes the question with its responses and comments and closes
// the gap in the numbering. A missing question is not an error.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) (domain.DeleteResult, error) {
	q, err := s.store.Questions.Get(ctx, id)
	if isNotFound(err) {
		return domain.DeleteResult{}, nil
	}
	if err != nil {
		return domain.DeleteResult{}, err
	}

	if _, err := s.cascade.DeleteForQuestion(ctx, id); err != nil {
		return domain.DeleteResult{}, err
	}
	removed, err := s.store.Questions.Delete(ctx, id)
	if err != nil {
		return domain.DeleteResult{}, err
	}

	remaining, err := s.store.Questions.ListBySession(ctx, q.CourseID, q.SessionName)
	if err != nil {
		return domain.DeleteResult{Deleted: removed}, err
	}
	return domain.DeleteResult{Deleted: removed}, s.renumber(ctx, remaining)
}

// renumber writes 1..N onto the questions in the given order, touching
// only the ones whose number changes.
func (s *QuestionService) renumber(ctx context.Context, order []*domain.FeedbackQuestion) error {
	for i, q := range order {
		if q.Number == i+1 {
			continue
		}
		q.Number = i + 1
		if err := s.store.Questions.Update(ctx, q); err != nil {
			return fmt.Errorf("failed to renumber question %s: %w", q.ID, err)
		}
	}
	return nil
}

func (s *QuestionService) participant(view *roster.View, email string, asInstructor bool) (domain.Participant, error) {
	if asInstructor {
		if i, ok := view.Instructor(email); ok {
			return i.AsParticipant(), nil
		}
	} else if st, ok := view.Student(email); ok {
		return st.AsParticipant(), nil
	}
	return domain.Participant{}, fmt.Errorf("%s is not enrolled in %s: %w", email, view.CourseID(), errdefs.ErrNotFound)
}

// Recipients resolves who the giver may give feedback to on the question.
func (s *QuestionService) Recipients(ctx context.Context, questionID uuid.UUID, giverEmail string, asInstructor bool) (recipient.Recipients, error) {
	q, err := s.store.Questions.Get(ctx, questionID)
	if err != nil {
		return recipient.Recipients{}, err
	}
	view, err := roster.Load(ctx, s.provider, q.CourseID)
	if err != nil {
		return recipient.Recipients{}, err
	}
	giver, err := s.participant(view, giverEmail, asInstructor)
	if err != nil {
		return recipient.Recipients{}, err
	}
	return s.resolver.Recipients(q, giver, view)
}

// ForGiver returns the session's questions answerable by the giver, with
// roster-generated options filled in.
func (s *QuestionService) ForGiver(ctx context.Context, courseID, sessionName, giverEmail string, asInstructor bool) ([]*domain.FeedbackQuestion, error) {
	session, err := s.activeSession(ctx, courseID, sessionName)
	if err != nil {
		return nil, err
	}
	questions, err := s.store.Questions.ListBySession(ctx, courseID, sessionName)
	if err != nil {
		return nil, err
	}
	view, err := roster.Load(ctx, s.provider, courseID)
	if err != nil {
		return nil, err
	}
	giver, err := s.participant(view, giverEmail, asInstructor)
	if err != nil {
		return nil, err
	}

	var out []*domain.FeedbackQuestion
	for _, q := range questions {
		answerable := q.IsAnswerableByStudent()
		if giver.IsInstructor {
			answerable = q.IsAnswerableByInstructor(giver.Email, session.CreatorEmail)
		}
		if !answerable {
			continue
		}
		if err := s.resolver.PopulateGeneratedOptions(q, giver, view); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}
