package service

import (
	"context"

	"github.com/google/uuid"

	"feedback_service/internal/domain"
	"feedback_service/internal/repository"
	"feedback_service/pkg/logger"
)

type CreateCommentInput struct {
	ResponseID      uuid.UUID                `json:"response_id" validate:"required"`
	GiverEmail      string                   `json:"giver_email" validate:"required,email"`
	Text            string                   `json:"text" validate:"notblank"`
	FromParticipant bool                     `json:"from_participant"`
	ShowCommentTo   []domain.ParticipantType `json:"show_comment_to" validate:"dive,participant_type"`
	ShowGiverNameTo []domain.ParticipantType `json:"show_giver_name_to" validate:"dive,participant_type"`
}

type UpdateCommentInput struct {
	ID              uuid.UUID                `json:"id" validate:"required"`
	Text            string                   `json:"text" validate:"notblank"`
	ShowCommentTo   []domain.ParticipantType `json:"show_comment_to" validate:"omitempty,dive,participant_type"`
	ShowGiverNameTo []domain.ParticipantType `json:"show_giver_name_to" validate:"omitempty,dive,participant_type"`
}

type CommentService struct {
	base
}

func NewCommentService(store *repository.Store, log *logger.Logger, opts ...Option) *CommentService {
	return &CommentService{base: newBase(store, log, opts)}
}

func (s *CommentService) Create(ctx context.Context, in CreateCommentInput) (*domain.FeedbackResponseComment, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	r, err := s.store.Responses.Get(ctx, in.ResponseID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := &domain.FeedbackResponseComment{
		ID:              newID(),
		ResponseID:      r.ID,
		QuestionID:      r.QuestionID,
		CourseID:        r.CourseID,
		SessionName:     r.SessionName,
		GiverEmail:      in.GiverEmail,
		Text:            in.Text,
		FromParticipant: in.FromParticipant,
		ShowCommentTo:   in.ShowCommentTo,
		ShowGiverNameTo: in.ShowGiverNameTo,
		CreatedAt:       now,
		EditedAt:        now,
	}
	if err := s.store.Comments.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CommentService) Update(ctx context.Context, in UpdateCommentInput) (*domain.FeedbackResponseComment, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	c, err := s.store.Comments.Get(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	c.Text = in.Text
	if in.ShowCommentTo != nil {
		c.ShowCommentTo = in.ShowCommentTo
	}
	if in.ShowGiverNameTo != nil {
		c.ShowGiverNameTo = in.ShowGiverNameTo
	}
	c.EditedAt = s.now()
	if err := s.store.Comments.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CommentService) ListByResponse(ctx context.Context, responseID uuid.UUID) ([]*domain.FeedbackResponseComment, error) {
	return s.store.Comments.ListByResponse(ctx, responseID)
}

func (s *CommentService) Delete(ctx context.Context, id uuid.UUID) (domain.DeleteResult, error) {
	removed, err := s.store.Comments.Delete(ctx, id)
	return domain.DeleteResult{Deleted: removed}, err
}
