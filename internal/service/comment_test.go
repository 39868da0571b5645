package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
	"feedback_service/internal/service"
)

func TestComments(t *testing.T) {
	setupResponse := func(t *testing.T) (*fixture, *domain.FeedbackResponse) {
		f := setup(t)
		f.session(t, "s1", nil)
		f.student(t, "a@x.com", "Alpha", "S1")
		q := f.question(t, "s1", domain.ParticipantStudents, domain.ParticipantSelf)
		return f, f.submit(t, q, "a@x.com", "a@x.com")
	}

	t.Run("CreateAndUpdate", func(t *testing.T) {
		f, r := setupResponse(t)
		c, err := f.comments.Create(f.ctx, service.CreateCommentInput{
			ResponseID:    r.ID,
			GiverEmail:    "prof@x.com",
			Text:          "good work",
			ShowCommentTo: []domain.ParticipantType{domain.ParticipantInstructors},
		})
		require.NoError(t, err)
		assert.Equal(t, r.QuestionID, c.QuestionID)

		updated, err := f.comments.Update(f.ctx, service.UpdateCommentInput{ID: c.ID, Text: "great work"})
		require.NoError(t, err)
		assert.Equal(t, "great work", updated.Text)
		assert.Equal(t, []domain.ParticipantType{domain.ParticipantInstructors}, updated.ShowCommentTo)
	})

	t.Run("EmptyText", func(t *testing.T) {
		f, r := setupResponse(t)
		_, err := f.comments.Create(f.ctx, service.CreateCommentInput{ResponseID: r.ID, GiverEmail: "prof@x.com", Text: " \t"})
		assert.ErrorIs(t, err, errdefs.ErrInvalidParameters)
	})

	t.Run("UnknownVisibility", func(t *testing.T) {
		f, r := setupResponse(t)
		_, err := f.comments.Create(f.ctx, service.CreateCommentInput{
			ResponseID: r.ID, GiverEmail: "prof@x.com", Text: "hi",
			ShowCommentTo: []domain.ParticipantType{"ALIENS"},
		})
		assert.ErrorIs(t, err, errdefs.ErrInvalidParameters)
	})

	t.Run("MissingResponse", func(t *testing.T) {
		f, _ := setupResponse(t)
		_, err := f.comments.Create(f.ctx, service.CreateCommentInput{ResponseID: uuid.New(), GiverEmail: "prof@x.com", Text: "hi"})
		assert.ErrorIs(t, err, errdefs.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		f, r := setupResponse(t)
		c, err := f.comments.Create(f.ctx, service.CreateCommentInput{ResponseID: r.ID, GiverEmail: "prof@x.com", Text: "hi"})
		require.NoError(t, err)

		res, err := f.comments.Delete(f.ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, res.Deleted)

		res, err = f.comments.Delete(f.ctx, c.ID)
		require.NoError(t, err)
		assert.False(t, res.Deleted)
	})
}
