package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
	"feedback_service/internal/repository/memory"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newSession() *domain.FeedbackSession {
	return &domain.FeedbackSession{
		CourseID:               "c1",
		Name:                   "s1",
		CreatorEmail:           "prof@x.com",
		VisibleFromTime:        now.Add(-48 * time.Hour),
		StartTime:              now.Add(-24 * time.Hour),
		EndTime:                now.Add(24 * time.Hour),
		GracePeriod:            15 * time.Minute,
		ResultsVisibleFromTime: domain.ResultsVisibleLater(),
		StudentDeadlines:       map[string]time.Time{},
		InstructorDeadlines:    map[string]time.Time{},
	}
}

func TestStateAt(t *testing.T) {
	t.Run("NotVisible", func(t *testing.T) {
		s := newSession()
		assert.Equal(t, StateNotVisible, StateAt(s, now.Add(-72*time.Hour), Viewer{}))
	})

	t.Run("VisibleNotOpen", func(t *testing.T) {
		s := newSession()
		assert.Equal(t, StateVisibleNotOpen, StateAt(s, now.Add(-36*time.Hour), Viewer{}))
	})

	t.Run("OpenAtBoundaries", func(t *testing.T) {
		s := newSession()
		assert.Equal(t, StateOpen, StateAt(s, s.StartTime, Viewer{}))
		assert.Equal(t, StateOpen, StateAt(s, s.EndTime, Viewer{}))
	})

	t.Run("AwaitingPublishWhenLater", func(t *testing.T) {
		s := newSession()
		assert.Equal(t, StateAwaitingPublish, StateAt(s, s.EndTime.Add(time.Second), Viewer{}))
	})

	t.Run("ClosedWhenNever", func(t *testing.T) {
		s := newSession()
		s.ResultsVisibleFromTime = domain.ResultsVisibleNever()
		assert.Equal(t, StateClosed, StateAt(s, s.EndTime.Add(time.Second), Viewer{}))
	})

	t.Run("PublishedByTime", func(t *testing.T) {
		s := newSession()
		s.ResultsVisibleFromTime = domain.ResultsVisibleAt(s.EndTime.Add(time.Hour))
		assert.Equal(t, StateAwaitingPublish, StateAt(s, s.EndTime.Add(30*time.Minute), Viewer{}))
		assert.Equal(t, StatePublished, StateAt(s, s.EndTime.Add(time.Hour), Viewer{}))
	})

	t.Run("ExtensionKeepsViewerOpen", func(t *testing.T) {
		s := newSession()
		s.StudentDeadlines["a@x.com"] = s.EndTime.Add(2 * time.Hour)
		at := s.EndTime.Add(time.Hour)
		assert.Equal(t, StateOpen, StateAt(s, at, Viewer{Email: "a@x.com"}))
		assert.Equal(t, StateAwaitingPublish, StateAt(s, at, Viewer{Email: "b@x.com"}))
		assert.Equal(t, StateAwaitingPublish, StateAt(s, at, Viewer{}))
	})
}

func TestPredicates(t *testing.T) {
	s := newSession()

	t.Run("GracePeriod", func(t *testing.T) {
		at := s.EndTime.Add(10 * time.Minute)
		assert.False(t, IsOpenFor(s, at, Viewer{}))
		assert.True(t, AcceptsSubmission(s, at, Viewer{}))
		assert.True(t, IsInGracePeriod(s, at, Viewer{}))
		assert.False(t, AcceptsSubmission(s, s.EndTime.Add(16*time.Minute), Viewer{}))
	})

	t.Run("OpeningWithin", func(t *testing.T) {
		future := newSession()
		future.StartTime = now.Add(5 * time.Hour)
		assert.True(t, IsOpeningWithin(future, now, 24*time.Hour))
		assert.False(t, IsOpeningWithin(future, now, 4*time.Hour))
		assert.False(t, IsOpeningWithin(s, now, 24*time.Hour))
	})

	t.Run("ClosingWithin", func(t *testing.T) {
		assert.True(t, IsClosingWithin(s, now, 24*time.Hour))
		assert.False(t, IsClosingWithin(s, now, 23*time.Hour))
	})

	t.Run("ClosedWithin", func(t *testing.T) {
		assert.True(t, IsClosedWithin(s, s.EndTime.Add(30*time.Minute), time.Hour))
		assert.False(t, IsClosedWithin(s, s.EndTime.Add(2*time.Hour), time.Hour))
		assert.False(t, IsClosedWithin(s, now, time.Hour))
	})
}

func TestPublish(t *testing.T) {
	t.Run("ManualWithLater", func(t *testing.T) {
		s := newSession()
		require.NoError(t, Publish(s, now))
		assert.True(t, IsPublished(s, now))
		require.NotNil(t, s.PublishedAt)
	})

	t.Run("AlreadyPublishedFails", func(t *testing.T) {
		s := newSession()
		require.NoError(t, Publish(s, now))
		assert.ErrorIs(t, Publish(s, now), errdefs.ErrInvalidState)
	})

	t.Run("AutoPublishedFails", func(t *testing.T) {
		s := newSession()
		s.ResultsVisibleFromTime = domain.ResultsVisibleAt(now.Add(-time.Minute))
		assert.ErrorIs(t, Publish(s, now), errdefs.ErrInvalidState)
	})

	t.Run("NeverBlocksPublish", func(t *testing.T) {
		s := newSession()
		s.ResultsVisibleFromTime = domain.ResultsVisibleNever()
		assert.ErrorIs(t, Publish(s, now), errdefs.ErrInvalidState)
		assert.False(t, s.PublishedManually)
	})
}

func TestUnpublish(t *testing.T) {
	t.Run("NeverPublishedFails", func(t *testing.T) {
		s := newSession()
		assert.ErrorIs(t, Unpublish(s, now), errdefs.ErrInvalidState)
	})

	t.Run("ClearsManualAndAutoPublish", func(t *testing.T) {
		s := newSession()
		s.ResultsVisibleFromTime = domain.ResultsVisibleAt(now.Add(-time.Hour))
		require.NoError(t, Unpublish(s, now))
		assert.False(t, IsPublished(s, now))
		assert.Equal(t, domain.ResultsLater, s.ResultsVisibleFromTime.Mode)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		s := newSession()
		require.NoError(t, Publish(s, now))
		require.NoError(t, Unpublish(s, now))
		assert.ErrorIs(t, Unpublish(s, now), errdefs.ErrInvalidState)
		assert.NoError(t, Publish(s, now))
	})
}

func TestHasAttempted(t *testing.T) {
	s := newSession()
	studentQ := &domain.FeedbackQuestion{ID: uuid.New(), GiverType: domain.ParticipantStudents}
	teamQ := &domain.FeedbackQuestion{ID: uuid.New(), GiverType: domain.ParticipantTeams}
	instructorQ := &domain.FeedbackQuestion{ID: uuid.New(), GiverType: domain.ParticipantInstructors}
	selfQ := &domain.FeedbackQuestion{ID: uuid.New(), GiverType: domain.ParticipantSelf}

	alice := domain.Participant{Email: "alice@x.com", Team: "Alpha"}
	prof := domain.Participant{Email: "prof@x.com", IsInstructor: true}
	ta := domain.Participant{Email: "ta@x.com", IsInstructor: true}

	t.Run("NoResponses", func(t *testing.T) {
		qs := []*domain.FeedbackQuestion{studentQ, instructorQ}
		assert.False(t, HasAttempted(s, qs, Answered{}, alice))
		assert.False(t, HasAttempted(s, qs, Answered{}, prof))
	})

	t.Run("OneResponseIsEnough", func(t *testing.T) {
		qs := []*domain.FeedbackQuestion{studentQ, teamQ}
		answered := BuildAnswered([]*domain.FeedbackResponse{{QuestionID: studentQ.ID, Giver: "alice@x.com"}})
		assert.True(t, HasAttempted(s, qs, answered, alice))
	})

	t.Run("TeamResponseCountsForMember", func(t *testing.T) {
		qs := []*domain.FeedbackQuestion{teamQ}
		answered := BuildAnswered([]*domain.FeedbackResponse{{QuestionID: teamQ.ID, Giver: "Alpha"}})
		assert.True(t, HasAttempted(s, qs, answered, alice))
	})

	t.Run("VacuouslyAttempted", func(t *testing.T) {
		qs := []*domain.FeedbackQuestion{instructorQ}
		assert.True(t, HasAttempted(s, qs, Answered{}, alice))
	})

	t.Run("SelfQuestionOnlyForCreator", func(t *testing.T) {
		qs := []*domain.FeedbackQuestion{selfQ}
		assert.False(t, HasAttempted(s, qs, Answered{}, prof))
		assert.True(t, HasAttempted(s, qs, Answered{}, ta))
	})

	t.Run("ResponseToOtherRoleQuestionIgnored", func(t *testing.T) {
		qs := []*domain.FeedbackQuestion{studentQ, instructorQ}
		answered := BuildAnswered([]*domain.FeedbackResponse{{QuestionID: instructorQ.ID, Giver: "alice@x.com"}})
		assert.False(t, HasAttempted(s, qs, answered, alice))
	})
}

func TestAttemptTracker(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	s := newSession()
	q := &domain.FeedbackQuestion{ID: uuid.New(), CourseID: "c1", SessionName: "s1", Number: 1, GiverType: domain.ParticipantStudents}
	require.NoError(t, store.Questions.Create(ctx, q))
	require.NoError(t, store.Responses.CreateIfAbsent(ctx, &domain.FeedbackResponse{
		ID: uuid.New(), QuestionID: q.ID, CourseID: "c1", SessionName: "s1", Giver: "alice@x.com", Recipient: "bob@x.com",
	}))

	attempts, err := NewAttemptTracker(store.Questions, store.Responses).Load(ctx, s)
	require.NoError(t, err)
	assert.True(t, attempts.HasAttempted(domain.Participant{Email: "alice@x.com"}))
	assert.False(t, attempts.HasAttempted(domain.Participant{Email: "bob@x.com"}))
	assert.Contains(t, attempts.Answered.Givers(), "alice@x.com")
}
