package deadline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
)

func session(end time.Time) *domain.FeedbackSession {
	return &domain.FeedbackSession{
		CourseID:            "c1",
		Name:                "s1",
		EndTime:             end,
		StudentDeadlines:    map[string]time.Time{},
		InstructorDeadlines: map[string]time.Time{},
	}
}

func TestEffectiveEnd(t *testing.T) {
	end := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("NoExtension", func(t *testing.T) {
		s := session(end)
		assert.True(t, EffectiveEnd(s, "a@x.com", false).Equal(end))
		assert.False(t, HasExtension(s, "a@x.com", false))
	})

	t.Run("StudentExtension", func(t *testing.T) {
		s := session(end)
		s.StudentDeadlines["a@x.com"] = end.Add(6 * time.Hour)
		assert.True(t, EffectiveEnd(s, "a@x.com", false).Equal(end.Add(6*time.Hour)))
		assert.True(t, HasExtension(s, "a@x.com", false))
		assert.True(t, EffectiveEnd(s, "a@x.com", true).Equal(end))
	})

	t.Run("InstructorExtension", func(t *testing.T) {
		s := session(end)
		s.InstructorDeadlines["prof@x.com"] = end.Add(time.Hour)
		assert.True(t, EffectiveEnd(s, "prof@x.com", true).Equal(end.Add(time.Hour)))
	})

	t.Run("NeverEarlierThanSessionEnd", func(t *testing.T) {
		s := session(end)
		s.StudentDeadlines["a@x.com"] = end.Add(-time.Hour)
		got := EffectiveEnd(s, "a@x.com", false)
		assert.False(t, got.Before(s.EndTime))
		assert.False(t, HasExtension(s, "a@x.com", false))
	})
}

func TestValidateExtension(t *testing.T) {
	end := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := session(end)

	assert.NoError(t, ValidateExtension(s, end.Add(time.Minute)))
	assert.ErrorIs(t, ValidateExtension(s, end), errdefs.ErrInvalidParameters)
	assert.ErrorIs(t, ValidateExtension(s, end.Add(-time.Minute)), errdefs.ErrInvalidParameters)
	assert.ErrorIs(t, ValidateExtension(s, time.Time{}), errdefs.ErrInvalidParameters)
}

func TestBuildMaps(t *testing.T) {
	end := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	key := domain.SessionKey{CourseID: "c1", Name: "s1"}
	exts := []*domain.DeadlineExtension{
		{CourseID: "c1", SessionName: "s1", UserEmail: "a@x.com", EndTime: end},
		{CourseID: "c1", SessionName: "s1", UserEmail: "prof@x.com", IsInstructor: true, EndTime: end},
		{CourseID: "c1", SessionName: "other", UserEmail: "b@x.com", EndTime: end},
	}

	students, instructors := BuildMaps(key, exts)
	require.Len(t, students, 1)
	require.Len(t, instructors, 1)
	assert.Contains(t, students, "a@x.com")
	assert.Contains(t, instructors, "prof@x.com")
}

func TestIsCacheCurrent(t *testing.T) {
	end := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := session(end)
	ext := &domain.DeadlineExtension{CourseID: "c1", SessionName: "s1", UserEmail: "a@x.com", EndTime: end.Add(time.Hour)}

	assert.False(t, IsCacheCurrent(s, ext))
	s.StudentDeadlines["a@x.com"] = end.Add(2 * time.Hour)
	assert.False(t, IsCacheCurrent(s, ext))
	s.StudentDeadlines["a@x.com"] = end.Add(time.Hour)
	assert.True(t, IsCacheCurrent(s, ext))
}
