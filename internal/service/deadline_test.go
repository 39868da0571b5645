package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
	"feedback_service/internal/service"
)

func TestDeadlineExtensions(t *testing.T) {
	t.Run("CreateSyncsSessionCache", func(t *testing.T) {
		f := setup(t)
		f.session(t, "s1", nil)
		f.instructor(t, "ta@x.com")

		end := f.now.Add(48 * time.Hour)
		_, err := f.deadlines.Create(f.ctx, service.ExtensionInput{
			CourseID: "c1", SessionName: "s1", UserEmail: "ta@x.com", IsInstructor: true, EndTime: end,
		})
		require.NoError(t, err)

		s, err := f.sessions.Get(f.ctx, "c1", "s1")
		require.NoError(t, err)
		got, ok := s.DeadlineFor("ta@x.com", true)
		require.True(t, ok)
		assert.True(t, got.Equal(end))
	})

	t.Run("NotAfterSessionEnd", func(t *testing.T) {
		f := setup(t)
		s := f.session(t, "s1", nil)
		f.student(t, "a@x.com", "Alpha", "S1")

		_, err := f.deadlines.Create(f.ctx, service.ExtensionInput{
			CourseID: "c1", SessionName: "s1", UserEmail: "a@x.com", EndTime: s.EndTime,
		})
		assert.ErrorIs(t, err, errdefs.ErrInvalidParameters)
	})

	t.Run("NotEnrolled", func(t *testing.T) {
		f := setup(t)
		f.session(t, "s1", nil)

		_, err := f.deadlines.Create(f.ctx, service.ExtensionInput{
			CourseID: "c1", SessionName: "s1", UserEmail: "ghost@x.com", EndTime: f.now.Add(48 * time.Hour),
		})
		assert.ErrorIs(t, err, errdefs.ErrNotFound)
	})

	t.Run("UpdateAndDelete", func(t *testing.T) {
		f := setup(t)
		f.session(t, "s1", nil)
		f.student(t, "a@x.com", "Alpha", "S1")
		in := service.ExtensionInput{
			CourseID: "c1", SessionName: "s1", UserEmail: "a@x.com", EndTime: f.now.Add(30 * time.Hour),
		}
		_, err := f.deadlines.Create(f.ctx, in)
		require.NoError(t, err)

		in.EndTime = f.now.Add(40 * time.Hour)
		_, err = f.deadlines.Update(f.ctx, in)
		require.NoError(t, err)

		s, err := f.sessions.Get(f.ctx, "c1", "s1")
		require.NoError(t, err)
		got, _ := s.DeadlineFor("a@x.com", false)
		assert.True(t, got.Equal(in.EndTime))

		key := domain.DeadlineExtensionKey{CourseID: "c1", SessionName: "s1", UserEmail: "a@x.com"}
		res, err := f.deadlines.Delete(f.ctx, key)
		require.NoError(t, err)
		assert.True(t, res.Deleted)

		s, err = f.sessions.Get(f.ctx, "c1", "s1")
		require.NoError(t, err)
		_, ok := s.DeadlineFor("a@x.com", false)
		assert.False(t, ok)

		res, err = f.deadlines.Delete(f.ctx, key)
		require.NoError(t, err)
		assert.False(t, res.Deleted)
	})
}
