package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback_service/internal/app"
	"feedback_service/internal/domain"
	"feedback_service/internal/reminder"
	"feedback_service/internal/repository/memory"
	"feedback_service/internal/roster"
	"feedback_service/internal/service"
	"feedback_service/internal/testutils"
	"feedback_service/pkg/logger"
)

type mapCache struct {
	data map[string][]byte
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool) {
	b, ok := c.data[key]
	return b, ok
}

func (c *mapCache) Set(_ context.Context, key string, data []byte, _ time.Duration) {
	c.data[key] = data
}

func (c *mapCache) Delete(_ context.Context, key string) {
	delete(c.data, key)
}

func TestApp(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	log := logger.NewNop()
	mailer := &testutils.RecordingMailer{}
	cached := roster.NewCachedProvider(
		roster.NewRepositoryProvider(store.Students, store.Instructors),
		&mapCache{data: map[string][]byte{}},
		time.Minute,
		log,
	)

	a := app.New(app.Deps{
		Store:       store,
		Mailer:      mailer,
		Logger:      log,
		Roster:      cached,
		Invalidator: cached,
		Clock:       func() time.Time { return now },
	})

	_, err := a.Courses.Create(ctx, service.CreateCourseInput{ID: "c1", Name: "CS101"})
	require.NoError(t, err)
	_, err = a.Roster.AddInstructor(ctx, service.AddInstructorInput{CourseID: "c1", Email: "prof@x.com"})
	require.NoError(t, err)
	_, err = a.Roster.EnrollStudent(ctx, service.EnrollStudentInput{CourseID: "c1", Email: "a@x.com", Team: "T1"})
	require.NoError(t, err)

	students, err := cached.StudentsForCourse(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, students, 1)

	t.Run("EnrollInvalidatesCache", func(t *testing.T) {
		_, err := a.Roster.EnrollStudent(ctx, service.EnrollStudentInput{CourseID: "c1", Email: "b@x.com", Team: "T1"})
		require.NoError(t, err)

		students, err := cached.StudentsForCourse(ctx, "c1")
		require.NoError(t, err)
		assert.Len(t, students, 2)
	})

	_, err = a.Sessions.Create(ctx, service.CreateSessionInput{
		CourseID:            "c1",
		Name:                "s1",
		CreatorEmail:        "prof@x.com",
		VisibleFromTime:     now.Add(-48 * time.Hour),
		StartTime:           now.Add(-time.Hour),
		EndTime:             now.Add(72 * time.Hour),
		OpeningEmailEnabled: true,
	})
	require.NoError(t, err)

	t.Run("OpenEmailsSentOnce", func(t *testing.T) {
		report, err := a.Scheduler.SendAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Dispatched)
		for _, e := range mailer.Sent() {
			assert.Equal(t, reminder.KindOpen, e.Kind)
		}

		report, err = a.Scheduler.SendAll(ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Dispatched)

		s, err := a.Sessions.Get(ctx, "c1", "s1")
		require.NoError(t, err)
		assert.True(t, s.IsSent(domain.EmailFlagOpen))
	})

	t.Run("UnpublishEmailsParticipants", func(t *testing.T) {
		_, err := a.Sessions.Publish(ctx, "c1", "s1")
		require.NoError(t, err)
		_, err = a.Sessions.Unpublish(ctx, "c1", "s1")
		require.NoError(t, err)

		var to []string
		for _, e := range mailer.Sent() {
			if e.Kind == reminder.KindUnpublished {
				to = append(to, e.To)
			}
		}
		assert.ElementsMatch(t, []string{"a@x.com", "b@x.com", "prof@x.com"}, to)
	})
}
