package reminder_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
	"feedback_service/internal/reminder"
	"feedback_service/internal/reminder/mocks"
	"feedback_service/internal/repository"
	"feedback_service/internal/repository/memory"
	"feedback_service/internal/roster"
	"feedback_service/pkg/logger"
)

type fixture struct {
	ctx       context.Context
	now       time.Time
	store     *repository.Store
	mailer    *mocks.MockMailer
	scheduler *reminder.Scheduler
	sent      []reminder.Email
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := memory.NewStore()
	f := &fixture{
		ctx:    context.Background(),
		now:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		store:  store,
		mailer: mocks.NewMockMailer(ctrl),
	}
	f.scheduler = reminder.NewScheduler(
		store,
		roster.NewRepositoryProvider(store.Students, store.Instructors),
		f.mailer,
		logger.NewNop(),
		reminder.WithClock(func() time.Time { return f.now }),
	)
	require.NoError(t, store.Courses.Create(f.ctx, &domain.Course{ID: "c1", Name: "CS101", TimeZone: "UTC"}))
	return f
}

// expectSend records every enqueued email.
func (f *fixture) expectSend(times int) {
	f.mailer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e reminder.Email) error {
			f.sent = append(f.sent, e)
			return nil
		}).Times(times)
}

func (f *fixture) recipients() []string {
	out := make([]string, 0, len(f.sent))
	for _, e := range f.sent {
		out = append(out, e.To)
	}
	return out
}

func (f *fixture) roster(t *testing.T, courseID string, students, instructors int) {
	t.Helper()
	for i := 0; i < students; i++ {
		require.NoError(t, f.store.Students.Create(f.ctx, &domain.Student{
			CourseID: courseID, Email: fmt.Sprintf("s%d@x.com", i), Team: "T1", Section: "S1",
		}))
	}
	for i := 0; i < instructors; i++ {
		require.NoError(t, f.store.Instructors.Create(f.ctx, &domain.Instructor{
			CourseID: courseID, Email: fmt.Sprintf("i%d@x.com", i),
		}))
	}
}

func (f *fixture) session(t *testing.T, name string, mutate func(*domain.FeedbackSession)) *domain.FeedbackSession {
	t.Helper()
	s := &domain.FeedbackSession{
		CourseID:               "c1",
		Name:                   name,
		VisibleFromTime:        f.now.Add(-48 * time.Hour),
		StartTime:              f.now.Add(-23 * time.Hour),
		EndTime:                f.now.Add(24 * time.Hour),
		ResultsVisibleFromTime: domain.ResultsVisibleLater(),
		OpeningEmailEnabled:    true,
		ClosingEmailEnabled:    true,
		PublishedEmailEnabled:  true,
	}
	if mutate != nil {
		mutate(s)
	}
	require.NoError(t, f.store.Sessions.Create(f.ctx, s))
	return s
}

func (f *fixture) studentQuestion(t *testing.T, session string) *domain.FeedbackQuestion {
	t.Helper()
	q := &domain.FeedbackQuestion{
		ID: uuid.New(), CourseID: "c1", SessionName: session, Number: 1,
		Type: domain.QuestionTypeText, GiverType: domain.ParticipantStudents, RecipientType: domain.ParticipantSelf,
	}
	require.NoError(t, f.store.Questions.Create(f.ctx, q))
	return q
}

func (f *fixture) answer(t *testing.T, q *domain.FeedbackQuestion, giver string) {
	t.Helper()
	require.NoError(t, f.store.Responses.CreateIfAbsent(f.ctx, &domain.FeedbackResponse{
		ID: uuid.New(), QuestionID: q.ID, CourseID: q.CourseID, SessionName: q.SessionName,
		Giver: giver, Recipient: giver, Answer: "done",
	}))
}

func (f *fixture) sessionFlag(t *testing.T, name string, flag domain.EmailFlag) bool {
	t.Helper()
	s, err := f.store.Sessions.Get(f.ctx, "c1", name)
	require.NoError(t, err)
	return s.IsSent(flag)
}

// ── Open ────────────────────────────────────────────────────────────

func TestSendOpenReminders(t *testing.T) {
	t.Run("EveryParticipantOnce", func(t *testing.T) {
		f := setup(t)
		f.roster(t, "c1", 5, 5)
		f.session(t, "s1", nil)
		f.expectSend(10)

		report, err := f.scheduler.SendOpenReminders(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, reminder.Report{Sessions: 1, Dispatched: 10}, report)
		assert.True(t, f.sessionFlag(t, "s1", domain.EmailFlagOpen))

		report, err = f.scheduler.SendOpenReminders(f.ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Dispatched)
	})

	t.Run("DisabledOrNotStarted", func(t *testing.T) {
		f := setup(t)
		f.roster(t, "c1", 2, 1)
		f.session(t, "disabled", func(s *domain.FeedbackSession) { s.OpeningEmailEnabled = false })
		f.session(t, "future", func(s *domain.FeedbackSession) { s.StartTime = f.now.Add(time.Hour) })

		report, err := f.scheduler.SendOpenReminders(f.ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Sessions)
		assert.False(t, f.sessionFlag(t, "disabled", domain.EmailFlagOpen))
	})

	t.Run("BinnedCourseSkipped", func(t *testing.T) {
		f := setup(t)
		deleted := f.now
		require.NoError(t, f.store.Courses.Create(f.ctx, &domain.Course{ID: "c2", Name: "Old", DeletedAt: &deleted}))
		f.roster(t, "c2", 2, 0)
		f.session(t, "s1", func(s *domain.FeedbackSession) { s.CourseID = "c2" })

		report, err := f.scheduler.SendOpenReminders(f.ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Sessions)
	})

	t.Run("FailureIsolatedPerSession", func(t *testing.T) {
		f := setup(t)
		f.roster(t, "c1", 1, 0)
		f.session(t, "a", nil)
		f.session(t, "b", nil)

		f.mailer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, e reminder.Email) error {
				if e.SessionName == "a" {
					return errors.New("queue down")
				}
				return nil
			}).Times(2)

		report, err := f.scheduler.SendOpenReminders(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Failed)
		assert.Equal(t, 1, report.Dispatched)
		assert.False(t, f.sessionFlag(t, "a", domain.EmailFlagOpen))
		assert.True(t, f.sessionFlag(t, "b", domain.EmailFlagOpen))
	})
}

// ── Opening soon ────────────────────────────────────────────────────

func TestSendOpeningSoonReminders(t *testing.T) {
	f := setup(t)
	f.roster(t, "c1", 3, 2)
	f.session(t, "soon", func(s *domain.FeedbackSession) { s.StartTime = f.now.Add(20 * time.Hour) })
	f.session(t, "later", func(s *domain.FeedbackSession) { s.StartTime = f.now.Add(30 * time.Hour) })
	f.expectSend(2)

	report, err := f.scheduler.SendOpeningSoonReminders(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sessions)
	assert.ElementsMatch(t, []string{"i0@x.com", "i1@x.com"}, f.recipients())
	assert.True(t, f.sessionFlag(t, "soon", domain.EmailFlagOpeningSoon))
	assert.False(t, f.sessionFlag(t, "later", domain.EmailFlagOpeningSoon))
}

// ── Closing ─────────────────────────────────────────────────────────

func TestSendClosingReminders(t *testing.T) {
	t.Run("OnlyNonAttemptedWithoutExtension", func(t *testing.T) {
		f := setup(t)
		f.roster(t, "c1", 3, 2)
		f.session(t, "s1", func(s *domain.FeedbackSession) {
			s.EndTime = f.now.Add(2 * time.Hour)
			s.StudentDeadlines = map[string]time.Time{"s2@x.com": f.now.Add(30 * time.Hour)}
		})
		q := f.studentQuestion(t, "s1")
		f.answer(t, q, "s0@x.com")
		f.expectSend(1)

		report, err := f.scheduler.SendClosingReminders(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Dispatched)
		assert.Equal(t, []string{"s1@x.com"}, f.recipients())
		assert.Equal(t, reminder.KindClosing, f.sent[0].Kind)
		assert.True(t, f.sessionFlag(t, "s1", domain.EmailFlagClosing))
	})

	t.Run("ExtensionNotifiedDespiteSessionFlag", func(t *testing.T) {
		f := setup(t)
		f.roster(t, "c1", 3, 1)
		extEnd := f.now.Add(16 * time.Hour)
		f.session(t, "s1", func(s *domain.FeedbackSession) {
			s.EndTime = f.now.Add(2 * time.Hour)
			s.SentClosingEmail = true
			s.StudentDeadlines = map[string]time.Time{"s1@x.com": extEnd}
		})
		f.studentQuestion(t, "s1")
		require.NoError(t, f.store.Extensions.Create(f.ctx, &domain.DeadlineExtension{
			CourseID: "c1", SessionName: "s1", UserEmail: "s1@x.com", EndTime: extEnd,
		}))
		f.expectSend(1)

		report, err := f.scheduler.SendClosingReminders(f.ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Dispatched)

		report, err = f.scheduler.SendExtensionClosingReminders(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Dispatched)
		require.Len(t, f.sent, 1)
		assert.Equal(t, "s1@x.com", f.sent[0].To)
		assert.Equal(t, reminder.KindClosingExtension, f.sent[0].Kind)
		assert.True(t, f.sent[0].Deadline.Equal(extEnd))
	})

	t.Run("StaleExtensionCacheSkipped", func(t *testing.T) {
		f := setup(t)
		f.roster(t, "c1", 1, 0)
		f.session(t, "s1", func(s *domain.FeedbackSession) { s.EndTime = f.now.Add(2 * time.Hour) })
		f.studentQuestion(t, "s1")
		require.NoError(t, f.store.Extensions.Create(f.ctx, &domain.DeadlineExtension{
			CourseID: "c1", SessionName: "s1", UserEmail: "s0@x.com", EndTime: f.now.Add(5 * time.Hour),
		}))

		report, err := f.scheduler.SendExtensionClosingReminders(f.ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Dispatched)
	})
}

// ── Closed ──────────────────────────────────────────────────────────

func TestSendClosedReminders(t *testing.T) {
	f := setup(t)
	f.roster(t, "c1", 2, 0)
	f.session(t, "s1", func(s *domain.FeedbackSession) {
		s.EndTime = f.now.Add(-30 * time.Minute)
		s.StudentDeadlines = map[string]time.Time{"s1@x.com": f.now.Add(time.Hour)}
	})
	f.session(t, "old", func(s *domain.FeedbackSession) { s.EndTime = f.now.Add(-3 * time.Hour) })
	f.expectSend(1)

	report, err := f.scheduler.SendClosedReminders(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sessions)
	assert.Equal(t, []string{"s0@x.com"}, f.recipients())
}

// ── Published ───────────────────────────────────────────────────────

func TestSendPublishedReminders(t *testing.T) {
	f := setup(t)
	f.roster(t, "c1", 2, 1)
	f.session(t, "auto", func(s *domain.FeedbackSession) {
		s.EndTime = f.now.Add(-time.Hour)
		s.ResultsVisibleFromTime = domain.ResultsVisibleAt(f.now.Add(-time.Minute))
	})
	f.session(t, "manual", func(s *domain.FeedbackSession) {
		s.EndTime = f.now.Add(-time.Hour)
		s.PublishedManually = true
	})
	f.session(t, "hidden", func(s *domain.FeedbackSession) { s.EndTime = f.now.Add(-time.Hour) })
	f.expectSend(6)

	report, err := f.scheduler.SendPublishedReminders(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sessions)
	assert.True(t, f.sessionFlag(t, "auto", domain.EmailFlagPublished))
	assert.True(t, f.sessionFlag(t, "manual", domain.EmailFlagPublished))
	assert.False(t, f.sessionFlag(t, "hidden", domain.EmailFlagPublished))
}

func TestSendAll(t *testing.T) {
	f := setup(t)
	f.roster(t, "c1", 1, 1)
	f.session(t, "s1", nil)
	f.expectSend(2)

	report, err := f.scheduler.SendAll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Dispatched)
}

// ── Workers ─────────────────────────────────────────────────────────

func TestRemindParticipants(t *testing.T) {
	t.Run("NonAttemptedWithCopy", func(t *testing.T) {
		f := setup(t)
		f.roster(t, "c1", 3, 1)
		f.session(t, "s1", nil)
		f.answer(t, f.studentQuestion(t, "s1"), "s0@x.com")
		f.expectSend(3)

		report, err := f.scheduler.RemindParticipants(f.ctx, reminder.RemindRequest{
			CourseID: "c1", SessionName: "s1", InstructorID: "i0@x.com",
		})
		require.NoError(t, err)
		assert.Equal(t, 3, report.Dispatched)
		assert.Equal(t, []string{"s1@x.com", "s2@x.com", "i0@x.com"}, f.recipients())
		assert.True(t, f.sent[2].IsCopy)
	})

	t.Run("ParticularUsers", func(t *testing.T) {
		f := setup(t)
		f.roster(t, "c1", 3, 0)
		f.session(t, "s1", nil)
		f.expectSend(1)

		report, err := f.scheduler.RemindParticipants(f.ctx, reminder.RemindRequest{
			CourseID: "c1", SessionName: "s1", UsersToRemind: []string{"s2@x.com", "ghost@x.com"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Dispatched)
		assert.Equal(t, []string{"s2@x.com"}, f.recipients())
	})

	t.Run("InvalidRequest", func(t *testing.T) {
		f := setup(t)
		_, err := f.scheduler.RemindParticipants(f.ctx, reminder.RemindRequest{CourseID: "c1"})
		assert.ErrorIs(t, err, errdefs.ErrInvalidParameters)
	})

	t.Run("MissingSession", func(t *testing.T) {
		f := setup(t)
		_, err := f.scheduler.RemindParticipants(f.ctx, reminder.RemindRequest{CourseID: "c1", SessionName: "nope"})
		assert.ErrorIs(t, err, errdefs.ErrNotFound)
	})
}

func TestResendPublished(t *testing.T) {
	t.Run("RequiresInstructor", func(t *testing.T) {
		f := setup(t)
		_, err := f.scheduler.ResendPublished(f.ctx, reminder.RemindRequest{CourseID: "c1", SessionName: "s1"})
		assert.ErrorIs(t, err, errdefs.ErrInvalidParameters)
	})

	t.Run("RequiresPublished", func(t *testing.T) {
		f := setup(t)
		f.roster(t, "c1", 1, 1)
		f.session(t, "s1", nil)
		_, err := f.scheduler.ResendPublished(f.ctx, reminder.RemindRequest{
			CourseID: "c1", SessionName: "s1", InstructorID: "i0@x.com", UsersToRemind: []string{"s0@x.com"},
		})
		assert.ErrorIs(t, err, errdefs.ErrInvalidState)
	})

	t.Run("SendsToListedUsers", func(t *testing.T) {
		f := setup(t)
		f.roster(t, "c1", 2, 1)
		f.session(t, "s1", func(s *domain.FeedbackSession) { s.PublishedManually = true })
		f.expectSend(2)

		report, err := f.scheduler.ResendPublished(f.ctx, reminder.RemindRequest{
			CourseID: "c1", SessionName: "s1", InstructorID: "i0@x.com", UsersToRemind: []string{"s1@x.com"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Dispatched)
		assert.Equal(t, reminder.KindPublished, f.sent[0].Kind)
		assert.True(t, f.sent[1].IsCopy)
	})
}

func TestSendUnpublished(t *testing.T) {
	t.Run("RequiresUnpublished", func(t *testing.T) {
		f := setup(t)
		f.roster(t, "c1", 1, 1)
		f.session(t, "s1", func(s *domain.FeedbackSession) { s.PublishedManually = true })
		_, err := f.scheduler.SendUnpublished(f.ctx, reminder.RemindRequest{CourseID: "c1", SessionName: "s1"})
		assert.ErrorIs(t, err, errdefs.ErrInvalidState)
	})

	t.Run("InvalidRequest", func(t *testing.T) {
		f := setup(t)
		_, err := f.scheduler.SendUnpublished(f.ctx, reminder.RemindRequest{SessionName: "s1"})
		assert.ErrorIs(t, err, errdefs.ErrInvalidParameters)
	})

	t.Run("EveryoneWithCoOwnerCopy", func(t *testing.T) {
		f := setup(t)
		f.roster(t, "c1", 2, 1)
		require.NoError(t, f.store.Instructors.Create(f.ctx, &domain.Instructor{
			CourseID: "c1", Email: "owner@x.com", Role: domain.RoleCoOwner,
		}))
		f.session(t, "s1", nil)
		f.expectSend(5)

		report, err := f.scheduler.SendUnpublished(f.ctx, reminder.RemindRequest{CourseID: "c1", SessionName: "s1"})
		require.NoError(t, err)
		assert.Equal(t, 5, report.Dispatched)
		assert.Zero(t, report.Failed)

		var copies []string
		for _, e := range f.sent {
			assert.Equal(t, reminder.KindUnpublished, e.Kind)
			if e.IsCopy {
				copies = append(copies, e.To)
			}
		}
		assert.Equal(t, []string{"owner@x.com"}, copies)
		assert.ElementsMatch(t, []string{"s0@x.com", "s1@x.com", "i0@x.com", "owner@x.com", "owner@x.com"}, f.recipients())
	})
}
