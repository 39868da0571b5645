package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"feedback_service/internal/cascade"
	"feedback_service/internal/domain"
	"feedback_service/internal/repository"
	"feedback_service/internal/repository/memory"
	"feedback_service/internal/roster"
	"feedback_service/internal/service"
	"feedback_service/pkg/logger"
)

type fixture struct {
	ctx   context.Context
	now   time.Time
	store *repository.Store

	courses   *service.CourseService
	sessions  *service.SessionService
	deadlines *service.DeadlineService
	questions *service.QuestionService
	responses *service.ResponseService
	comments  *service.CommentService
	roster    *service.RosterService

	invalidated []string
	unpublished []domain.SessionKey
	notifyErr   error
}

func (f *fixture) Invalidate(_ context.Context, courseID string) {
	f.invalidated = append(f.invalidated, courseID)
}

func (f *fixture) SessionUnpublished(_ context.Context, key domain.SessionKey) error {
	f.unpublished = append(f.unpublished, key)
	return f.notifyErr
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		ctx:   context.Background(),
		now:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		store: store,
	}
	log := logger.NewNop()
	clock := service.WithClock(func() time.Time { return f.now })
	manager := cascade.NewManager(store, log, cascade.WithClock(func() time.Time { return f.now }))
	provider := roster.NewRepositoryProvider(store.Students, store.Instructors)

	f.courses = service.NewCourseService(store, manager, log, clock).WithCache(f)
	f.deadlines = service.NewDeadlineService(store, log, clock)
	f.sessions = service.NewSessionService(store, manager, f.deadlines, log, clock).WithUnpublishNotifier(f)
	f.questions = service.NewQuestionService(store, manager, provider, log, clock)
	f.responses = service.NewResponseService(store, manager, provider, log, clock)
	f.comments = service.NewCommentService(store, log, clock)
	f.roster = service.NewRosterService(store, manager, log, clock).WithCache(f)

	_, err := f.courses.Create(f.ctx, service.CreateCourseInput{ID: "c1", Name: "CS101"})
	require.NoError(t, err)
	return f
}

func (f *fixture) session(t *testing.T, name string, mutate func(*service.CreateSessionInput)) *domain.FeedbackSession {
	t.Helper()
	in := service.CreateSessionInput{
		CourseID:              "c1",
		Name:                  name,
		CreatorEmail:          "prof@x.com",
		VisibleFromTime:       f.now.Add(-48 * time.Hour),
		StartTime:             f.now.Add(-24 * time.Hour),
		EndTime:               f.now.Add(24 * time.Hour),
		OpeningEmailEnabled:   true,
		ClosingEmailEnabled:   true,
		PublishedEmailEnabled: true,
	}
	if mutate != nil {
		mutate(&in)
	}
	s, err := f.sessions.Create(f.ctx, in)
	require.NoError(t, err)
	return s
}

func (f *fixture) student(t *testing.T, email, team, section string) {
	t.Helper()
	_, err := f.roster.EnrollStudent(f.ctx, service.EnrollStudentInput{
		CourseID: "c1", Email: email, Team: team, Section: section,
	})
	require.NoError(t, err)
}

func (f *fixture) instructor(t *testing.T, email string) {
	t.Helper()
	_, err := f.roster.AddInstructor(f.ctx, service.AddInstructorInput{CourseID: "c1", Email: email})
	require.NoError(t, err)
}

func (f *fixture) question(t *testing.T, session string, giver, recipient domain.ParticipantType) *domain.FeedbackQuestion {
	t.Helper()
	q, err := f.questions.Create(f.ctx, service.CreateQuestionInput{
		CourseID:      "c1",
		SessionName:   session,
		Text:          "How did it go?",
		Type:          domain.QuestionTypeText,
		GiverType:     giver,
		RecipientType: recipient,
	})
	require.NoError(t, err)
	return q
}

func (f *fixture) submit(t *testing.T, q *domain.FeedbackQuestion, giver, recipient string) *domain.FeedbackResponse {
	t.Helper()
	r, err := f.responses.Submit(f.ctx, service.SubmitResponseInput{
		QuestionID: q.ID, Giver: giver, Recipient: recipient, Answer: "fine",
	})
	require.NoError(t, err)
	return r
}

func ptr[T any](v T) *T {
	return &v
}
