// Package app assembles the feedback services over one store.
package app

import (
	"context"
	"time"

	"feedback_service/internal/cascade"
	"feedback_service/internal/domain"
	"feedback_service/internal/reminder"
	"feedback_service/internal/repository"
	"feedback_service/internal/roster"
	"feedback_service/internal/service"
	"feedback_service/pkg/logger"
)

type Deps struct {
	Store  *repository.Store
	Mailer reminder.Mailer
	Logger *logger.Logger

	// Roster defaults to reading the store directly. When it caches,
	// Invalidator must drop its entries on roster changes.
	Roster      roster.Provider
	Invalidator service.Invalidator

	// Unpublished receives unpublish events. It defaults to sending the
	// emails in-process through the scheduler.
	Unpublished service.UnpublishNotifier

	Reminders reminder.Config
	BatchSize int
	Clock     func() time.Time
}

type App struct {
	Courses   *service.CourseService
	Sessions  *service.SessionService
	Deadlines *service.DeadlineService
	Questions *service.QuestionService
	Responses *service.ResponseService
	Comments  *service.CommentService
	Roster    *service.RosterService
	Scheduler *reminder.Scheduler
}

func New(d Deps) *App {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Roster == nil {
		d.Roster = roster.NewRepositoryProvider(d.Store.Students, d.Store.Instructors)
	}
	if d.Reminders == (reminder.Config{}) {
		d.Reminders = reminder.DefaultConfig()
	}

	manager := cascade.NewManager(d.Store, d.Logger,
		cascade.WithClock(d.Clock),
		cascade.WithBatchSize(d.BatchSize),
	)
	clock := service.WithClock(d.Clock)

	scheduler := reminder.NewScheduler(d.Store, d.Roster, d.Mailer, d.Logger,
		reminder.WithConfig(d.Reminders),
		reminder.WithClock(d.Clock),
	)
	if d.Unpublished == nil {
		d.Unpublished = schedulerNotifier{scheduler: scheduler}
	}

	deadlines := service.NewDeadlineService(d.Store, d.Logger, clock)
	courses := service.NewCourseService(d.Store, manager, d.Logger, clock)
	rosterService := service.NewRosterService(d.Store, manager, d.Logger, clock)
	if d.Invalidator != nil {
		courses = courses.WithCache(d.Invalidator)
		rosterService = rosterService.WithCache(d.Invalidator)
	}

	return &App{
		Courses: courses,
		Sessions: service.NewSessionService(d.Store, manager, deadlines, d.Logger, clock).
			WithUnpublishNotifier(d.Unpublished),
		Deadlines: deadlines,
		Questions: service.NewQuestionService(d.Store, manager, d.Roster, d.Logger, clock),
		Responses: service.NewResponseService(d.Store, manager, d.Roster, d.Logger, clock),
		Comments:  service.NewCommentService(d.Store, d.Logger, clock),
		Roster:    rosterService,
		Scheduler: scheduler,
	}
}

type schedulerNotifier struct {
	scheduler *reminder.Scheduler
}

func (n schedulerNotifier) SessionUnpublished(ctx context.Context, key domain.SessionKey) error {
	_, err := n.scheduler.SendUnpublished(ctx, reminder.RemindRequest{CourseID: key.CourseID, SessionName: key.Name})
	return err
}
