package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"feedback_service/internal/deadline"
	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
	"feedback_service/internal/lifecycle"
	"feedback_service/internal/repository"
	"feedback_service/internal/roster"
	"feedback_service/internal/validation"
	"feedback_service/pkg/logger"
)

type Config struct {
	OpeningSoonWindow time.Duration
	ClosingWindow     time.Duration
	ClosedWindow      time.Duration
}

func DefaultConfig() Config {
	return Config{
		OpeningSoonWindow: 24 * time.Hour,
		ClosingWindow:     24 * time.Hour,
		ClosedWindow:      time.Hour,
	}
}

// Report summarizes one scheduler run.
type Report struct {
	Sessions   int `json:"sessions"`
	Dispatched int `json:"dispatched"`
	Failed     int `json:"failed"`
}

func (r *Report) Add(o Report) {
	r.Sessions += o.Sessions
	r.Dispatched += o.Dispatched
	r.Failed += o.Failed
}

// Scheduler selects sessions that need a notification and hands the
// emails to a Mailer. The persisted sent flag is set only after every
// email of a session was accepted.
type Scheduler struct {
	sessions   repository.SessionRepository
	courses    repository.CourseRepository
	extensions repository.DeadlineExtensionRepository
	roster     roster.Provider
	attempts   *lifecycle.AttemptTracker
	mailer     Mailer
	validator  *validation.Validator
	logger     *logger.Logger
	cfg        Config
	now        func() time.Time
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithConfig(cfg Config) Option {
	return func(s *Scheduler) { s.cfg = cfg }
}

func NewScheduler(store *repository.Store, provider roster.Provider, mailer Mailer, log *logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		sessions:   store.Sessions,
		courses:    store.Courses,
		extensions: store.Extensions,
		roster:     provider,
		attempts:   lifecycle.NewAttemptTracker(store.Questions, store.Responses),
		mailer:     mailer,
		validator:  validation.New(),
		logger:     log,
		cfg:        DefaultConfig(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type target struct {
	session  *domain.FeedbackSession
	course   *domain.Course
	view     *roster.View
	attempts *lifecycle.Attempts
	now      time.Time
}

func (t *target) end(p domain.Participant) time.Time {
	return deadline.EffectiveEnd(t.session, p.Email, p.IsInstructor)
}

type category struct {
	flag          domain.EmailFlag
	kind          Kind
	enabled       func(*domain.FeedbackSession) bool
	due           func(s *domain.FeedbackSession, now time.Time) bool
	needsAttempts bool
	recipients    func(t *target) []domain.Participant
	deadline      func(t *target, p domain.Participant) time.Time
}

func (s *Scheduler) openingSoon() category {
	return category{
		flag:    domain.EmailFlagOpeningSoon,
		kind:    KindOpeningSoon,
		enabled: func(fs *domain.FeedbackSession) bool { return fs.OpeningEmailEnabled },
		due: func(fs *domain.FeedbackSession, now time.Time) bool {
			return lifecycle.IsOpeningWithin(fs, now, s.cfg.OpeningSoonWindow)
		},
		recipients: func(t *target) []domain.Participant {
			out := make([]domain.Participant, 0, len(t.view.Instructors()))
			for _, i := range t.view.Instructors() {
				out = append(out, i.AsParticipant())
			}
			return out
		},
		deadline: func(t *target, _ domain.Participant) time.Time { return t.session.StartTime },
	}
}

func (s *Scheduler) open() category {
	return category{
		flag:    domain.EmailFlagOpen,
		kind:    KindOpen,
		enabled: func(fs *domain.FeedbackSession) bool { return fs.OpeningEmailEnabled },
		due: func(fs *domain.FeedbackSession, now time.Time) bool {
			return lifecycle.IsOpenFor(fs, now, lifecycle.Viewer{})
		},
		recipients: func(t *target) []domain.Participant { return t.view.Participants() },
		deadline:   (*target).end,
	}
}

func (s *Scheduler) closing() category {
	return category{
		flag:    domain.EmailFlagClosing,
		kind:    KindClosing,
		enabled: func(fs *domain.FeedbackSession) bool { return fs.ClosingEmailEnabled },
		due: func(fs *domain.FeedbackSession, now time.Time) bool {
			return lifecycle.IsClosingWithin(fs, now, s.cfg.ClosingWindow)
		},
		needsAttempts: true,
		recipients: func(t *target) []domain.Participant {
			var out []domain.Participant
			for _, p := range t.view.Participants() {
				if deadline.HasExtension(t.session, p.Email, p.IsInstructor) || t.attempts.HasAttempted(p) {
					continue
				}
				out = append(out, p)
			}
			return out
		},
		deadline: (*target).end,
	}
}

func (s *Scheduler) closed() category {
	return category{
		flag:    domain.EmailFlagClosed,
		kind:    KindClosed,
		enabled: func(fs *domain.FeedbackSession) bool { return fs.ClosingEmailEnabled },
		due: func(fs *domain.FeedbackSession, now time.Time) bool {
			return lifecycle.IsClosedWithin(fs, now, s.cfg.ClosedWindow)
		},
		recipients: func(t *target) []domain.Participant {
			var out []domain.Participant
			for _, p := range t.view.Participants() {
				if t.end(p).After(t.now) {
					continue
				}
				out = append(out, p)
			}
			return out
		},
		deadline: (*target).end,
	}
}

func (s *Scheduler) published() category {
	return category{
		flag:       domain.EmailFlagPublished,
		kind:       KindPublished,
		enabled:    func(fs *domain.FeedbackSession) bool { return fs.PublishedEmailEnabled },
		due:        lifecycle.IsPublished,
		recipients: func(t *target) []domain.Participant { return t.view.Participants() },
		deadline:   func(*target, domain.Participant) time.Time { return time.Time{} },
	}
}

// SendOpeningSoonReminders notifies instructors of sessions starting within
// the opening-soon window.
func (s *Scheduler) SendOpeningSoonReminders(ctx context.Context) (Report, error) {
	return s.run(ctx, s.openingSoon())
}

// SendOpenReminders notifies every participant of sessions that have opened.
func (s *Scheduler) SendOpenReminders(ctx context.Context) (Report, error) {
	return s.run(ctx, s.open())
}

// SendClosingReminders notifies participants who have not attempted a
// session closing within the closing window. Participants with an
// extension are left to SendExtensionClosingReminders.
func (s *Scheduler) SendClosingReminders(ctx context.Context) (Report, error) {
	return s.run(ctx, s.closing())
}

func (s *Scheduler) SendClosedReminders(ctx context.Context) (Report, error) {
	return s.run(ctx, s.closed())
}

func (s *Scheduler) SendPublishedReminders(ctx context.Context) (Report, error) {
	return s.run(ctx, s.published())
}

// SendAll runs every category once, extensions included.
func (s *Scheduler) SendAll(ctx context.Context) (Report, error) {
	steps := []func(context.Context) (Report, error){
		s.SendOpeningSoonReminders,
		s.SendOpenReminders,
		s.SendClosingReminders,
		s.SendExtensionClosingReminders,
		s.SendClosedReminders,
		s.SendPublishedReminders,
	}
	var total Report
	var errs []error
	for _, step := range steps {
		r, err := step(ctx)
		total.Add(r)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

func (s *Scheduler) run(ctx context.Context, c category) (Report, error) {
	now := s.now()
	log := logger.FromContext(ctx, s.logger).With(zap.String("kind", string(c.kind)))

	pending, err := s.sessions.ListEmailPending(ctx, c.flag)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list sessions pending %s: %w", c.flag, err)
	}

	var report Report
	for _, session := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !c.enabled(session) || !c.due(session, now) {
			continue
		}

		t, ok, err := s.load(ctx, session, c.needsAttempts, now)
		if err != nil {
			report.Failed++
			log.Error("failed to load session for emails", sessionFields(session, err)...)
			continue
		}
		if !ok {
			continue
		}
		report.Sessions++

		sent, err := s.dispatch(ctx, c, t)
		report.Dispatched += sent
		if err != nil {
			report.Failed++
			log.Error("failed to send session emails", sessionFields(session, err)...)
			continue
		}

		if err := s.sessions.MarkEmailSent(ctx, session.Key(), c.flag); err != nil {
			report.Failed++
			log.Error("emails sent but flag not stored", sessionFields(session, err)...)
			continue
		}
	}

	if report.Sessions > 0 || report.Failed > 0 {
		log.Info("session emails processed",
			zap.Int("sessions", report.Sessions),
			zap.Int("dispatched", report.Dispatched),
			zap.Int("failed", report.Failed),
		)
	}
	return report, nil
}

// load returns false for sessions whose course sits in the recycle bin.
func (s *Scheduler) load(ctx context.Context, session *domain.FeedbackSession, withAttempts bool, now time.Time) (*target, bool, error) {
	course, err := s.courses.Get(ctx, session.CourseID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get course %s: %w", session.CourseID, err)
	}
	if course.IsInRecycleBin() {
		return nil, false, nil
	}

	view, err := roster.Load(ctx, s.roster, session.CourseID)
	if err != nil {
		return nil, false, err
	}

	t := &target{session: session, course: course, view: view, now: now}
	if withAttempts {
		if t.attempts, err = s.attempts.Load(ctx, session); err != nil {
			return nil, false, err
		}
	}
	return t, true, nil
}

func (s *Scheduler) dispatch(ctx context.Context, c category, t *target) (int, error) {
	sent := 0
	for _, p := range c.recipients(t) {
		email := compose(c.kind, t.course, t.session, p.Email, c.deadline(t, p), false)
		if err := s.mailer.Enqueue(ctx, email); err != nil {
			return sent, fmt.Errorf("failed to enqueue email to %s: %w", p.Email, err)
		}
		sent++
	}
	return sent, nil
}

// SendExtensionClosingReminders notifies users whose own extended deadline
// ends within the closing window. No flag is stored, so a later run inside
// the same window notifies them again.
func (s *Scheduler) SendExtensionClosingReminders(ctx context.Context) (Report, error) {
	now := s.now()
	log := logger.FromContext(ctx, s.logger).With(zap.String("kind", string(KindClosingExtension)))

	exts, err := s.extensions.ListEndingBetween(ctx, now, now.Add(s.cfg.ClosingWindow))
	if err != nil {
		return Report{}, fmt.Errorf("failed to list ending extensions: %w", err)
	}

	var order []domain.SessionKey
	bySession := make(map[domain.SessionKey][]*domain.DeadlineExtension)
	for _, e := range exts {
		key := domain.SessionKey{CourseID: e.CourseID, Name: e.SessionName}
		if _, ok := bySession[key]; !ok {
			order = append(order, key)
		}
		bySession[key] = append(bySession[key], e)
	}

	var report Report
	for _, key := range order {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		session, err := s.sessions.Get(ctx, key.CourseID, key.Name)
		if errors.Is(err, errdefs.ErrNotFound) {
			continue
		}
		if err != nil {
			report.Failed++
			log.Error("failed to get session", zap.String("session", key.String()), zap.Error(err))
			continue
		}
		if session.IsInRecycleBin() || !session.ClosingEmailEnabled || now.Before(session.StartTime) {
			continue
		}

		t, ok, err := s.load(ctx, session, true, now)
		if err != nil {
			report.Failed++
			log.Error("failed to load session for emails", sessionFields(session, err)...)
			continue
		}
		if !ok {
			continue
		}
		report.Sessions++

		for _, e := range bySession[key] {
			if !deadline.IsCacheCurrent(session, e) {
				log.Warn("deadline cache out of date, extension skipped",
					zap.String("session", key.String()), zap.String("user", e.UserEmail))
				continue
			}
			p, ok := participant(t.view, e.UserEmail, e.IsInstructor)
			if !ok || t.attempts.HasAttempted(p) {
				continue
			}
			if err := s.mailer.Enqueue(ctx, compose(KindClosingExtension, t.course, session, e.UserEmail, e.EndTime, false)); err != nil {
				report.Failed++
				log.Error("failed to enqueue extension email", append(sessionFields(session, err), zap.String("user", e.UserEmail))...)
				continue
			}
			report.Dispatched++
		}
	}
	return report, nil
}

func participant(view *roster.View, email string, isInstructor bool) (domain.Participant, bool) {
	if isInstructor {
		if i, ok := view.Instructor(email); ok {
			return i.AsParticipant(), true
		}
		return domain.Participant{}, false
	}
	if st, ok := view.Student(email); ok {
		return st.AsParticipant(), true
	}
	return domain.Participant{}, false
}

func sessionFields(s *domain.FeedbackSession, err error) []zap.Field {
	return []zap.Field{
		zap.String("course_id", s.CourseID),
		zap.String("session", s.Name),
		zap.Error(err),
	}
}
