package reminder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
	"feedback_service/internal/lifecycle"
	"feedback_service/pkg/logger"
)

// RemindRequest is the payload of the point-to-point remind workers.
type RemindRequest struct {
	CourseID      string   `json:"course_id" validate:"notblank"`
	SessionName   string   `json:"session_name" validate:"notblank"`
	InstructorID  string   `json:"instructor_id,omitempty" validate:"omitempty,email"`
	UsersToRemind []string `json:"users_to_remind,omitempty" validate:"omitempty,dive,email"`
}

// RemindParticipants emails every participant who has not attempted the
// session, or exactly UsersToRemind when it is set. The requesting
// instructor receives a copy of the email.
func (s *Scheduler) RemindParticipants(ctx context.Context, req RemindRequest) (Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return Report{}, err
	}

	t, err := s.target(ctx, req, true)
	if err != nil {
		return Report{}, err
	}

	var recipients []domain.Participant
	if len(req.UsersToRemind) == 0 {
		for _, p := range t.view.Participants() {
			if !t.attempts.HasAttempted(p) {
				recipients = append(recipients, p)
			}
		}
	} else {
		recipients = s.known(ctx, t, req.UsersToRemind)
	}

	return s.sendWithCopy(ctx, KindRemind, t, recipients, req.InstructorID, (*target).end), nil
}

// ResendPublished re-sends the published email to the listed users. It
// requires a requesting instructor and a published session.
func (s *Scheduler) ResendPublished(ctx context.Context, req RemindRequest) (Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return Report{}, err
	}
	if req.InstructorID == "" {
		return Report{}, fmt.Errorf("instructor id is required: %w", errdefs.ErrInvalidParameters)
	}

	t, err := s.target(ctx, req, false)
	if err != nil {
		return Report{}, err
	}
	if !lifecycle.IsPublished(t.session, t.now) {
		return Report{}, fmt.Errorf("session %s is not published: %w", t.session.Key(), errdefs.ErrInvalidState)
	}

	recipients := s.known(ctx, t, req.UsersToRemind)
	return s.sendWithCopy(ctx, KindPublished, t, recipients, req.InstructorID, noDeadline), nil
}

// SendUnpublished tells every participant the results of the session were
// withdrawn. Co-owners of the course also receive a copy.
func (s *Scheduler) SendUnpublished(ctx context.Context, req RemindRequest) (Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return Report{}, err
	}

	t, err := s.target(ctx, req, false)
	if err != nil {
		return Report{}, err
	}
	if lifecycle.IsPublished(t.session, t.now) {
		return Report{}, fmt.Errorf("session %s is still published: %w", t.session.Key(), errdefs.ErrInvalidState)
	}

	report := s.send(ctx, KindUnpublished, t, t.view.Participants(), noDeadline)
	for _, i := range t.view.Instructors() {
		if i.IsCoOwner() {
			report.Add(s.sendCopy(ctx, KindUnpublished, t, i, noDeadline))
		}
	}
	return report, nil
}

func noDeadline(*target, domain.Participant) time.Time { return time.Time{} }

func (s *Scheduler) target(ctx context.Context, req RemindRequest, withAttempts bool) (*target, error) {
	session, err := s.sessions.Get(ctx, req.CourseID, req.SessionName)
	if err != nil {
		return nil, err
	}
	if session.IsInRecycleBin() {
		return nil, fmt.Errorf("session %s is in the recycle bin: %w", session.Key(), errdefs.ErrNotFound)
	}
	t, ok, err := s.load(ctx, session, withAttempts, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("course %s is in the recycle bin: %w", req.CourseID, errdefs.ErrNotFound)
	}
	return t, nil
}

// known keeps the emails that belong to the course roster.
func (s *Scheduler) known(ctx context.Context, t *target, emails []string) []domain.Participant {
	out := make([]domain.Participant, 0, len(emails))
	for _, email := range emails {
		if st, ok := t.view.Student(email); ok {
			out = append(out, st.AsParticipant())
			continue
		}
		if i, ok := t.view.Instructor(email); ok {
			out = append(out, i.AsParticipant())
			continue
		}
		logger.FromContext(ctx, s.logger).Warn("user not in course, skipped",
			zap.String("course_id", t.session.CourseID), zap.String("user", email))
	}
	return out
}

func (s *Scheduler) sendWithCopy(
	ctx context.Context,
	kind Kind,
	t *target,
	recipients []domain.Participant,
	instructorEmail string,
	due func(*target, domain.Participant) time.Time,
) Report {
	report := s.send(ctx, kind, t, recipients, due)
	if instructorEmail == "" {
		return report
	}
	instructor, ok := t.view.Instructor(instructorEmail)
	if !ok {
		logger.FromContext(ctx, s.logger).Warn("requesting instructor not in course, copy skipped",
			zap.String("course_id", t.session.CourseID), zap.String("instructor", instructorEmail))
		return report
	}
	report.Add(s.sendCopy(ctx, kind, t, instructor, due))
	return report
}

func (s *Scheduler) send(
	ctx context.Context,
	kind Kind,
	t *target,
	recipients []domain.Participant,
	due func(*target, domain.Participant) time.Time,
) Report {
	log := logger.FromContext(ctx, s.logger)
	report := Report{Sessions: 1}

	for _, p := range recipients {
		if err := s.mailer.Enqueue(ctx, compose(kind, t.course, t.session, p.Email, due(t, p), false)); err != nil {
			report.Failed++
			log.Error("failed to enqueue email", append(sessionFields(t.session, err), zap.String("user", p.Email))...)
			continue
		}
		report.Dispatched++
	}
	return report
}

func (s *Scheduler) sendCopy(ctx context.Context, kind Kind, t *target, instructor *domain.Instructor, due func(*target, domain.Participant) time.Time) Report {
	email := compose(kind, t.course, t.session, instructor.Email, due(t, instructor.AsParticipant()), true)
	if err := s.mailer.Enqueue(ctx, email); err != nil {
		logger.FromContext(ctx, s.logger).Error("failed to enqueue copy email",
			append(sessionFields(t.session, err), zap.String("instructor", instructor.Email))...)
		return Report{Failed: 1}
	}
	return Report{Dispatched: 1}
}
