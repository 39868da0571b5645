package lifecycle

import (
	"fmt"
	"time"

	"feedback_service/internal/deadline"
	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
)

type State string

const (
	StateNotVisible      State = "NOT_VISIBLE"
	StateVisibleNotOpen  State = "VISIBLE_NOT_OPEN"
	StateOpen            State = "OPEN"
	StateClosed          State = "CLOSED"
	StateAwaitingPublish State = "AWAITING_PUBLISH"
	StatePublished       State = "PUBLISHED"
)

// Viewer is the user a state is computed for. The zero Viewer sees the
// session default end time.
type Viewer struct {
	Email        string
	IsInstructor bool
}

func endFor(s *domain.FeedbackSession, v Viewer) time.Time {
	if v.Email == "" {
		return s.EndTime
	}
	return deadline.EffectiveEnd(s, v.Email, v.IsInstructor)
}

// StateAt resolves the state of the session for the viewer. While the
// session is visible and not yet closed for the viewer the time-based
// states win over publication.
func StateAt(s *domain.FeedbackSession, now time.Time, v Viewer) State {
	switch {
	case now.Before(s.VisibleFromTime):
		return StateNotVisible
	case now.Before(s.StartTime):
		return StateVisibleNotOpen
	case !now.After(endFor(s, v)):
		return StateOpen
	case IsPublished(s, now):
		return StatePublished
	case s.ResultsVisibleFromTime.Mode == domain.ResultsNever:
		return StateClosed
	default:
		return StateAwaitingPublish
	}
}

func IsVisible(s *domain.FeedbackSession, now time.Time) bool {
	return !now.Before(s.VisibleFromTime)
}

func IsOpenFor(s *domain.FeedbackSession, now time.Time, v Viewer) bool {
	return !now.Before(s.StartTime) && !now.After(endFor(s, v))
}

// AcceptsSubmission is IsOpenFor widened by the session grace period.
func AcceptsSubmission(s *domain.FeedbackSession, now time.Time, v Viewer) bool {
	return !now.Before(s.StartTime) && !now.After(endFor(s, v).Add(s.GracePeriod))
}

// IsInGracePeriod reports a session closed for the viewer that still
// accepts submissions.
func IsInGracePeriod(s *domain.FeedbackSession, now time.Time, v Viewer) bool {
	return IsClosedFor(s, now, v) && AcceptsSubmission(s, now, v)
}

func IsClosedFor(s *domain.FeedbackSession, now time.Time, v Viewer) bool {
	return now.After(endFor(s, v))
}

func IsPublished(s *domain.FeedbackSession, now time.Time) bool {
	if s.PublishedManually {
		return true
	}
	r := s.ResultsVisibleFromTime
	return r.Mode == domain.ResultsAt && !r.At.After(now)
}

// IsOpeningWithin reports a session that has not started and starts within
// the window.
func IsOpeningWithin(s *domain.FeedbackSession, now time.Time, window time.Duration) bool {
	return now.Before(s.StartTime) && !s.StartTime.After(now.Add(window))
}

// IsClosingWithin reports a session that is open by its default end time
// and closes within the window.
func IsClosingWithin(s *domain.FeedbackSession, now time.Time, window time.Duration) bool {
	return IsOpenFor(s, now, Viewer{}) && !s.EndTime.After(now.Add(window))
}

// IsClosedWithin reports a session whose default end time passed no more
// than window ago.
func IsClosedWithin(s *domain.FeedbackSession, now time.Time, window time.Duration) bool {
	return now.After(s.EndTime) && !now.After(s.EndTime.Add(window))
}

// Publish marks the session manually published.
func Publish(s *domain.FeedbackSession, now time.Time) error {
	if IsPublished(s, now) {
		return fmt.Errorf("session %s is already published: %w", s.Key(), errdefs.ErrInvalidState)
	}
	if s.ResultsVisibleFromTime.Mode == domain.ResultsNever {
		return fmt.Errorf("session %s results are set to never be visible: %w", s.Key(), errdefs.ErrInvalidState)
	}
	s.PublishedManually = true
	published := now
	s.PublishedAt = &published
	return nil
}

// Unpublish hides the results again and switches the session to manual
// publishing, so the old publish time cannot republish it.
func Unpublish(s *domain.FeedbackSession, now time.Time) error {
	if !IsPublished(s, now) {
		return fmt.Errorf("session %s is not published: %w", s.Key(), errdefs.ErrInvalidState)
	}
	s.PublishedManually = false
	s.PublishedAt = nil
	s.ResultsVisibleFromTime = domain.ResultsVisibleLater()
	return nil
}
