package reminder

import (
	"context"
	"fmt"
	"time"

	"feedback_service/internal/domain"
)

//go:generate mockgen -source=mailer.go -destination=mocks/mailer.go -package=mocks

type Kind string

const (
	KindOpeningSoon      Kind = "OPENING_SOON"
	KindOpen             Kind = "OPEN"
	KindClosing          Kind = "CLOSING"
	KindClosingExtension Kind = "CLOSING_EXTENSION"
	KindClosed           Kind = "CLOSED"
	KindPublished        Kind = "PUBLISHED"
	KindUnpublished      Kind = "UNPUBLISHED"
	KindRemind           Kind = "REMIND"
)

// Email is one notification request. Rendering the final message is left
// to the consumer of the queue; Subject and Body carry a plain fallback.
type Email struct {
	Kind        Kind      `json:"kind"`
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	IsCopy      bool      `json:"is_copy"`
	CourseID    string    `json:"course_id"`
	SessionName string    `json:"session_name"`
	Deadline    time.Time `json:"deadline,omitempty"`
}

// Mailer accepts notification requests. It never sends mail itself.
type Mailer interface {
	Enqueue(ctx context.Context, email Email) error
}

var subjects = map[Kind]string{
	KindOpeningSoon:      "Feedback session opening soon",
	KindOpen:             "Feedback session now open",
	KindClosing:          "Feedback session closing soon",
	KindClosingExtension: "Your extended feedback deadline is approaching",
	KindClosed:           "Feedback session closed",
	KindPublished:        "Feedback session results published",
	KindUnpublished:      "Feedback session results unpublished",
	KindRemind:           "Reminder to submit feedback",
}

func compose(kind Kind, course *domain.Course, s *domain.FeedbackSession, to string, due time.Time, isCopy bool) Email {
	subject := fmt.Sprintf("%s: [%s] %s", subjects[kind], course.Name, s.Name)
	if isCopy {
		subject = "[Copy] " + subject
	}

	body := fmt.Sprintf("Course %s, session %s.", course.Name, s.Name)
	if !due.IsZero() {
		body += " Deadline: " + due.In(location(s, course)).Format("Mon, 02 Jan 2006, 03:04 PM MST") + "."
	}

	return Email{
		Kind:        kind,
		To:          to,
		Subject:     subject,
		Body:        body,
		IsCopy:      isCopy,
		CourseID:    s.CourseID,
		SessionName: s.Name,
		Deadline:    due,
	}
}

func location(s *domain.FeedbackSession, course *domain.Course) *time.Location {
	for _, name := range []string{s.TimeZone, course.TimeZone} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}
