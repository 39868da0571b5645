// Package deadline resolves per-user session end times.
package deadline

import (
	"fmt"
	"time"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
)

// EffectiveEnd returns the end time that applies to the user: the cached
// extension when present, the session end time otherwise. An extension
// never moves the end earlier.
func EffectiveEnd(session *domain.FeedbackSession, email string, isInstructor bool) time.Time {
	if ext, ok := session.DeadlineFor(email, isInstructor); ok && ext.After(session.EndTime) {
		return ext
	}
	return session.EndTime
}

func HasExtension(session *domain.FeedbackSession, email string, isInstructor bool) bool {
	ext, ok := session.DeadlineFor(email, isInstructor)
	return ok && ext.After(session.EndTime)
}

// ValidateExtension rejects extensions that do not end strictly after the
// session's own end time.
func ValidateExtension(session *domain.FeedbackSession, endTime time.Time) error {
	if endTime.IsZero() {
		return fmt.Errorf("extension end time is required: %w", errdefs.ErrInvalidParameters)
	}
	if !endTime.After(session.EndTime) {
		return fmt.Errorf("extension end time %s is not after session end time %s: %w",
			endTime.UTC().Format(time.RFC3339), session.EndTime.UTC().Format(time.RFC3339), errdefs.ErrInvalidParameters)
	}
	return nil
}

// BuildMaps recomputes the denormalized session maps from the authoritative
// extension records, ignoring records of other sessions.
func BuildMaps(key domain.SessionKey, exts []*domain.DeadlineExtension) (students, instructors map[string]time.Time) {
	students = make(map[string]time.Time)
	instructors = make(map[string]time.Time)
	for _, e := range exts {
		if e.CourseID != key.CourseID || e.SessionName != key.Name {
			continue
		}
		if e.IsInstructor {
			instructors[e.UserEmail] = e.EndTime
		} else {
			students[e.UserEmail] = e.EndTime
		}
	}
	return students, instructors
}

// IsCacheCurrent reports whether the session map holds exactly the
// extension's end time.
func IsCacheCurrent(session *domain.FeedbackSession, ext *domain.DeadlineExtension) bool {
	cached, ok := session.DeadlineFor(ext.UserEmail, ext.IsInstructor)
	return ok && cached.Equal(ext.EndTime)
}
