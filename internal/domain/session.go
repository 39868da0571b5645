package domain

import (
	"fmt"
	"time"
)

type ResultsMode string

const (
	// ResultsAt publishes automatically at a fixed instant.
	ResultsAt ResultsMode = "AT"
	// ResultsLater publishes only through an explicit manual action.
	ResultsLater ResultsMode = "LATER"
	// ResultsNever blocks both automatic and manual publishing.
	ResultsNever ResultsMode = "NEVER"
)

func (m ResultsMode) IsValid() bool {
	switch m {
	case ResultsAt, ResultsLater, ResultsNever:
		return true
	default:
		return false
	}
}

// ResultsVisibility is the resultsVisibleFromTime field: an instant or one of
// the LATER / NEVER sentinels.
type ResultsVisibility struct {
	Mode ResultsMode
	At   time.Time
}

func ResultsVisibleAt(t time.Time) ResultsVisibility {
	return ResultsVisibility{Mode: ResultsAt, At: t}
}

func ResultsVisibleLater() ResultsVisibility {
	return ResultsVisibility{Mode: ResultsLater}
}

func ResultsVisibleNever() ResultsVisibility {
	return ResultsVisibility{Mode: ResultsNever}
}

func (r ResultsVisibility) Equal(o ResultsVisibility) bool {
	if r.Mode != o.Mode {
		return false
	}
	return r.Mode != ResultsAt || r.At.Equal(o.At)
}

func (r ResultsVisibility) String() string {
	if r.Mode == ResultsAt {
		return r.At.UTC().Format(time.RFC3339)
	}
	return string(r.Mode)
}

type SessionKey struct {
	CourseID string
	Name     string
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%s/%s", k.CourseID, k.Name)
}

type FeedbackSession struct {
	CourseID     string
	Name         string
	CreatorEmail string
	Instructions string
	TimeZone     string

	VisibleFromTime        time.Time
	StartTime              time.Time
	EndTime                time.Time
	GracePeriod            time.Duration
	ResultsVisibleFromTime ResultsVisibility

	// PublishedManually is set by an explicit publish action and is
	// independent of ResultsVisibleFromTime.
	PublishedManually bool
	PublishedAt       *time.Time

	OpeningEmailEnabled   bool
	ClosingEmailEnabled   bool
	PublishedEmailEnabled bool

	SentOpeningSoonEmail bool
	SentOpenEmail        bool
	SentClosingEmail     bool
	SentClosedEmail      bool
	SentPublishedEmail   bool

	// StudentDeadlines and InstructorDeadlines cache the active
	// DeadlineExtension records keyed by user email.
	StudentDeadlines    map[string]time.Time
	InstructorDeadlines map[string]time.Time

	CreatedAt time.Time
	DeletedAt *time.Time
}

func (s *FeedbackSession) Key() SessionKey {
	return SessionKey{CourseID: s.CourseID, Name: s.Name}
}

func (s *FeedbackSession) IsInRecycleBin() bool {
	return s.DeletedAt != nil
}

// DeadlineFor returns the cached extension end time for the user, if any.
func (s *FeedbackSession) DeadlineFor(email string, isInstructor bool) (time.Time, bool) {
	m := s.StudentDeadlines
	if isInstructor {
		m = s.InstructorDeadlines
	}
	t, ok := m[email]
	return t, ok
}

func (s *FeedbackSession) IsSent(flag EmailFlag) bool {
	switch flag {
	case EmailFlagOpeningSoon:
		return s.SentOpeningSoonEmail
	case EmailFlagOpen:
		return s.SentOpenEmail
	case EmailFlagClosing:
		return s.SentClosingEmail
	case EmailFlagClosed:
		return s.SentClosedEmail
	case EmailFlagPublished:
		return s.SentPublishedEmail
	default:
		return false
	}
}

func (s *FeedbackSession) SetSent(flag EmailFlag, sent bool) {
	switch flag {
	case EmailFlagOpeningSoon:
		s.SentOpeningSoonEmail = sent
	case EmailFlagOpen:
		s.SentOpenEmail = sent
	case EmailFlagClosing:
		s.SentClosingEmail = sent
	case EmailFlagClosed:
		s.SentClosedEmail = sent
	case EmailFlagPublished:
		s.SentPublishedEmail = sent
	}
}

// Clone returns a deep copy, including the deadline maps.
func (s *FeedbackSession) Clone() *FeedbackSession {
	c := *s
	c.StudentDeadlines = cloneDeadlines(s.StudentDeadlines)
	c.InstructorDeadlines = cloneDeadlines(s.InstructorDeadlines)
	if s.PublishedAt != nil {
		t := *s.PublishedAt
		c.PublishedAt = &t
	}
	if s.DeletedAt != nil {
		t := *s.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func cloneDeadlines(m map[string]time.Time) map[string]time.Time {
	out := make(map[string]time.Time, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
