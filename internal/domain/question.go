package domain

import (
	"time"

	"github.com/google/uuid"
)

// UnlimitedRecipients marks a question without a cap on recipients.
const UnlimitedRecipients = -1

// GeneralRecipient is the recipient stored on responses to questions
// whose recipient type is NONE.
const GeneralRecipient = "%GENERAL%"

type FeedbackQuestion struct {
	ID          uuid.UUID
	CourseID    string
	SessionName string
	Number      int
	Text        string
	Description string
	Type        QuestionType

	GiverType     ParticipantType
	RecipientType ParticipantType
	// MaxRecipients is numberOfEntitiesToGiveFeedbackTo; advisory only.
	MaxRecipients int

	ShowResponsesTo []ParticipantType
	ShowGiverNameTo []ParticipantType
	Options         []string
	GenerateOptions ParticipantType

	CreatedAt time.Time
	EditedAt  time.Time
}

func (q *FeedbackQuestion) SessionKey() SessionKey {
	return SessionKey{CourseID: q.CourseID, Name: q.SessionName}
}

func (q *FeedbackQuestion) IsAnswerableByStudent() bool {
	return q.GiverType == ParticipantStudents || q.GiverType == ParticipantTeams
}

// IsAnswerableByInstructor reports whether the given instructor may answer.
// SELF questions are answered by the session creator.
func (q *FeedbackQuestion) IsAnswerableByInstructor(email, creatorEmail string) bool {
	if q.GiverType == ParticipantInstructors {
		return true
	}
	return q.GiverType == ParticipantSelf && email == creatorEmail
}

func (q *FeedbackQuestion) Clone() *FeedbackQuestion {
	c := *q
	c.ShowResponsesTo = append([]ParticipantType(nil), q.ShowResponsesTo...)
	c.ShowGiverNameTo = append([]ParticipantType(nil), q.ShowGiverNameTo...)
	c.Options = append([]string(nil), q.Options...)
	return &c
}
