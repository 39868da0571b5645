package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResponseKey is the identity of a response. Giver and Recipient are
// emails, or team names for team-level participants.
type ResponseKey struct {
	QuestionID uuid.UUID
	Giver      string
	Recipient  string
}

type FeedbackResponse struct {
	ID               uuid.UUID
	QuestionID       uuid.UUID
	CourseID         string
	SessionName      string
	Giver            string
	GiverSection     string
	Recipient        string
	RecipientSection string
	Answer           string
	CreatedAt        time.Time
	EditedAt         time.Time
}

func (r *FeedbackResponse) Key() ResponseKey {
	return ResponseKey{QuestionID: r.QuestionID, Giver: r.Giver, Recipient: r.Recipient}
}

func (r *FeedbackResponse) Involves(identifier string) bool {
	return r.Giver == identifier || r.Recipient == identifier
}

type FeedbackResponseComment struct {
	ID              uuid.UUID
	ResponseID      uuid.UUID
	QuestionID      uuid.UUID
	CourseID        string
	SessionName     string
	GiverEmail      string
	Text            string
	FromParticipant bool
	ShowCommentTo   []ParticipantType
	ShowGiverNameTo []ParticipantType
	CreatedAt       time.Time
	EditedAt        time.Time
}

// DeleteResult reports whether a fail-silently delete removed anything.
type DeleteResult struct {
	Deleted bool
}
