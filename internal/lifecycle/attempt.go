package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"feedback_service/internal/domain"
	"feedback_service/internal/repository"
)

// Answered maps a question to the giver identifiers that responded to it.
type Answered map[uuid.UUID]map[string]struct{}

func BuildAnswered(responses []*domain.FeedbackResponse) Answered {
	a := make(Answered)
	for _, r := range responses {
		givers, ok := a[r.QuestionID]
		if !ok {
			givers = make(map[string]struct{})
			a[r.QuestionID] = givers
		}
		givers[r.Giver] = struct{}{}
	}
	return a
}

func (a Answered) has(questionID uuid.UUID, giver string) bool {
	_, ok := a[questionID][giver]
	return ok
}

// Givers returns every identifier that answered at least one question.
func (a Answered) Givers() map[string]struct{} {
	out := make(map[string]struct{})
	for _, givers := range a {
		for g := range givers {
			out[g] = struct{}{}
		}
	}
	return out
}

// AnswerableBy returns the questions the participant is expected to answer.
func AnswerableBy(s *domain.FeedbackSession, questions []*domain.FeedbackQuestion, p domain.Participant) []*domain.FeedbackQuestion {
	var out []*domain.FeedbackQuestion
	for _, q := range questions {
		if p.IsInstructor {
			if q.IsAnswerableByInstructor(p.Email, s.CreatorEmail) {
				out = append(out, q)
			}
			continue
		}
		if q.IsAnswerableByStudent() {
			out = append(out, q)
		}
	}
	return out
}

// HasAttempted is true when the participant gave at least one response to a
// question answerable by them, or when no such question exists.
func HasAttempted(s *domain.FeedbackSession, questions []*domain.FeedbackQuestion, answered Answered, p domain.Participant) bool {
	answerable := AnswerableBy(s, questions, p)
	if len(answerable) == 0 {
		return true
	}
	for _, q := range answerable {
		giver := p.Email
		if q.GiverType == domain.ParticipantTeams && !p.IsInstructor {
			giver = p.Team
		}
		if answered.has(q.ID, giver) {
			return true
		}
	}
	return false
}

// Attempts is a loaded snapshot of who answered what in a session.
type Attempts struct {
	Session   *domain.FeedbackSession
	Questions []*domain.FeedbackQuestion
	Answered  Answered
}

func (a *Attempts) HasAttempted(p domain.Participant) bool {
	return HasAttempted(a.Session, a.Questions, a.Answered, p)
}

type AttemptTracker struct {
	questions repository.QuestionRepository
	responses repository.ResponseRepository
}

func NewAttemptTracker(questions repository.QuestionRepository, responses repository.ResponseRepository) *AttemptTracker {
	return &AttemptTracker{questions: questions, responses: responses}
}

func (t *AttemptTracker) Load(ctx context.Context, s *domain.FeedbackSession) (*Attempts, error) {
	questions, err := t.questions.ListBySession(ctx, s.CourseID, s.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions of %s: %w", s.Key(), err)
	}
	responses, err := t.responses.ListBySession(ctx, s.CourseID, s.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses of %s: %w", s.Key(), err)
	}
	return &Attempts{Session: s, Questions: questions, Answered: BuildAnswered(responses)}, nil
}
