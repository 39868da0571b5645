package recipient

import (
	"fmt"
	"sort"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
	"feedback_service/internal/roster"
)

type Recipient struct {
	// Identifier is the value stored as FeedbackResponse.Recipient: an email,
	// or a team name when IsTeam is set.
	Identifier string
	Name       string
	Section    string
	Team       string
	IsTeam     bool
}

type Recipients struct {
	ByID map[string]Recipient
	// MaxSelectable is the question's recipient cap, or
	// domain.UnlimitedRecipients. It is never applied to ByID.
	MaxSelectable int
}

// IDs returns the recipient identifiers in ascending order.
func (r Recipients) IDs() []string {
	ids := make([]string, 0, len(r.ByID))
	for id := range r.ByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r Recipients) Len() int {
	return len(r.ByID)
}

type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// GiverIdentifier is the value a participant stores as the giver of a
// response to the question: the team name for team questions.
func GiverIdentifier(q *domain.FeedbackQuestion, giver domain.Participant) string {
	if q.GiverType == domain.ParticipantTeams && !giver.IsInstructor {
		return giver.Team
	}
	return giver.Email
}

// Recipients expands the question's recipient type for the giver over the
// roster. The full eligible set is returned regardless of the cap.
func (r *Resolver) Recipients(q *domain.FeedbackQuestion, giver domain.Participant, view *roster.View) (Recipients, error) {
	set, err := r.resolve(q.RecipientType, q.GiverType, giver, view)
	if err != nil {
		return Recipients{}, err
	}
	maxSelectable := q.MaxRecipients
	if maxSelectable <= 0 {
		maxSelectable = domain.UnlimitedRecipients
	}
	return Recipients{ByID: set, MaxSelectable: maxSelectable}, nil
}

func (r *Resolver) resolve(recipientType, giverType domain.ParticipantType, giver domain.Participant, view *roster.View) (map[string]Recipient, error) {
	out := make(map[string]Recipient)
	giverTeam := giver.Team
	if giver.IsInstructor {
		giverTeam = ""
	}

	switch recipientType {
	case domain.ParticipantSelf:
		if giverType == domain.ParticipantTeams && giverTeam != "" {
			addTeam(out, giverTeam, view)
		} else {
			out[giver.Email] = Recipient{
				Identifier: giver.Email,
				Name:       giver.Name,
				Section:    giver.Section,
				Team:       giverTeam,
			}
		}

	case domain.ParticipantStudents:
		for _, s := range view.Students() {
			addStudent(out, s)
		}

	case domain.ParticipantStudentsExcludingSelf:
		for _, s := range view.Students() {
			if s.Email != giver.Email {
				addStudent(out, s)
			}
		}

	case domain.ParticipantInstructors:
		for _, i := range view.Instructors() {
			if i.Email == giver.Email {
				continue
			}
			if !giver.IsInstructor && !i.IsDisplayedToStudents {
				continue
			}
			out[i.Email] = Recipient{
				Identifier: i.Email,
				Name:       i.Name,
				Section:    domain.InstructorSection,
			}
		}

	case domain.ParticipantTeams:
		for _, team := range view.Teams() {
			addTeam(out, team, view)
		}

	case domain.ParticipantTeamsExcludingSelf:
		for _, team := range view.Teams() {
			if team != giverTeam {
				addTeam(out, team, view)
			}
		}

	case domain.ParticipantOwnTeam:
		if giverTeam != "" {
			addTeam(out, giverTeam, view)
		}

	case domain.ParticipantOwnTeamMembers, domain.ParticipantOwnTeamMembersIncludingSelf:
		if giverTeam == "" {
			break
		}
		for _, s := range view.StudentsInTeam(giverTeam) {
			if s.Email == giver.Email && recipientType == domain.ParticipantOwnTeamMembers {
				continue
			}
			addStudent(out, s)
		}

	case domain.ParticipantNone:
		// no recipients

	default:
		return nil, fmt.Errorf("unknown recipient type %q: %w", recipientType, errdefs.ErrInvalidParameters)
	}

	return out, nil
}

func addStudent(out map[string]Recipient, s *domain.Student) {
	out[s.Email] = Recipient{
		Identifier: s.Email,
		Name:       s.Name,
		Section:    s.Section,
		Team:       s.Team,
	}
}

func addTeam(out map[string]Recipient, team string, view *roster.View) {
	out[team] = Recipient{
		Identifier: team,
		Name:       team,
		Section:    view.TeamSection(team),
		Team:       team,
		IsTeam:     true,
	}
}

// PopulateGeneratedOptions fills the options of a closed-form question
// whose choices come from the roster. Student givers see choices relative
// to their own team; instructors have no team context.
func (r *Resolver) PopulateGeneratedOptions(q *domain.FeedbackQuestion, giver domain.Participant, view *roster.View) error {
	if !q.Type.HasGeneratedOptions() || q.GenerateOptions == "" || q.GenerateOptions == domain.ParticipantNone {
		return nil
	}

	set, err := r.resolve(q.GenerateOptions, q.GiverType, giver, view)
	if err != nil {
		return err
	}

	options := make([]string, 0, len(set))
	for _, rec := range set {
		label := rec.Name
		if label == "" {
			label = rec.Identifier
		}
		if !rec.IsTeam && rec.Team != "" {
			label = fmt.Sprintf("%s (%s)", label, rec.Team)
		}
		options = append(options, label)
	}
	sort.Strings(options)
	q.Options = options
	return nil
}
