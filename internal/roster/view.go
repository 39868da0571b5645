package roster

import (
	"context"
	"fmt"
	"sort"

	"feedback_service/internal/domain"
)

// View is a read-only snapshot of a course roster. All slices are sorted so
// that anything derived from a View is deterministic.
type View struct {
	courseID    string
	students    []*domain.Student
	instructors []*domain.Instructor

	studentByEmail    map[string]*domain.Student
	instructorByEmail map[string]*domain.Instructor
	teams             map[string][]*domain.Student
}

func NewView(courseID string, students []*domain.Student, instructors []*domain.Instructor) *View {
	v := &View{
		courseID:          courseID,
		students:          append([]*domain.Student(nil), students...),
		instructors:       append([]*domain.Instructor(nil), instructors...),
		studentByEmail:    make(map[string]*domain.Student, len(students)),
		instructorByEmail: make(map[string]*domain.Instructor, len(instructors)),
		teams:             make(map[string][]*domain.Student),
	}

	sort.Slice(v.students, func(i, j int) bool { return v.students[i].Email < v.students[j].Email })
	sort.Slice(v.instructors, func(i, j int) bool { return v.instructors[i].Email < v.instructors[j].Email })

	for _, s := range v.students {
		v.studentByEmail[s.Email] = s
		if s.Team != "" {
			v.teams[s.Team] = append(v.teams[s.Team], s)
		}
	}
	for _, i := range v.instructors {
		v.instructorByEmail[i.Email] = i
	}
	return v
}

// Load builds a View from the provider.
func Load(ctx context.Context, p Provider, courseID string) (*View, error) {
	students, err := p.StudentsForCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load students of %s: %w", courseID, err)
	}
	instructors, err := p.InstructorsForCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load instructors of %s: %w", courseID, err)
	}
	return NewView(courseID, students, instructors), nil
}

func (v *View) CourseID() string { return v.courseID }

func (v *View) Students() []*domain.Student { return v.students }

func (v *View) Instructors() []*domain.Instructor { return v.instructors }

func (v *View) Student(email string) (*domain.Student, bool) {
	s, ok := v.studentByEmail[email]
	return s, ok
}

func (v *View) Instructor(email string) (*domain.Instructor, bool) {
	i, ok := v.instructorByEmail[email]
	return i, ok
}

// Teams returns the distinct team names in ascending order.
func (v *View) Teams() []string {
	teams := make([]string, 0, len(v.teams))
	for t := range v.teams {
		teams = append(teams, t)
	}
	sort.Strings(teams)
	return teams
}

func (v *View) StudentsInTeam(team string) []*domain.Student {
	return v.teams[team]
}

// TeamSection returns the section of the team's first member.
func (v *View) TeamSection(team string) string {
	members := v.teams[team]
	if len(members) == 0 {
		return domain.DefaultSection
	}
	return members[0].Section
}

func (v *View) Sections() []string {
	seen := make(map[string]struct{})
	for _, s := range v.students {
		seen[s.Section] = struct{}{}
	}
	sections := make([]string, 0, len(seen))
	for s := range seen {
		sections = append(sections, s)
	}
	sort.Strings(sections)
	return sections
}

// Participants returns every student followed by every instructor.
func (v *View) Participants() []domain.Participant {
	out := make([]domain.Participant, 0, len(v.students)+len(v.instructors))
	for _, s := range v.students {
		out = append(out, s.AsParticipant())
	}
	for _, i := range v.instructors {
		out = append(out, i.AsParticipant())
	}
	return out
}

// SectionOf returns the section of a giver or recipient identifier, which
// may be a student email, an instructor email or a team name.
func (v *View) SectionOf(identifier string) string {
	if s, ok := v.studentByEmail[identifier]; ok {
		return s.Section
	}
	if _, ok := v.instructorByEmail[identifier]; ok {
		return domain.InstructorSection
	}
	if _, ok := v.teams[identifier]; ok {
		return v.TeamSection(identifier)
	}
	return domain.DefaultSection
}
