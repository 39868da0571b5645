package domain

import "time"

type Student struct {
	CourseID  string
	Email     string
	Name      string
	Team      string
	Section   string
	GoogleID  string
	CreatedAt time.Time
	EditedAt  time.Time
}

type Instructor struct {
	CourseID              string
	Email                 string
	Name                  string
	GoogleID              string
	Role                  string
	IsDisplayedToStudents bool
	CreatedAt             time.Time
	EditedAt              time.Time
}

// RoleCoOwner is the instructor role that receives copies of course-wide
// notifications.
const RoleCoOwner = "Co-owner"

func (i *Instructor) IsCoOwner() bool {
	return i.Role == RoleCoOwner
}

// Participant identifies a roster member acting in a session.
// Team is empty for instructors.
type Participant struct {
	Email        string
	Name         string
	IsInstructor bool
	Team         string
	Section      string
}

func (s *Student) AsParticipant() Participant {
	return Participant{
		Email:   s.Email,
		Name:    s.Name,
		Team:    s.Team,
		Section: s.Section,
	}
}

func (i *Instructor) AsParticipant() Participant {
	return Participant{
		Email:        i.Email,
		Name:         i.Name,
		IsInstructor: true,
		Section:      InstructorSection,
	}
}

const (
	// InstructorSection is the section recorded on responses given or
	// received by instructors.
	InstructorSection = "None"
	// DefaultSection is used for students enrolled without a section.
	DefaultSection = "None"
)
