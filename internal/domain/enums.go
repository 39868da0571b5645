package domain

// ParticipantType describes who gives or receives feedback for a question.
type ParticipantType string

const (
	ParticipantSelf                        ParticipantType = "SELF"
	ParticipantStudents                    ParticipantType = "STUDENTS"
	ParticipantStudentsExcludingSelf       ParticipantType = "STUDENTS_EXCLUDING_SELF"
	ParticipantInstructors                 ParticipantType = "INSTRUCTORS"
	ParticipantTeams                       ParticipantType = "TEAMS"
	ParticipantTeamsExcludingSelf          ParticipantType = "TEAMS_EXCLUDING_SELF"
	ParticipantOwnTeam                     ParticipantType = "OWN_TEAM"
	ParticipantOwnTeamMembers              ParticipantType = "OWN_TEAM_MEMBERS"
	ParticipantOwnTeamMembersIncludingSelf ParticipantType = "OWN_TEAM_MEMBERS_INCLUDING_SELF"
	ParticipantNone                        ParticipantType = "NONE"
)

func (p ParticipantType) IsValid() bool {
	switch p {
	case ParticipantSelf, ParticipantStudents, ParticipantStudentsExcludingSelf,
		ParticipantInstructors, ParticipantTeams, ParticipantTeamsExcludingSelf,
		ParticipantOwnTeam, ParticipantOwnTeamMembers, ParticipantOwnTeamMembersIncludingSelf,
		ParticipantNone:
		return true
	default:
		return false
	}
}

// IsValidGiver reports whether p may appear as a question's giver type.
func (p ParticipantType) IsValidGiver() bool {
	switch p {
	case ParticipantSelf, ParticipantStudents, ParticipantInstructors, ParticipantTeams:
		return true
	default:
		return false
	}
}

// IsTeamScoped reports whether responses for this recipient type only make
// sense while giver and recipient share a team.
func (p ParticipantType) IsTeamScoped() bool {
	switch p {
	case ParticipantOwnTeam, ParticipantOwnTeamMembers, ParticipantOwnTeamMembersIncludingSelf:
		return true
	default:
		return false
	}
}

func ToParticipantType(s string) ParticipantType {
	p := ParticipantType(s)
	if p.IsValid() {
		return p
	}
	return ParticipantNone
}

type QuestionType string

const (
	QuestionTypeText     QuestionType = "TEXT"
	QuestionTypeMCQ      QuestionType = "MCQ"
	QuestionTypeMSQ      QuestionType = "MSQ"
	QuestionTypeNumScale QuestionType = "NUMSCALE"
	QuestionTypeRank     QuestionType = "RANK_RECIPIENTS"
)

func (q QuestionType) IsValid() bool {
	switch q {
	case QuestionTypeText, QuestionTypeMCQ, QuestionTypeMSQ, QuestionTypeNumScale, QuestionTypeRank:
		return true
	default:
		return false
	}
}

// HasGeneratedOptions reports whether the question type can derive its
// answer options from the roster.
func (q QuestionType) HasGeneratedOptions() bool {
	return q == QuestionTypeMCQ || q == QuestionTypeMSQ
}

// EmailFlag names one of the monotonic "sent" flags on a session.
type EmailFlag string

const (
	EmailFlagOpeningSoon EmailFlag = "sent_opening_soon_email"
	EmailFlagOpen        EmailFlag = "sent_open_email"
	EmailFlagClosing     EmailFlag = "sent_closing_email"
	EmailFlagClosed      EmailFlag = "sent_closed_email"
	EmailFlagPublished   EmailFlag = "sent_published_email"
)

func EmailFlags() []EmailFlag {
	return []EmailFlag{EmailFlagOpeningSoon, EmailFlagOpen, EmailFlagClosing, EmailFlagClosed, EmailFlagPublished}
}

func (f EmailFlag) IsValid() bool {
	switch f {
	case EmailFlagOpeningSoon, EmailFlagOpen, EmailFlagClosing, EmailFlagClosed, EmailFlagPublished:
		return true
	default:
		return false
	}
}
