package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"feedback_service/internal/domain"
)

// Delete methods return whether a row was removed; a missing row is not an
// error. DeleteByCourse removes at most limit rows and returns the count, so
// callers can page through large courses.

type CourseRepository interface {
	Create(ctx context.Context, course *domain.Course) error
	Get(ctx context.Context, id string) (*domain.Course, error)
	Update(ctx context.Context, course *domain.Course) error
	Delete(ctx context.Context, id string) (bool, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.FeedbackSession) error
	// Get returns the session whether or not it is in the recycle bin.
	Get(ctx context.Context, courseID, name string) (*domain.FeedbackSession, error)
	ListByCourse(ctx context.Context, courseID string) ([]*domain.FeedbackSession, error)
	// ListEmailPending returns sessions outside the recycle bin whose flag is
	// still false.
	ListEmailPending(ctx context.Context, flag domain.EmailFlag) ([]*domain.FeedbackSession, error)
	// Update writes the session settings. Sent flags and the deadline maps
	// are left alone; they change only through MarkEmailSent, ClearEmailSent
	// and SetDeadlines.
	Update(ctx context.Context, session *domain.FeedbackSession) error
	MarkEmailSent(ctx context.Context, key domain.SessionKey, flag domain.EmailFlag) error
	ClearEmailSent(ctx context.Context, key domain.SessionKey, flags ...domain.EmailFlag) error
	SetDeadlines(ctx context.Context, key domain.SessionKey, students, instructors map[string]time.Time) error
	Delete(ctx context.Context, courseID, name string) (bool, error)
	DeleteByCourse(ctx context.Context, courseID string, limit int) (int, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, question *domain.FeedbackQuestion) error
	Get(ctx context.Context, id uuid.UUID) (*domain.FeedbackQuestion, error)
	// ListBySession returns questions ordered by number.
	ListBySession(ctx context.Context, courseID, sessionName string) ([]*domain.FeedbackQuestion, error)
	ListByCourse(ctx context.Context, courseID string) ([]*domain.FeedbackQuestion, error)
	Update(ctx context.Context, question *domain.FeedbackQuestion) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteByCourse(ctx context.Context, courseID string, limit int) (int, error)
}

type ResponseRepository interface {
	// CreateIfAbsent inserts the response unless its key is taken, in which
	// case it returns errdefs.ErrAlreadyExists and writes nothing.
	CreateIfAbsent(ctx context.Context, response *domain.FeedbackResponse) error
	Get(ctx context.Context, id uuid.UUID) (*domain.FeedbackResponse, error)
	GetByKey(ctx context.Context, key domain.ResponseKey) (*domain.FeedbackResponse, error)
	ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]*domain.FeedbackResponse, error)
	ListBySession(ctx context.Context, courseID, sessionName string) ([]*domain.FeedbackResponse, error)
	// ListByParticipant returns responses of the course where identifier is
	// the giver or the recipient.
	ListByParticipant(ctx context.Context, courseID, identifier string) ([]*domain.FeedbackResponse, error)
	// Update writes the non-key fields.
	Update(ctx context.Context, response *domain.FeedbackResponse) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteByQuestion(ctx context.Context, questionID uuid.UUID) (int, error)
	DeleteByCourse(ctx context.Context, courseID string, limit int) (int, error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment *domain.FeedbackResponseComment) error
	Get(ctx context.Context, id uuid.UUID) (*domain.FeedbackResponseComment, error)
	ListByResponse(ctx context.Context, responseID uuid.UUID) ([]*domain.FeedbackResponseComment, error)
	Update(ctx context.Context, comment *domain.FeedbackResponseComment) error
	// MoveToResponse re-points every comment of from onto to.
	MoveToResponse(ctx context.Context, from, to uuid.UUID) (int, error)
	ReplaceGiverEmail(ctx context.Context, courseID, oldEmail, newEmail string) (int, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteByResponse(ctx context.Context, responseID uuid.UUID) (int, error)
	DeleteByQuestion(ctx context.Context, questionID uuid.UUID) (int, error)
	DeleteByGiver(ctx context.Context, courseID, giverEmail string) (int, error)
	DeleteByCourse(ctx context.Context, courseID string, limit int) (int, error)
}

type DeadlineExtensionRepository interface {
	Create(ctx context.Context, ext *domain.DeadlineExtension) error
	Get(ctx context.Context, key domain.DeadlineExtensionKey) (*domain.DeadlineExtension, error)
	Update(ctx context.Context, ext *domain.DeadlineExtension) error
	ListBySession(ctx context.Context, courseID, sessionName string) ([]*domain.DeadlineExtension, error)
	ListByUser(ctx context.Context, courseID, email string, isInstructor bool) ([]*domain.DeadlineExtension, error)
	// ListEndingBetween returns extensions with from <= endTime <= to.
	ListEndingBetween(ctx context.Context, from, to time.Time) ([]*domain.DeadlineExtension, error)
	Delete(ctx context.Context, key domain.DeadlineExtensionKey) (bool, error)
	DeleteBySession(ctx context.Context, courseID, sessionName string) (int, error)
	DeleteByCourse(ctx context.Context, courseID string, limit int) (int, error)
}

type StudentRepository interface {
	Create(ctx context.Context, student *domain.Student) error
	Get(ctx context.Context, courseID, email string) (*domain.Student, error)
	ListByCourse(ctx context.Context, courseID string) ([]*domain.Student, error)
	ListByTeam(ctx context.Context, courseID, team string) ([]*domain.Student, error)
	// Update replaces the student stored under email, which may differ from
	// student.Email when the email itself changes.
	Update(ctx context.Context, email string, student *domain.Student) error
	Delete(ctx context.Context, courseID, email string) (bool, error)
	DeleteByCourse(ctx context.Context, courseID string, limit int) (int, error)
}

type InstructorRepository interface {
	Create(ctx context.Context, instructor *domain.Instructor) error
	Get(ctx context.Context, courseID, email string) (*domain.Instructor, error)
	ListByCourse(ctx context.Context, courseID string) ([]*domain.Instructor, error)
	Update(ctx context.Context, email string, instructor *domain.Instructor) error
	Delete(ctx context.Context, courseID, email string) (bool, error)
	DeleteByCourse(ctx context.Context, courseID string, limit int) (int, error)
}

// Store groups the repositories of one storage backend.
type Store struct {
	Courses     CourseRepository
	Sessions    SessionRepository
	Questions   QuestionRepository
	Responses   ResponseRepository
	Comments    CommentRepository
	Extensions  DeadlineExtensionRepository
	Students    StudentRepository
	Instructors InstructorRepository
}
